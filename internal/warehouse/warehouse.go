package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

// Supported drivers
const (
	DriverDuckDB    = "duckdb"
	DriverSnowflake = "snowflake"
	DriverPostgres  = "postgres"
)

// DefaultDuckDBPath is used when the duckdb driver has no DSN
const DefaultDuckDBPath = "bookingetl.duckdb"

const defaultInsertBatchSize = 500

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a table or
// schema name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Dialect covers the SQL differences between drivers
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2...) instead of ?
	Numbered bool
}

// DialectFor returns the dialect of a driver
func DialectFor(driver string) Dialect {
	return Dialect{Name: driver, Numbered: driver == DriverPostgres}
}

// Rebind rewrites ? placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB is a warehouse connection shared by the stores of one run
type DB struct {
	db      *sql.DB
	dialect Dialect
	config  models.Warehouse
	timeout time.Duration
	log     *zap.Logger
}

// DSN builds the driver data source name from the configuration.
func DSN(cfg models.Warehouse) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case DriverDuckDB, "":
		dsn = cfg.DSN
		if dsn == "" {
			dsn = DefaultDuckDBPath
		}
		return "duckdb", dsn, nil
	case DriverSnowflake:
		if cfg.DSN != "" {
			return "snowflake", cfg.DSN, nil
		}
		dsn, err = gosnowflake.DSN(&gosnowflake.Config{
			Account:   cfg.Account,
			User:      cfg.Username,
			Password:  cfg.Password,
			Database:  cfg.Database,
			Schema:    cfg.Schema,
			Warehouse: cfg.Warehouse,
			Role:      cfg.Role,
		})
		if err != nil {
			return "", "", errors.ConfigError(fmt.Sprintf("invalid snowflake settings: %v", err), "warehouse.account")
		}
		return "snowflake", dsn, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", "", errors.ConfigError("postgres driver requires a dsn", "warehouse.dsn")
		}
		return "pgx", cfg.DSN, nil
	default:
		return "", "", errors.ConfigError(fmt.Sprintf("unsupported warehouse driver %q", cfg.Driver), "warehouse.driver")
	}
}

// Open connects to the configured warehouse and verifies the connection.
func Open(ctx context.Context, cfg models.Warehouse, log *zap.Logger) (*DB, error) {
	driverName, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("driver", cfg.Driver)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)

	db := New(conn, cfg, log)

	pingCtx, cancel := db.context(ctx)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, errors.ConnectionError("Failed to connect to warehouse", err).
			WithContext("driver", cfg.Driver).
			WithContext("account", cfg.Account)
	}

	db.log.Info("Connected to warehouse",
		zap.String("driver", db.dialect.Name),
		zap.String("schema", cfg.Schema),
	)
	return db, nil
}

// New wraps an open connection
func New(conn *sql.DB, cfg models.Warehouse, log *zap.Logger) *DB {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverDuckDB
	}
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{
		db:      conn,
		dialect: DialectFor(driver),
		config:  cfg,
		timeout: timeout,
		log:     log,
	}
}

// Close closes the database connection
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Dialect returns the SQL dialect in use
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Facts returns the store for the configured fact table
func (d *DB) Facts() *FactStore {
	return &FactStore{db: d, table: d.config.FactTable}
}

// Dimension returns the store for the configured dimension table
func (d *DB) Dimension() *DimensionStore {
	return &DimensionStore{db: d, table: d.config.DimensionTable}
}

// RunLog returns the store for the configured run log table
func (d *DB) RunLog() *RunLog {
	return &RunLog{db: d, table: d.config.RunLogTable}
}

func (d *DB) context(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

func (d *DB) batchSize() int {
	if d.config.InsertBatchSize > 0 {
		return d.config.InsertBatchSize
	}
	return defaultInsertBatchSize
}

// qualified prefixes name with the configured schema
func (d *DB) qualified(name string) string {
	if d.config.Schema != "" {
		return d.config.Schema + "." + name
	}
	return name
}

func (d *DB) schemaFilter(query string, args []any) (string, []any) {
	if d.config.Schema == "" {
		return query, args
	}
	return query + " AND UPPER(table_schema) = UPPER(?)", append(args, d.config.Schema)
}

// tableExists looks the table up in information_schema
func (d *DB) tableExists(ctx context.Context, table string) (bool, error) {
	query, args := d.schemaFilter(
		"SELECT COUNT(*) FROM information_schema.tables WHERE UPPER(table_name) = UPPER(?)",
		[]any{table},
	)
	query = d.dialect.Rebind(query)

	var n int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, errors.SQLError(fmt.Sprintf("Failed to look up table %s", table), query, err).
			WithContext("table", table)
	}
	return n > 0, nil
}

// columns returns the lower-cased column names of table
func (d *DB) columns(ctx context.Context, table string) (map[string]bool, error) {
	query, args := d.schemaFilter(
		"SELECT column_name FROM information_schema.columns WHERE UPPER(table_name) = UPPER(?)",
		[]any{table},
	)
	query = d.dialect.Rebind(query)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.SQLError(fmt.Sprintf("Failed to list columns of %s", table), query, err).
			WithContext("table", table)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.SQLError(fmt.Sprintf("Failed to list columns of %s", table), query, err)
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func (d *DB) exec(ctx context.Context, message, query string, args ...any) error {
	query = d.dialect.Rebind(query)
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.SQLError(message, query, err)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back when it fails.
func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.log.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit transaction")
	}
	return nil
}

// insertBatches writes rows with multi-row INSERT statements inside tx.
func (d *DB) insertBatches(ctx context.Context, tx *sql.Tx, table string, columns []string, placeholders string, rows [][]any) error {
	size := d.batchSize()
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}

		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, (end-start)*len(columns))
		for i, row := range rows[start:end] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholders)
			args = append(args, row...)
		}

		query := d.dialect.Rebind(b.String())
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.SQLError(fmt.Sprintf("Failed to insert into %s", table), query, err).
				WithContext("batch_start", start)
		}
	}
	return nil
}

// parseDate reads a DATE rendered as text, e.g. "2024-07-25" or
// "2024-07-25 00:00:00".
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(models.DateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Parse(models.DateLayout, s[:len(models.DateLayout)])
}
