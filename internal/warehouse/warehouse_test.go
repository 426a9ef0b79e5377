package warehouse

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

func testConfig() models.Warehouse {
	return models.Warehouse{
		Driver:         DriverDuckDB,
		FactTable:      "booking_fact",
		DimensionTable: "customer_dim",
		RunLogTable:    "etl_run_log",
		Timeout:        "5s",
	}
}

func newMockDB(t *testing.T, cfg models.Warehouse) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		conn.Close()
	})
	return New(conn, cfg, zap.NewNop()), mock
}

func expectTableExists(mock sqlmock.Sqlmock, table string, exists bool) {
	n := 0
	if exists {
		n = 1
	}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema.tables`).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestDialectRebind(t *testing.T) {
	query := "UPDATE t SET a = ? WHERE b = ? AND c = ?"

	assert.Equal(t, query, DialectFor(DriverDuckDB).Rebind(query))
	assert.Equal(t, query, DialectFor(DriverSnowflake).Rebind(query))
	assert.Equal(t, "UPDATE t SET a = $1 WHERE b = $2 AND c = $3", DialectFor(DriverPostgres).Rebind(query))
}

func TestDSN(t *testing.T) {
	t.Run("duckdb default path", func(t *testing.T) {
		driver, dsn, err := DSN(models.Warehouse{})
		require.NoError(t, err)
		assert.Equal(t, "duckdb", driver)
		assert.Equal(t, DefaultDuckDBPath, dsn)
	})

	t.Run("snowflake from settings", func(t *testing.T) {
		driver, dsn, err := DSN(models.Warehouse{
			Driver:    DriverSnowflake,
			Account:   "test123",
			Username:  "testuser",
			Password:  "testpass",
			Database:  "TEST_DB",
			Schema:    "PUBLIC",
			Warehouse: "TEST_WH",
			Role:      "SYSADMIN",
		})
		require.NoError(t, err)
		assert.Equal(t, "snowflake", driver)
		assert.Contains(t, dsn, "testuser:testpass@")
		assert.Contains(t, dsn, "warehouse=TEST_WH")
		assert.Contains(t, dsn, "role=SYSADMIN")
	})

	t.Run("snowflake explicit dsn", func(t *testing.T) {
		_, dsn, err := DSN(models.Warehouse{Driver: DriverSnowflake, DSN: "u:p@acct/db/schema"})
		require.NoError(t, err)
		assert.Equal(t, "u:p@acct/db/schema", dsn)
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		_, _, err := DSN(models.Warehouse{Driver: DriverPostgres})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))

		driver, _, err := DSN(models.Warehouse{Driver: DriverPostgres, DSN: "postgres://localhost/etl"})
		require.NoError(t, err)
		assert.Equal(t, "pgx", driver)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := DSN(models.Warehouse{Driver: "oracle"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported warehouse driver")
	})
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("booking_fact"))
	assert.True(t, ValidIdentifier("_dim2"))
	assert.False(t, ValidIdentifier("2fact"))
	assert.False(t, ValidIdentifier("fact; DROP TABLE x"))
	assert.False(t, ValidIdentifier(""))
}

func TestNewDefaults(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := New(conn, models.Warehouse{Timeout: "bogus"}, nil)
	assert.Equal(t, DriverDuckDB, db.Dialect().Name)
	assert.Equal(t, 5*time.Minute, db.timeout)
	assert.Equal(t, defaultInsertBatchSize, db.batchSize())
}

func TestQualifiedNames(t *testing.T) {
	cfg := testConfig()
	cfg.Schema = "analytics"
	db, _ := newMockDB(t, cfg)

	assert.Equal(t, "analytics.booking_fact", db.Facts().Table())
	assert.Equal(t, "analytics.customer_dim", db.Dimension().Table())
	assert.Equal(t, "analytics.etl_run_log", db.RunLog().Table())
}

func TestTransactionBeginFailure(t *testing.T) {
	db, mock := newMockDB(t, testConfig())
	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	err := db.inTx(context.Background(), func(*sql.Tx) error { return nil })
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLTransaction, errors.GetErrorCode(err))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-07-25 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 25, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("bad")
	assert.Error(t, err)
}
