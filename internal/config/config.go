package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"bookingetl/internal/common"
	"bookingetl/internal/quality"
	"bookingetl/internal/warehouse"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. BOOKINGETL_WAREHOUSE_DSN
	EnvPrefix = "BOOKINGETL"
	// KeyringService is the OS keyring service holding warehouse passwords
	KeyringService = "bookingetl"
	// FileName is the config file name without extension
	FileName = "bookingetl"
)

// Default returns the configuration used when nothing is set.
func Default() models.Config {
	return models.Config{
		Source: models.Source{
			Dir:              ".",
			BookingsPattern:  "bookings_" + common.DatePlaceholder + ".csv",
			CustomersPattern: "customers_" + common.DatePlaceholder + ".csv",
		},
		Warehouse: models.Warehouse{
			Driver:          warehouse.DriverDuckDB,
			FactTable:       "booking_fact",
			DimensionTable:  "customer_scd",
			RunLogTable:     "etl_run_log",
			Timeout:         "5m",
			InsertBatchSize: 500,
		},
		Quality:   quality.DefaultQuality(),
		Facts:     models.Facts{GuardReruns: true},
		Dimension: models.Dimension{OpenSentinel: models.OpenSentinel.Format(models.DateLayout)},
		Logging:   models.Logging{Level: "info", Format: "json"},
		Metrics:   models.Metrics{Job: "bookingetl"},
	}
}

// SetDefaults registers every scalar default with v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("source.dir", d.Source.Dir)
	v.SetDefault("source.bookings_pattern", d.Source.BookingsPattern)
	v.SetDefault("source.customers_pattern", d.Source.CustomersPattern)

	v.SetDefault("warehouse.driver", d.Warehouse.Driver)
	v.SetDefault("warehouse.dsn", "")
	v.SetDefault("warehouse.account", "")
	v.SetDefault("warehouse.username", "")
	v.SetDefault("warehouse.password", "")
	v.SetDefault("warehouse.password_from_keyring", false)
	v.SetDefault("warehouse.role", "")
	v.SetDefault("warehouse.warehouse", "")
	v.SetDefault("warehouse.database", "")
	v.SetDefault("warehouse.schema", "")
	v.SetDefault("warehouse.fact_table", d.Warehouse.FactTable)
	v.SetDefault("warehouse.dimension_table", d.Warehouse.DimensionTable)
	v.SetDefault("warehouse.run_log_table", d.Warehouse.RunLogTable)
	v.SetDefault("warehouse.timeout", d.Warehouse.Timeout)
	v.SetDefault("warehouse.insert_batch_size", d.Warehouse.InsertBatchSize)

	v.SetDefault("facts.guard_reruns", d.Facts.GuardReruns)
	v.SetDefault("dimension.open_sentinel", d.Dimension.OpenSentinel)
	v.SetDefault("dimension.detect_changes", d.Dimension.DetectChanges)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", d.Metrics.Job)
}

// NewViper returns a viper instance with defaults and environment
// overrides. An empty configFile searches for bookingetl.yaml in the working
// directory and in $HOME/.bookingetl.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, "."+FileName))
	}
	return v
}

// Load reads, completes and validates the configuration. A missing config
// file is not an error when none was named explicitly.
func Load(v *viper.Viper) (*models.Config, error) {
	cfg, err := Read(v)
	if err != nil {
		return nil, err
	}
	if err := ResolvePassword(&cfg.Warehouse); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes the configuration and fills default quality rules. It does
// not consult the keyring or validate.
func Read(v *viper.Viper) (*models.Config, error) {
	if file := v.ConfigFileUsed(); file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigMissing, "Configuration file not found").
				WithContext("file", file).
				WithSuggestions("Run 'bookingetl init' to write a starter configuration")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.ErrCodeConfigMissing, "Failed to read configuration file").
				WithContext("file", v.ConfigFileUsed()).
				WithSuggestions("Run 'bookingetl init' to write a starter configuration")
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode configuration").
			WithContext("file", v.ConfigFileUsed())
	}

	defaults := quality.DefaultQuality()
	if len(cfg.Quality.Bookings.Rules) == 0 {
		cfg.Quality.Bookings = defaults.Bookings
	}
	if len(cfg.Quality.Customers.Rules) == 0 {
		cfg.Quality.Customers = defaults.Customers
	}
	return &cfg, nil
}

// ResolvePassword fills the warehouse password from the OS keyring when
// password_from_keyring is set and no password was given.
func ResolvePassword(cfg *models.Warehouse) error {
	if !cfg.PasswordFromKeyring || cfg.Password != "" {
		return nil
	}
	if cfg.Username == "" {
		return errors.ConfigError("keyring lookup requires warehouse.username", "warehouse.username")
	}

	password, err := keyring.Get(KeyringService, keyringAccount(cfg))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigMissing, "Failed to read warehouse password from keyring").
			WithContext("service", KeyringService).
			WithContext("account", keyringAccount(cfg)).
			WithSuggestions("Store it with 'bookingetl credentials set'")
	}
	cfg.Password = password
	return nil
}

// StorePassword saves a warehouse password in the OS keyring.
func StorePassword(cfg models.Warehouse, password string) error {
	if cfg.Username == "" {
		return errors.ConfigError("storing a password requires warehouse.username", "warehouse.username")
	}
	if err := keyring.Set(KeyringService, keyringAccount(&cfg), password); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to store warehouse password in keyring")
	}
	return nil
}

func keyringAccount(cfg *models.Warehouse) string {
	if cfg.Account != "" {
		return cfg.Username + "@" + cfg.Account
	}
	return cfg.Username
}

// Validate checks a configuration and returns the first problem found.
func Validate(cfg *models.Config) error {
	if strings.TrimSpace(cfg.Source.Dir) == "" {
		return errors.ConfigError("source directory is required", "source.dir")
	}
	if !strings.Contains(cfg.Source.BookingsPattern, common.DatePlaceholder) {
		return errors.ConfigError("pattern must contain "+common.DatePlaceholder, "source.bookings_pattern")
	}
	if !strings.Contains(cfg.Source.CustomersPattern, common.DatePlaceholder) {
		return errors.ConfigError("pattern must contain "+common.DatePlaceholder, "source.customers_pattern")
	}

	if err := validateWarehouse(&cfg.Warehouse); err != nil {
		return err
	}

	if _, err := OpenSentinel(cfg.Dimension); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "console", "text":
	default:
		return errors.ConfigError(fmt.Sprintf("unknown log format %q", cfg.Logging.Format), "logging.format")
	}

	if _, err := quality.BuildCheck("quality.bookings", cfg.Quality.Bookings); err != nil {
		return err
	}
	if _, err := quality.BuildCheck("quality.customers", cfg.Quality.Customers); err != nil {
		return err
	}
	return nil
}

func validateWarehouse(w *models.Warehouse) error {
	switch w.Driver {
	case warehouse.DriverDuckDB, warehouse.DriverPostgres:
	case warehouse.DriverSnowflake:
		if w.DSN == "" {
			if w.Account == "" {
				return errors.ConfigError("snowflake account is required", "warehouse.account")
			}
			if w.Username == "" {
				return errors.ConfigError("snowflake username is required", "warehouse.username")
			}
			if w.Password == "" {
				return errors.ConfigError("snowflake password is required", "warehouse.password")
			}
		}
	default:
		return errors.ConfigError(fmt.Sprintf("unsupported warehouse driver %q", w.Driver), "warehouse.driver")
	}
	if w.Driver == warehouse.DriverPostgres && w.DSN == "" {
		return errors.ConfigError("postgres driver requires a dsn", "warehouse.dsn")
	}

	tables := map[string]string{
		"warehouse.fact_table":      w.FactTable,
		"warehouse.dimension_table": w.DimensionTable,
		"warehouse.run_log_table":   w.RunLogTable,
	}
	for _, field := range []string{"warehouse.fact_table", "warehouse.dimension_table", "warehouse.run_log_table"} {
		if !warehouse.ValidIdentifier(tables[field]) {
			return errors.ConfigError(fmt.Sprintf("invalid table name %q", tables[field]), field)
		}
	}
	if w.Schema != "" && !warehouse.ValidIdentifier(w.Schema) {
		return errors.ConfigError(fmt.Sprintf("invalid schema name %q", w.Schema), "warehouse.schema")
	}

	if w.Timeout != "" {
		if d, err := time.ParseDuration(w.Timeout); err != nil || d <= 0 {
			return errors.ConfigError(fmt.Sprintf("invalid timeout %q", w.Timeout), "warehouse.timeout")
		}
	}
	if w.InsertBatchSize < 0 {
		return errors.ConfigError("insert batch size cannot be negative", "warehouse.insert_batch_size")
	}
	return nil
}

// OpenSentinel parses the configured valid_to of open dimension records.
func OpenSentinel(d models.Dimension) (time.Time, error) {
	if d.OpenSentinel == "" {
		return models.OpenSentinel, nil
	}
	t, err := time.Parse(models.DateLayout, d.OpenSentinel)
	if err != nil {
		return time.Time{}, errors.ConfigError(fmt.Sprintf("invalid open sentinel %q", d.OpenSentinel), "dimension.open_sentinel")
	}
	return t, nil
}

// Save writes cfg as YAML to path, refusing to overwrite unless force.
func Save(cfg *models.Config, path string, force bool) error {
	cleaned, err := common.CleanPath(path)
	if err != nil {
		return errors.ConfigError(err.Error(), "config")
	}
	if !force {
		if _, err := os.Stat(cleaned); err == nil {
			return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("Configuration file already exists: %s", cleaned)).
				WithSuggestions("Pass --force to overwrite it")
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, common.DirPermissionNormal); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(cleaned, data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
