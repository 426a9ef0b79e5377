package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"bookingetl/internal/quality"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookingetl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(""))
	require.NoError(t, err)

	assert.Equal(t, "bookings_{date}.csv", cfg.Source.BookingsPattern)
	assert.Equal(t, "customers_{date}.csv", cfg.Source.CustomersPattern)
	assert.Equal(t, "duckdb", cfg.Warehouse.Driver)
	assert.Equal(t, "booking_fact", cfg.Warehouse.FactTable)
	assert.Equal(t, "customer_scd", cfg.Warehouse.DimensionTable)
	assert.True(t, cfg.Facts.GuardReruns)
	assert.False(t, cfg.Dimension.DetectChanges)
	assert.Equal(t, quality.DefaultQuality(), cfg.Quality)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
source:
  dir: /data/extracts
warehouse:
  driver: postgres
  dsn: postgres://etl@localhost/warehouse
  schema: analytics
facts:
  guard_reruns: false
dimension:
  detect_changes: true
quality:
  bookings:
    level: warning
    rules:
      - type: size
        op: ">"
        value: 10
      - type: unique
        column: booking_id
`)

	cfg, err := Load(NewViper(path))
	require.NoError(t, err)

	assert.Equal(t, "/data/extracts", cfg.Source.Dir)
	assert.Equal(t, "postgres", cfg.Warehouse.Driver)
	assert.Equal(t, "analytics", cfg.Warehouse.Schema)
	assert.False(t, cfg.Facts.GuardReruns)
	assert.True(t, cfg.Dimension.DetectChanges)

	require.Len(t, cfg.Quality.Bookings.Rules, 2)
	assert.Equal(t, 10.0, cfg.Quality.Bookings.Rules[0].Value)
	assert.Equal(t, "warning", cfg.Quality.Bookings.Level)
	// customers ruleset falls back to the defaults
	assert.Equal(t, quality.DefaultQuality().Customers, cfg.Quality.Customers)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "warehouse:\n  fact_table: from_file\n")
	t.Setenv("BOOKINGETL_WAREHOUSE_FACT_TABLE", "from_env")
	t.Setenv("BOOKINGETL_LOGGING_LEVEL", "debug")

	cfg, err := Load(NewViper(path))
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Warehouse.FactTable)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(NewViper(filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigMissing, errors.GetErrorCode(err))
}

func TestLoadInvalidConfig(t *testing.T) {
	path := writeConfig(t, "warehouse:\n  driver: oracle\n")

	_, err := Load(NewViper(path))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "unsupported warehouse driver")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Config)
		field  string
	}{
		{"empty dir", func(c *models.Config) { c.Source.Dir = "" }, "source.dir"},
		{"pattern without date", func(c *models.Config) { c.Source.BookingsPattern = "bookings.csv" }, "source.bookings_pattern"},
		{"customers pattern", func(c *models.Config) { c.Source.CustomersPattern = "c.csv" }, "source.customers_pattern"},
		{"snowflake account", func(c *models.Config) { c.Warehouse.Driver = "snowflake" }, "warehouse.account"},
		{"snowflake password", func(c *models.Config) {
			c.Warehouse.Driver = "snowflake"
			c.Warehouse.Account = "acct"
			c.Warehouse.Username = "etl"
		}, "warehouse.password"},
		{"postgres dsn", func(c *models.Config) { c.Warehouse.Driver = "postgres" }, "warehouse.dsn"},
		{"bad table", func(c *models.Config) { c.Warehouse.FactTable = "fact;drop" }, "warehouse.fact_table"},
		{"bad schema", func(c *models.Config) { c.Warehouse.Schema = "a.b" }, "warehouse.schema"},
		{"bad timeout", func(c *models.Config) { c.Warehouse.Timeout = "soon" }, "warehouse.timeout"},
		{"negative batch", func(c *models.Config) { c.Warehouse.InsertBatchSize = -1 }, "warehouse.insert_batch_size"},
		{"bad sentinel", func(c *models.Config) { c.Dimension.OpenSentinel = "forever" }, "dimension.open_sentinel"},
		{"bad log format", func(c *models.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad rule", func(c *models.Config) { c.Quality.Customers.Rules[0].Type = "regex" }, "quality.customers.rules[0].type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			require.Error(t, err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}

	cfg := Default()
	assert.NoError(t, Validate(&cfg))
}

func TestReadSkipsKeyringAndValidation(t *testing.T) {
	keyring.MockInit()
	path := writeConfig(t, `
warehouse:
  driver: snowflake
  account: acct
  username: etl
  password_from_keyring: true
`)

	_, err := Load(NewViper(path))
	require.Error(t, err)

	cfg, err := Read(NewViper(path))
	require.NoError(t, err)
	assert.Equal(t, "etl", cfg.Warehouse.Username)
	assert.Empty(t, cfg.Warehouse.Password)
	assert.Equal(t, quality.DefaultQuality().Bookings, cfg.Quality.Bookings)
}

func TestResolvePasswordFromKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set(KeyringService, "etl@acct", "s3cret"))

	w := models.Warehouse{Username: "etl", Account: "acct", PasswordFromKeyring: true}
	require.NoError(t, ResolvePassword(&w))
	assert.Equal(t, "s3cret", w.Password)

	explicit := models.Warehouse{Username: "etl", Password: "given", PasswordFromKeyring: true}
	require.NoError(t, ResolvePassword(&explicit))
	assert.Equal(t, "given", explicit.Password)

	missing := models.Warehouse{Username: "nobody", PasswordFromKeyring: true}
	err := ResolvePassword(&missing)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigMissing, errors.GetErrorCode(err))
}

func TestStorePassword(t *testing.T) {
	keyring.MockInit()

	w := models.Warehouse{Username: "etl"}
	require.NoError(t, StorePassword(w, "pw"))

	got, err := keyring.Get(KeyringService, "etl")
	require.NoError(t, err)
	assert.Equal(t, "pw", got)

	assert.Error(t, StorePassword(models.Warehouse{}, "pw"))
}

func TestOpenSentinel(t *testing.T) {
	s, err := OpenSentinel(models.Dimension{})
	require.NoError(t, err)
	assert.Equal(t, models.OpenSentinel, s)

	s, err = OpenSentinel(models.Dimension{OpenSentinel: "2999-12-31"})
	require.NoError(t, err)
	assert.Equal(t, 2999, s.Year())
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "bookingetl.yaml")
	cfg := Default()

	require.NoError(t, Save(&cfg, path, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded models.Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg.Warehouse.FactTable, decoded.Warehouse.FactTable)

	err = Save(&cfg, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.NoError(t, Save(&cfg, path, true))

	loaded, err := Load(NewViper(path))
	require.NoError(t, err)
	assert.Equal(t, cfg.Quality, loaded.Quality)
}
