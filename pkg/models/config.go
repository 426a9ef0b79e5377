package models

type Config struct {
	Source    Source    `yaml:"source" mapstructure:"source"`
	Warehouse Warehouse `yaml:"warehouse" mapstructure:"warehouse"`
	Quality   Quality   `yaml:"quality" mapstructure:"quality"`
	Facts     Facts     `yaml:"facts" mapstructure:"facts"`
	Dimension Dimension `yaml:"dimension" mapstructure:"dimension"`
	Logging   Logging   `yaml:"logging" mapstructure:"logging"`
	Metrics   Metrics   `yaml:"metrics" mapstructure:"metrics"`
}

// Source locates the dated extracts. Patterns contain a {date} placeholder.
type Source struct {
	Dir              string `yaml:"dir" mapstructure:"dir"`
	BookingsPattern  string `yaml:"bookings_pattern" mapstructure:"bookings_pattern"`
	CustomersPattern string `yaml:"customers_pattern" mapstructure:"customers_pattern"`
}

type Warehouse struct {
	Driver              string `yaml:"driver" mapstructure:"driver"` // "duckdb", "snowflake", "postgres"
	DSN                 string `yaml:"dsn" mapstructure:"dsn"`       // used as-is when set
	Account             string `yaml:"account" mapstructure:"account"`
	Username            string `yaml:"username" mapstructure:"username"`
	Password            string `yaml:"password" mapstructure:"password"`
	PasswordFromKeyring bool   `yaml:"password_from_keyring" mapstructure:"password_from_keyring"`
	Role                string `yaml:"role" mapstructure:"role"`
	Warehouse           string `yaml:"warehouse" mapstructure:"warehouse"`
	Database            string `yaml:"database" mapstructure:"database"`
	Schema              string `yaml:"schema" mapstructure:"schema"`
	FactTable           string `yaml:"fact_table" mapstructure:"fact_table"`
	DimensionTable      string `yaml:"dimension_table" mapstructure:"dimension_table"`
	RunLogTable         string `yaml:"run_log_table" mapstructure:"run_log_table"`
	Timeout             string `yaml:"timeout" mapstructure:"timeout"` // e.g., "5m"
	InsertBatchSize     int    `yaml:"insert_batch_size" mapstructure:"insert_batch_size"`
}

// Quality holds the declarative rulesets for both batches
type Quality struct {
	Bookings  Ruleset `yaml:"bookings" mapstructure:"bookings"`
	Customers Ruleset `yaml:"customers" mapstructure:"customers"`
}

type Ruleset struct {
	Description string       `yaml:"description" mapstructure:"description"`
	Level       string       `yaml:"level" mapstructure:"level"` // "error" or "warning"
	Rules       []RuleConfig `yaml:"rules" mapstructure:"rules"`
}

// RuleConfig declares one predicate. Op and Value are only used by size rules.
type RuleConfig struct {
	Type   string  `yaml:"type" mapstructure:"type"` // size, unique, complete, non_negative
	Column string  `yaml:"column,omitempty" mapstructure:"column"`
	Op     string  `yaml:"op,omitempty" mapstructure:"op"` // >=, >, ==, <=, <
	Value  float64 `yaml:"value,omitempty" mapstructure:"value"`
	Hint   string  `yaml:"hint,omitempty" mapstructure:"hint"`
}

type Facts struct {
	GuardReruns bool `yaml:"guard_reruns" mapstructure:"guard_reruns"`
}

type Dimension struct {
	OpenSentinel  string `yaml:"open_sentinel" mapstructure:"open_sentinel"` // YYYY-MM-DD
	DetectChanges bool   `yaml:"detect_changes" mapstructure:"detect_changes"`
}

type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	Job            string `yaml:"job" mapstructure:"job"`
}
