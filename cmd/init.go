package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookingetl/internal/config"
	"bookingetl/internal/warehouse"
)

var initFlags struct {
	force     bool
	driver    string
	sourceDir string
	dsn       string
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Long: `Write the default configuration, including the default quality rules, to
path (bookingetl.yaml when omitted). An existing file is kept unless --force
is given.`,
	Example: `  bookingetl init
  bookingetl init --driver postgres --dsn postgres://etl@localhost/bookings`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initFlags.force, "force", "f", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&initFlags.driver, "driver", warehouse.DriverDuckDB, "warehouse driver (duckdb, snowflake, postgres)")
	initCmd.Flags().StringVar(&initFlags.sourceDir, "source", ".", "directory holding the dated extracts")
	initCmd.Flags().StringVar(&initFlags.dsn, "dsn", "", "warehouse connection string")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := newUI(cmd)

	path := config.FileName + ".yaml"
	if len(args) > 0 {
		path = args[0]
	}

	cfg := config.Default()
	cfg.Source.Dir = initFlags.sourceDir
	cfg.Warehouse.Driver = initFlags.driver
	cfg.Warehouse.DSN = initFlags.dsn
	if cfg.Warehouse.Driver == warehouse.DriverSnowflake {
		cfg.Warehouse.PasswordFromKeyring = true
	}

	if _, _, err := warehouse.DSN(cfg.Warehouse); err != nil && cfg.Warehouse.Driver != warehouse.DriverSnowflake {
		return err
	}

	if err := config.Save(&cfg, path, initFlags.force); err != nil {
		return err
	}

	out.Success(fmt.Sprintf("Configuration written to %s", path))
	if cfg.Warehouse.Driver == warehouse.DriverSnowflake {
		out.Info("Set warehouse.account and warehouse.username, then run 'bookingetl credentials set'")
	}
	return nil
}
