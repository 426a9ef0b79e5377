package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bookingetl/internal/config"
	"bookingetl/internal/ui"
	"bookingetl/pkg/models"
)

const serviceName = "bookingetl"

var (
	rootFlags struct {
		configFile string
		verbose    bool
		quiet      bool
		noColor    bool
	}

	// prompter is replaced in tests
	prompter = ui.NewPrompter()

	rootCmd = &cobra.Command{
		Use:   "bookingetl",
		Short: "Load daily booking extracts into a warehouse",
		Long: `bookingetl loads the daily bookings and customers extracts, verifies them
against declarative quality rules, aggregates bookings into the booking fact
table and keeps the customer dimension as a type 2 slowly changing dimension.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if rootFlags.noColor {
				ui.SetColor(false)
			}
		},
	}
)

// Execute runs the root command. The caller maps the returned error to an
// exit status.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		(&ui.UI{Out: rootCmd.ErrOrStderr()}).Error(err)
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootFlags.configFile, "config", "c", "", "config file (default ./bookingetl.yaml or $HOME/.bookingetl/bookingetl.yaml)")
	flags.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "show detailed output")
	flags.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "only print errors")
	flags.BoolVar(&rootFlags.noColor, "no-color", false, "disable colored output")
	flags.String("source-dir", "", "directory holding the dated extracts")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, console)")
}

// newUI returns the output writer of cmd honouring --verbose and --quiet
func newUI(cmd *cobra.Command) *ui.UI {
	out := ui.NewUI(rootFlags.verbose, rootFlags.quiet)
	out.Out = cmd.OutOrStdout()
	return out
}

// loadConfig reads the configuration with command line overrides applied.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	v := config.NewViper(rootFlags.configFile)
	if err := bindFlags(v, cmd, map[string]string{
		"source.dir":     "source-dir",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// bindFlags binds the flags the user set explicitly so that unset flags do
// not shadow the config file.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}
