package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bookingetl/internal/config"
)

var credentialsFlags struct {
	stdin bool
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the warehouse password in the OS keyring",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the warehouse password in the OS keyring",
	Long: `Store the password of warehouse.username in the OS keyring. Runs read it
when warehouse.password_from_keyring is true.`,
	Args: cobra.NoArgs,
	RunE: runCredentialsSet,
}

func init() {
	credentialsSetCmd.Flags().BoolVar(&credentialsFlags.stdin, "stdin", false, "read the password from stdin")

	credentialsCmd.AddCommand(credentialsSetCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	out := newUI(cmd)

	cfg, err := config.Read(config.NewViper(rootFlags.configFile))
	if err != nil {
		return err
	}

	var password string
	if credentialsFlags.stdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	} else {
		if password, err = prompter.Password(fmt.Sprintf("Password for %s:", cfg.Warehouse.Username)); err != nil {
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password is empty")
	}

	if err := config.StorePassword(cfg.Warehouse, password); err != nil {
		return err
	}
	out.Success(fmt.Sprintf("Password for %s stored in the OS keyring", cfg.Warehouse.Username))
	return nil
}
