package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookingetl/internal/pipeline"
)

var validateFlags struct {
	date string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Verify the extracts of one date without writing anything",
	Long: `Load the extracts of a date and run the quality rules against both batches.
The warehouse is not contacted. The exit status is non-zero when any rule fails.`,
	Example: `  bookingetl validate --date 2024-07-25`,
	Args:    cobra.NoArgs,
	RunE:    runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFlags.date, "date", "d", "", "extract date (YYYY-MM-DD)")
	_ = validateCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := newUI(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	session, err := pipeline.NewSession(cmd.Context(), cfg, pipeline.SessionOptions{
		Service: serviceName,
		Version: Version,
	})
	if err != nil {
		return err
	}
	defer closeSession(session)

	p, err := pipeline.New(session, pipeline.Stores{})
	if err != nil {
		return err
	}

	v, err := p.Validate(cmd.Context(), validateFlags.date)
	if v != nil {
		renderValidation(out, v)
	}
	if err != nil {
		return err
	}

	out.Success(fmt.Sprintf("Extracts for %s passed every quality rule", validateFlags.date))
	return nil
}
