package cmd

import (
	"github.com/spf13/cobra"

	"bookingetl/internal/dataset"
	"bookingetl/internal/pipeline"
)

var inspectFlags struct {
	date string
	rows int
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the inferred schema and a sample of the extracts of one date",
	Example: `  bookingetl inspect --date 2024-07-25
  bookingetl inspect --date 2024-07-25 --rows 5`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFlags.date, "date", "d", "", "extract date (YYYY-MM-DD)")
	inspectCmd.Flags().IntVarP(&inspectFlags.rows, "rows", "n", 20, "number of rows to show")
	_ = inspectCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
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

	batch, err := p.Load(cmd.Context(), inspectFlags.date)
	if err != nil {
		return err
	}

	for _, item := range []struct {
		path  string
		table *dataset.Table
	}{
		{batch.BookingsPath, batch.Bookings},
		{batch.CustomersPath, batch.Customers},
	} {
		out.Section(item.table.Name)
		out.KeyValue("Path", item.path)
		out.KeyValue("Rows", item.table.Len())
		if err := item.table.PrintSchema(out.Out); err != nil {
			return err
		}
		item.table.Show(out.Out, inspectFlags.rows)
	}
	return nil
}
