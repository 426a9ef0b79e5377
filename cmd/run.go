package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookingetl/internal/dataset"
	"bookingetl/internal/pipeline"
	"bookingetl/internal/ui"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

var runFlags struct {
	date  string
	force bool
	yes   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load, verify and apply the extracts of one date",
	Long: `Load the bookings and customers extracts of a date, verify both against the
configured quality rules and, when they pass, merge the aggregated bookings
into the fact table and version the customer dimension.

Nothing is written when any quality rule fails. A date that already completed
is refused unless --force is given, because fact totals are summed.`,
	Example: `  bookingetl run --date 2024-07-25
  bookingetl run --date 2024-07-25 --force --yes`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.date, "date", "d", "", "extract date (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runFlags.force, "force", false, "apply a date that already completed")
	runCmd.Flags().BoolVarP(&runFlags.yes, "yes", "y", false, "do not ask for confirmation")
	_ = runCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	out := newUI(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if runFlags.force && !runFlags.yes && prompter.Interactive() {
		ok, err := prompter.Confirm(
			fmt.Sprintf("Re-apply the extracts for %s?", runFlags.date),
			"Fact totals are summed, so bookings of this date will be counted again.",
			false,
		)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrCodeAborted, "Run aborted").WithSeverity(errors.SeverityInfo)
		}
	}

	session, err := pipeline.NewSession(cmd.Context(), cfg, pipeline.SessionOptions{
		Service:       serviceName,
		Version:       Version,
		OpenWarehouse: true,
	})
	if err != nil {
		return err
	}
	defer closeSession(session)

	p, err := pipeline.New(session, pipeline.StoresFrom(session.DB))
	if err != nil {
		return err
	}

	out.Header(fmt.Sprintf("Booking load %s", runFlags.date))
	report, err := p.Run(cmd.Context(), runFlags.date, pipeline.RunOptions{Force: runFlags.force})
	if report != nil && report.Validation != nil && (err != nil || out.IsVerbose()) {
		renderValidation(out, report.Validation)
	}
	if err != nil {
		return err
	}

	printReport(out, report)
	out.Success(fmt.Sprintf("Extracts for %s applied", report.Date.Format(models.DateLayout)))
	return nil
}

func closeSession(session *pipeline.Session) {
	if err := session.Close(context.Background()); err != nil {
		session.Log.Warn("Failed to close session", zap.Error(err))
	}
}

func renderValidation(out *ui.UI, v *pipeline.Validation) {
	if out.IsQuiet() {
		return
	}
	out.Section("Quality verification")
	ui.RenderVerification(out.Out, v.Bookings)
	ui.RenderVerification(out.Out, v.Customers)
}

func printReport(out *ui.UI, report *pipeline.Report) {
	out.Section("Transform")
	out.KeyValue("Bookings read", report.Transform.Input)
	out.KeyValue("Without customer", report.Transform.Unmatched)
	out.KeyValue("Non-positive quantity", report.Transform.NonPositive)
	out.KeyValue("Bookings aggregated", report.Transform.Output)

	out.Section("Warehouse")
	out.KeyValue("Fact rows", report.FactRows)
	if !report.FactTableExisted {
		out.KeyValue("Fact table", "created")
	}
	out.KeyValue("Dimension closed", report.Dimension.Closed)
	out.KeyValue("Dimension appended", report.Dimension.Appended)
	if report.Dimension.Unchanged > 0 {
		out.KeyValue("Dimension unchanged", report.Dimension.Unchanged)
	}
	if len(report.Dimension.Conflicts) > 0 {
		out.Warning(fmt.Sprintf("%d customers had more than one open dimension record", len(report.Dimension.Conflicts)))
	}
	if out.IsVerbose() {
		showSamples(out, report)
	}
	out.VerbosePrintf("Run %s took %s\n", report.RunID, report.Duration)
}

const sampleRows = 5

// showSamples prints the first aggregates and dimension versions of a run.
func showSamples(out *ui.UI, report *pipeline.Report) {
	aggregates := make([][]any, len(report.Aggregates))
	for i, a := range report.Aggregates {
		aggregates[i] = []any{a.BookingType, a.CustomerID, a.TotalAmountSum.String(), a.TotalQuantitySum}
	}
	versions := make([][]any, len(report.Dimension.Appends))
	for i, r := range report.Dimension.Appends {
		versions[i] = []any{r.CustomerID, r.CustomerName, r.CustomerAddress, r.PhoneNumber, r.Email, r.ValidFrom, r.ValidTo}
	}

	str := func(name string) dataset.Column { return dataset.Column{Name: name, Type: dataset.TypeString} }
	samples := []struct {
		title  string
		schema []dataset.Column
		rows   [][]any
	}{
		{"Aggregated bookings", []dataset.Column{
			str("booking_type"), str("customer_id"), str("total_amount_sum"),
			{Name: "total_quantity_sum", Type: dataset.TypeInteger},
		}, aggregates},
		{"New dimension versions", []dataset.Column{
			str("customer_id"), str("customer_name"), str("customer_address"), str("phone_number"), str("email"),
			{Name: "valid_from", Type: dataset.TypeDate}, {Name: "valid_to", Type: dataset.TypeDate},
		}, versions},
	}
	for _, sample := range samples {
		table, err := dataset.NewTable(sample.title, sample.schema, sample.rows)
		if err != nil {
			out.Warning(err.Error())
			continue
		}
		out.Section(sample.title)
		table.Show(out.Out, sampleRows)
	}
}
