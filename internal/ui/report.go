package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"bookingetl/internal/quality"
)

// RenderVerification writes one row per evaluated constraint.
func RenderVerification(w io.Writer, result quality.VerificationResult) {
	fmt.Fprintf(w, "%s: %s (%d rows)\n", result.Table, statusText(string(result.Status)), result.Rows)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Constraint", "Level", "Status", "Metric", "Message"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, cr := range result.ConstraintResults() {
		message := cr.Message
		if cr.Hint != "" && cr.Status == quality.ConstraintFailure {
			message = strings.TrimSpace(message + " " + cr.Hint)
		}
		table.Append([]string{
			cr.Constraint,
			string(cr.Level),
			statusText(string(cr.Status)),
			fmt.Sprintf("%.4g", cr.Metric),
			message,
		})
	}
	table.Render()
}

func statusText(status string) string {
	if !supportsColor {
		return status
	}
	switch status {
	case string(quality.StatusSuccess):
		return color.GreenString(status)
	case string(quality.StatusWarning):
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}
