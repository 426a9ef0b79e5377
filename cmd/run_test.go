package cmd

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"bookingetl/internal/pipeline"
	"bookingetl/internal/ui"
	"bookingetl/pkg/models"
)

func sampleReport(aggregates int) *pipeline.Report {
	report := &pipeline.Report{
		RunID:    "run-1",
		Date:     time.Date(2024, 7, 25, 0, 0, 0, 0, time.UTC),
		FactRows: aggregates,
		Dimension: pipeline.DimensionSummary{
			Appended: 1,
			Appends: []models.CustomerDimensionRecord{{
				CustomerID: "A", CustomerName: "Ann Lee", Email: "ann@example.com",
				ValidFrom: time.Date(2024, 7, 25, 0, 0, 0, 0, time.UTC),
				ValidTo:   models.OpenSentinel,
			}},
		},
	}
	for i := 0; i < aggregates; i++ {
		report.Aggregates = append(report.Aggregates, models.FactAggregate{
			BookingType:      "hotel",
			CustomerID:       fmt.Sprintf("C%d", i),
			TotalAmountSum:   decimal.RequireFromString("90.25"),
			TotalQuantitySum: 2,
		})
	}
	return report
}

func TestPrintReportVerboseShowsSamples(t *testing.T) {
	var b bytes.Buffer
	out := &ui.UI{Out: &b, Verbose: true}

	printReport(out, sampleReport(7))

	output := b.String()
	assert.Contains(t, output, "Aggregated bookings")
	assert.Contains(t, output, "90.25")
	assert.Contains(t, output, "C4")
	assert.NotContains(t, output, "C5")
	assert.Contains(t, output, "only showing top 5 rows of 7")
	assert.Contains(t, output, "New dimension versions")
	assert.Contains(t, output, "9999-12-31")
}

func TestPrintReportDefaultOmitsSamples(t *testing.T) {
	var b bytes.Buffer
	out := &ui.UI{Out: &b}

	printReport(out, sampleReport(2))

	output := b.String()
	assert.Contains(t, output, "Fact rows")
	assert.NotContains(t, output, "Aggregated bookings")
	assert.NotContains(t, output, "90.25")
}
