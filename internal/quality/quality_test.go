package quality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookingetl/internal/dataset"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

func bookingsTable(t *testing.T, records ...[]string) *dataset.Table {
	t.Helper()
	table, err := dataset.FromRecords(dataset.BookingsTable, dataset.BookingColumns, records)
	require.NoError(t, err)
	return table
}

func customersTable(t *testing.T, records ...[]string) *dataset.Table {
	t.Helper()
	table, err := dataset.FromRecords(dataset.CustomersTable, dataset.CustomerColumns, records)
	require.NoError(t, err)
	return table
}

func defaultChecks(t *testing.T) (*Check, *Check) {
	t.Helper()
	q := DefaultQuality()
	bookings, err := BuildCheck("quality.bookings", q.Bookings)
	require.NoError(t, err)
	customers, err := BuildCheck("quality.customers", q.Customers)
	require.NoError(t, err)
	return bookings, customers
}

func run(t *testing.T, table *dataset.Table, check *Check) VerificationResult {
	t.Helper()
	result, err := NewVerificationSuite().OnData(table).AddCheck(check).Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestDefaultBookingsCheckPasses(t *testing.T) {
	bookingCheck, _ := defaultChecks(t)
	table := bookingsTable(t,
		[]string{"1", "A", "100", "2", "10", "hotel"},
		[]string{"2", "B", "50.5", "0", "", "flight"},
	)

	result := run(t, table, bookingCheck)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.FailedRules())
	assert.Len(t, result.ConstraintResults(), 7)
	assert.NoError(t, Gate(result))
}

func TestDuplicateBookingIDFails(t *testing.T) {
	bookingCheck, _ := defaultChecks(t)
	table := bookingsTable(t,
		[]string{"1", "A", "100", "2", "10", "hotel"},
		[]string{"1", "B", "20", "1", "0", "flight"},
		[]string{"2", "B", "20", "1", "0", "flight"},
	)

	result := run(t, table, bookingCheck)

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, []string{"bookings.unique(booking_id)"}, result.FailedRules())

	var unique ConstraintResult
	for _, cr := range result.ConstraintResults() {
		if cr.Constraint == "unique(booking_id)" {
			unique = cr
		}
	}
	assert.Equal(t, "Booking ID is not unique throughout", unique.Hint)
	assert.InDelta(t, 1.0/3.0, unique.Metric, 1e-9)
	assert.Contains(t, unique.Message, "1 duplicated values")

	err := Gate(result)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDataQuality, errors.GetErrorCode(err))
}

func TestEveryFailingRuleIsReported(t *testing.T) {
	bookingCheck, customerCheck := defaultChecks(t)
	bookings := bookingsTable(t,
		[]string{"1", "", "-5", "-1", "-2", "hotel"},
		[]string{"1", "A", "", "1", "0", "hotel"},
	)
	customers := customersTable(t,
		[]string{"A", "Ann", "1 Main St", "0100", ""},
	)

	bookingResult := run(t, bookings, bookingCheck)
	customerResult := run(t, customers, customerCheck)

	assert.ElementsMatch(t, []string{
		"bookings.unique(booking_id)",
		"bookings.complete(customer_id)",
		"bookings.complete(amount)",
		"bookings.non_negative(amount)",
		"bookings.non_negative(quantity)",
		"bookings.non_negative(discount)",
	}, bookingResult.FailedRules())

	err := Gate(bookingResult, customerResult)
	require.Error(t, err)
	rules := errors.FailedRules(err)
	assert.Len(t, rules, 7)
	assert.Contains(t, rules, "customers.complete(email)")
}

func TestEmptyBatchFailsSize(t *testing.T) {
	bookingCheck, customerCheck := defaultChecks(t)

	bookingResult := run(t, bookingsTable(t), bookingCheck)
	customerResult := run(t, customersTable(t), customerCheck)

	assert.Equal(t, []string{"bookings.size(>= 1)"}, bookingResult.FailedRules())
	assert.Equal(t, []string{"customers.size(> 0)"}, customerResult.FailedRules())
}

func TestMissingColumnFailsConstraint(t *testing.T) {
	table, err := dataset.FromRecords("customers", []string{"customer_id"}, [][]string{{"A"}})
	require.NoError(t, err)

	result := run(t, table, NewCheck(LevelError, "c").IsComplete("email", ""))

	require.Len(t, result.ConstraintResults(), 1)
	cr := result.ConstraintResults()[0]
	assert.Equal(t, ConstraintFailure, cr.Status)
	assert.Contains(t, cr.Message, "does not include column email")
}

func TestUniqueTreatsNullAsNotUnique(t *testing.T) {
	table := bookingsTable(t,
		[]string{"1", "A", "1", "1", "0", "hotel"},
		[]string{"", "A", "1", "1", "0", "hotel"},
	)

	result := run(t, table, NewCheck(LevelError, "c").IsUnique("booking_id", ""))
	assert.Equal(t, StatusError, result.Status)
}

func TestNonNegativeAllowsNulls(t *testing.T) {
	table := bookingsTable(t,
		[]string{"1", "A", "1", "1", "", "hotel"},
	)

	result := run(t, table, NewCheck(LevelError, "c").IsNonNegative("discount", ""))
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestNonNegativeRejectsText(t *testing.T) {
	table := bookingsTable(t,
		[]string{"1", "A", "free", "1", "0", "hotel"},
	)

	result := run(t, table, NewCheck(LevelError, "c").IsNonNegative("amount", ""))
	assert.Equal(t, StatusError, result.Status)
}

func TestWarningLevelStillFailsGate(t *testing.T) {
	table := bookingsTable(t)
	result := run(t, table, NewCheck(LevelWarning, "w").HasSize(func(n int) bool { return n > 0 }, "> 0"))

	assert.Equal(t, StatusWarning, result.Status)
	assert.Error(t, Gate(result))
}

func TestSuiteWithoutData(t *testing.T) {
	_, err := NewVerificationSuite().AddCheck(NewCheck(LevelError, "c")).Run(context.Background())
	assert.Error(t, err)
}

func TestBuildCheckValidation(t *testing.T) {
	tests := []struct {
		name  string
		rs    models.Ruleset
		field string
	}{
		{"no rules", models.Ruleset{}, "quality.bookings.rules"},
		{"bad level", models.Ruleset{Level: "fatal", Rules: []models.RuleConfig{{Type: "size"}}}, "quality.bookings.level"},
		{"unknown type", models.Ruleset{Rules: []models.RuleConfig{{Type: "pattern", Column: "email"}}}, "quality.bookings.rules[0].type"},
		{"missing column", models.Ruleset{Rules: []models.RuleConfig{{Type: "unique"}}}, "quality.bookings.rules[0].column"},
		{"bad operator", models.Ruleset{Rules: []models.RuleConfig{{Type: "size", Op: "=>"}}}, "quality.bookings.rules[0].op"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCheck("quality.bookings", tt.rs)
			require.Error(t, err)

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Context["field"])
		})
	}
}

func TestBuildCheckConstraintNames(t *testing.T) {
	check, err := BuildCheck("quality.bookings", models.Ruleset{
		Level: "warning",
		Rules: []models.RuleConfig{
			{Type: "size", Op: "<", Value: 1000},
			{Type: "Non_Negative", Column: "amount"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, LevelWarning, check.Level)
	assert.Equal(t, []string{"size(< 1000)", "non_negative(amount)"}, check.Constraints())
}
