package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookingetl/internal/common"
)

// TestHelper provides common test utilities
type TestHelper struct {
	t *testing.T
}

// NewTestHelper creates a new test helper
func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// WriteFile writes content to a file in the given directory
func (h *TestHelper) WriteFile(dir, filename, content string) string {
	h.t.Helper()
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal); err != nil {
		h.t.Fatalf("Failed to create directories: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), common.FilePermissionNormal); err != nil {
		h.t.Fatalf("Failed to write file %s: %v", path, err)
	}

	return path
}

// WriteExtracts writes bookings_<date>.csv and customers_<date>.csv into dir.
func (h *TestHelper) WriteExtracts(dir, date, bookings, customers string) {
	h.t.Helper()
	h.WriteFile(dir, "bookings_"+date+".csv", bookings)
	h.WriteFile(dir, "customers_"+date+".csv", customers)
}

// CSV joins lines with newlines and appends a trailing newline.
func CSV(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// Canonical extracts used across package tests
var (
	BookingsHeader  = "booking_id,customer_id,amount,quantity,discount,booking_type"
	CustomersHeader = "customer_id,customer_name,customer_address,phone_number,email,valid_from"

	SampleBookings = CSV(
		BookingsHeader,
		"1,A,100,2,10,hotel",
	)
	SampleCustomers = CSV(
		CustomersHeader,
		`A,Ann Lee,"1 Main St, Springfield",555-0100,ann@example.com,2024-07-25`,
	)
)
