package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout of run dates and SCD validity bounds.
const DateLayout = "2006-01-02"

// OpenSentinel marks the current version of a dimension record.
var OpenSentinel = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// BookingRecord is one row of the daily bookings extract
type BookingRecord struct {
	BookingID   string
	CustomerID  string
	Amount      decimal.NullDecimal
	Quantity    int64
	Discount    decimal.NullDecimal
	BookingType string
}

// CustomerRecord is the current snapshot of a customer from the daily extract.
// ValidFrom is nil when the extract carries no valid_from column or value.
type CustomerRecord struct {
	CustomerID      string
	CustomerName    string
	CustomerAddress string
	PhoneNumber     string
	Email           string
	ValidFrom       *time.Time
}

// SameAttributes reports whether two snapshots carry identical attribute values.
func (c CustomerRecord) SameAttributes(other CustomerRecord) bool {
	return c.CustomerID == other.CustomerID &&
		c.CustomerName == other.CustomerName &&
		c.CustomerAddress == other.CustomerAddress &&
		c.PhoneNumber == other.PhoneNumber &&
		c.Email == other.Email
}

// TransformedBooking is a booking joined to its customer
type TransformedBooking struct {
	BookingRecord
	IngestionTime time.Time
	Customer      CustomerRecord
	TotalCost     decimal.NullDecimal
}

// FactKey identifies a row of the fact table
type FactKey struct {
	BookingType string
	CustomerID  string
}

// FactAggregate holds running totals for one (booking_type, customer_id)
type FactAggregate struct {
	BookingType      string
	CustomerID       string
	TotalAmountSum   decimal.Decimal
	TotalQuantitySum int64
}

func (f FactAggregate) Key() FactKey {
	return FactKey{BookingType: f.BookingType, CustomerID: f.CustomerID}
}

// CustomerDimensionRecord is one effective-dated version of a customer
type CustomerDimensionRecord struct {
	CustomerID      string
	CustomerName    string
	CustomerAddress string
	PhoneNumber     string
	Email           string
	ValidFrom       time.Time
	ValidTo         time.Time
}

// IsOpen reports whether the record is the current version.
func (r CustomerDimensionRecord) IsOpen(sentinel time.Time) bool {
	return r.ValidTo.Equal(sentinel)
}

// Attributes returns the customer snapshot carried by the record.
func (r CustomerDimensionRecord) Attributes() CustomerRecord {
	return CustomerRecord{
		CustomerID:      r.CustomerID,
		CustomerName:    r.CustomerName,
		CustomerAddress: r.CustomerAddress,
		PhoneNumber:     r.PhoneNumber,
		Email:           r.Email,
	}
}
