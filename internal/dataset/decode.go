package dataset

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

// Required columns of each extract
var (
	BookingColumns  = []string{"booking_id", "customer_id", "amount", "quantity", "discount", "booking_type"}
	CustomerColumns = []string{"customer_id", "customer_name", "customer_address", "phone_number", "email"}
)

const validFromColumn = "valid_from"

// DecodeBookings converts the bookings table into records.
func DecodeBookings(t *Table) ([]models.BookingRecord, error) {
	if missing := t.MissingColumns(BookingColumns...); len(missing) > 0 {
		return nil, errors.SchemaMismatchError(t.Name, missing)
	}
	for _, name := range []string{"amount", "quantity", "discount"} {
		if err := requireNumeric(t, name); err != nil {
			return nil, err
		}
	}

	idx := columnIndexes(t, BookingColumns)
	records := make([]models.BookingRecord, 0, t.Len())
	for _, row := range t.Rows {
		quantity, err := toInt64(row[idx["quantity"]])
		if err != nil {
			return nil, errors.ColumnTypeError(t.Name, "quantity", "fractional double", "integer")
		}
		records = append(records, models.BookingRecord{
			BookingID:   toText(row[idx["booking_id"]]),
			CustomerID:  toText(row[idx["customer_id"]]),
			Amount:      toNullDecimal(row[idx["amount"]]),
			Quantity:    quantity,
			Discount:    toNullDecimal(row[idx["discount"]]),
			BookingType: toText(row[idx["booking_type"]]),
		})
	}
	return records, nil
}

// DecodeCustomers converts the customers table into records. The optional
// valid_from column may hold dates, timestamps or YYYY-MM-DD text.
func DecodeCustomers(t *Table) ([]models.CustomerRecord, error) {
	if missing := t.MissingColumns(CustomerColumns...); len(missing) > 0 {
		return nil, errors.SchemaMismatchError(t.Name, missing)
	}

	idx := columnIndexes(t, CustomerColumns)
	validFrom := t.ColumnIndex(validFromColumn)

	records := make([]models.CustomerRecord, 0, t.Len())
	for _, row := range t.Rows {
		rec := models.CustomerRecord{
			CustomerID:      toText(row[idx["customer_id"]]),
			CustomerName:    toText(row[idx["customer_name"]]),
			CustomerAddress: toText(row[idx["customer_address"]]),
			PhoneNumber:     toText(row[idx["phone_number"]]),
			Email:           toText(row[idx["email"]]),
		}
		if validFrom >= 0 && row[validFrom] != nil {
			day, err := toDate(row[validFrom])
			if err != nil {
				col := t.Schema[validFrom]
				return nil, errors.ColumnTypeError(t.Name, validFromColumn, string(col.Type), "date")
			}
			rec.ValidFrom = &day
		}
		records = append(records, rec)
	}
	return records, nil
}

func columnIndexes(t *Table, names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		idx[name] = t.ColumnIndex(name)
	}
	return idx
}

func requireNumeric(t *Table, name string) error {
	col, _ := t.Column(name)
	// an all-null column infers as string
	if col.Type.IsNumeric() {
		return nil
	}
	values, _ := t.Values(name)
	for _, v := range values {
		if v != nil {
			return errors.ColumnTypeError(t.Name, name, string(col.Type), "numeric")
		}
	}
	return nil
}

func toText(v any) string {
	if v == nil {
		return ""
	}
	return FormatValue(v)
}

func toNullDecimal(v any) decimal.NullDecimal {
	switch val := v.(type) {
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(val))
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(val))
	default:
		return decimal.NullDecimal{}
	}
}

func toInt64(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, strconv.ErrSyntax
		}
		return int64(val), nil
	default:
		return 0, strconv.ErrSyntax
	}
}

func toDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		y, m, d := val.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case string:
		return time.Parse(models.DateLayout, val)
	default:
		return time.Time{}, strconv.ErrSyntax
	}
}
