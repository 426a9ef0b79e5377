package transform

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bookingetl/pkg/models"
)

// Stats counts what happened to the bookings of one run
type Stats struct {
	Input       int
	Unmatched   int
	NonPositive int
	Output      int
}

// Join enriches every booking with each customer sharing its customer_id.
// Bookings without a matching customer are dropped, as are bookings and
// customers with an empty customer_id.
func Join(bookings []models.BookingRecord, customers []models.CustomerRecord, ingestedAt time.Time) ([]models.TransformedBooking, int) {
	byID := make(map[string][]models.CustomerRecord, len(customers))
	for _, c := range customers {
		if c.CustomerID == "" {
			continue
		}
		byID[c.CustomerID] = append(byID[c.CustomerID], c)
	}

	unmatched := 0
	rows := make([]models.TransformedBooking, 0, len(bookings))
	for _, b := range bookings {
		matches := byID[b.CustomerID]
		if b.CustomerID == "" || len(matches) == 0 {
			unmatched++
			continue
		}
		for _, c := range matches {
			rows = append(rows, models.TransformedBooking{
				BookingRecord: b,
				IngestionTime: ingestedAt,
				Customer:      c,
				TotalCost:     TotalCost(b.Amount, b.Discount),
			})
		}
	}
	return rows, unmatched
}

// TotalCost is amount minus discount. It is null when either side is null.
func TotalCost(amount, discount decimal.NullDecimal) decimal.NullDecimal {
	if !amount.Valid || !discount.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amount.Decimal.Sub(discount.Decimal))
}

// Transform joins, derives total_cost and keeps rows with a positive quantity.
func Transform(bookings []models.BookingRecord, customers []models.CustomerRecord, ingestedAt time.Time) ([]models.TransformedBooking, Stats) {
	joined, unmatched := Join(bookings, customers, ingestedAt)

	stats := Stats{Input: len(bookings), Unmatched: unmatched}
	rows := joined[:0]
	for _, row := range joined {
		if row.Quantity <= 0 {
			stats.NonPositive++
			continue
		}
		rows = append(rows, row)
	}
	stats.Output = len(rows)
	return rows, stats
}

// Aggregate sums total_cost and quantity per (booking_type, customer_id).
// Null total_cost values are skipped. Output is sorted by key.
func Aggregate(rows []models.TransformedBooking) []models.FactAggregate {
	sums := make(map[models.FactKey]*models.FactAggregate)
	for _, row := range rows {
		key := models.FactKey{BookingType: row.BookingType, CustomerID: row.CustomerID}
		agg, ok := sums[key]
		if !ok {
			agg = &models.FactAggregate{BookingType: key.BookingType, CustomerID: key.CustomerID}
			sums[key] = agg
		}
		if row.TotalCost.Valid {
			agg.TotalAmountSum = agg.TotalAmountSum.Add(row.TotalCost.Decimal)
		}
		agg.TotalQuantitySum += row.Quantity
	}
	return Sorted(sums)
}

// Sorted flattens aggregates ordered by booking_type then customer_id.
func Sorted(sums map[models.FactKey]*models.FactAggregate) []models.FactAggregate {
	out := make([]models.FactAggregate, 0, len(sums))
	for _, agg := range sums {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingType != out[j].BookingType {
			return out[i].BookingType < out[j].BookingType
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}
