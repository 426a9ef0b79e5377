package facts

import (
	"bookingetl/internal/transform"
	"bookingetl/pkg/models"
)

// Merge combines persisted aggregates with the fresh ones of this run.
// When no persisted table exists the fresh aggregates are returned as they
// are. Otherwise both sides are unioned and re-summed per key, producing the
// full replacement for the persisted table.
func Merge(existing []models.FactAggregate, exists bool, fresh []models.FactAggregate) []models.FactAggregate {
	if !exists {
		out := make([]models.FactAggregate, len(fresh))
		copy(out, fresh)
		return out
	}

	sums := make(map[models.FactKey]*models.FactAggregate, len(existing)+len(fresh))
	add := func(rows []models.FactAggregate) {
		for _, row := range rows {
			agg, ok := sums[row.Key()]
			if !ok {
				agg = &models.FactAggregate{BookingType: row.BookingType, CustomerID: row.CustomerID}
				sums[row.Key()] = agg
			}
			agg.TotalAmountSum = agg.TotalAmountSum.Add(row.TotalAmountSum)
			agg.TotalQuantitySum += row.TotalQuantitySum
		}
	}
	add(existing)
	add(fresh)

	return transform.Sorted(sums)
}
