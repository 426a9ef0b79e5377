package scd

import (
	"sort"
	"time"

	"bookingetl/pkg/models"
)

// Options tune how a batch is applied to the dimension
type Options struct {
	// Sentinel is the valid_to of open records. Zero means models.OpenSentinel.
	Sentinel time.Time
	// DetectChanges skips customers whose attributes equal their open record.
	DetectChanges bool
}

// Close ends the open record of a customer
type Close struct {
	CustomerID string
	ValidTo    time.Time
}

// Plan is the set of writes that moves the dimension to its next state
type Plan struct {
	// Initial is set when no dimension table exists yet; Appends then form
	// the whole table.
	Initial   bool
	Closes    []Close
	Appends   []models.CustomerDimensionRecord
	Unchanged int
}

// Empty reports whether the plan writes nothing
func (p Plan) Empty() bool {
	return len(p.Closes) == 0 && len(p.Appends) == 0
}

// Apply plans a Type 2 update of the customer dimension. Every incoming
// customer becomes a new open record valid from its own valid_from, or from
// effectiveDate when it has none. An existing open record of the same
// customer is closed on that date. Duplicate incoming ids keep the last row.
func Apply(existing []models.CustomerDimensionRecord, exists bool, incoming []models.CustomerRecord, effectiveDate time.Time, opts Options) Plan {
	sentinel := opts.Sentinel
	if sentinel.IsZero() {
		sentinel = models.OpenSentinel
	}

	customers := latestByID(incoming)
	plan := Plan{Initial: !exists}

	open := make(map[string]models.CustomerDimensionRecord)
	if exists {
		for _, rec := range existing {
			if rec.IsOpen(sentinel) {
				open[rec.CustomerID] = rec
			}
		}
	}

	for _, c := range customers {
		validFrom := dateOf(effectiveDate)
		if c.ValidFrom != nil {
			validFrom = dateOf(*c.ValidFrom)
		}

		if current, ok := open[c.CustomerID]; ok {
			if opts.DetectChanges && current.Attributes().SameAttributes(c) {
				plan.Unchanged++
				continue
			}
			plan.Closes = append(plan.Closes, Close{CustomerID: c.CustomerID, ValidTo: validFrom})
		}

		plan.Appends = append(plan.Appends, models.CustomerDimensionRecord{
			CustomerID:      c.CustomerID,
			CustomerName:    c.CustomerName,
			CustomerAddress: c.CustomerAddress,
			PhoneNumber:     c.PhoneNumber,
			Email:           c.Email,
			ValidFrom:       validFrom,
			ValidTo:         sentinel,
		})
	}
	return plan
}

// OpenConflicts returns the customer ids holding more than one open record,
// sorted.
func OpenConflicts(records []models.CustomerDimensionRecord, sentinel time.Time) []string {
	counts := make(map[string]int)
	for _, rec := range records {
		if rec.IsOpen(sentinel) {
			counts[rec.CustomerID]++
		}
	}

	var ids []string
	for id, n := range counts {
		if n > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func latestByID(incoming []models.CustomerRecord) []models.CustomerRecord {
	pos := make(map[string]int, len(incoming))
	out := make([]models.CustomerRecord, 0, len(incoming))
	for _, c := range incoming {
		if c.CustomerID == "" {
			continue
		}
		if i, ok := pos[c.CustomerID]; ok {
			out[i] = c
			continue
		}
		pos[c.CustomerID] = len(out)
		out = append(out, c)
	}
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
