package quality

import (
	"fmt"
	"math"

	"bookingetl/internal/dataset"
)

// CheckLevel is the severity attached to a check
type CheckLevel string

const (
	LevelError   CheckLevel = "Error"
	LevelWarning CheckLevel = "Warning"
)

// Check groups constraints evaluated against one table
type Check struct {
	Level       CheckLevel
	Description string
	constraints []constraint
}

type constraint struct {
	name string
	hint string
	eval func(t *dataset.Table) outcome
}

type outcome struct {
	passed  bool
	metric  float64
	message string
}

// NewCheck creates an empty check
func NewCheck(level CheckLevel, description string) *Check {
	return &Check{Level: level, Description: description}
}

// Constraints returns the constraint names in declaration order
func (c *Check) Constraints() []string {
	names := make([]string, len(c.constraints))
	for i, con := range c.constraints {
		names[i] = con.name
	}
	return names
}

func (c *Check) add(name, hint string, eval func(*dataset.Table) outcome) *Check {
	c.constraints = append(c.constraints, constraint{name: name, hint: hint, eval: eval})
	return c
}

// HasSize asserts on the row count. description names the assertion, e.g. ">= 1".
func (c *Check) HasSize(assertion func(size int) bool, description string) *Check {
	return c.add(fmt.Sprintf("size(%s)", description), "", func(t *dataset.Table) outcome {
		size := t.Len()
		if assertion(size) {
			return outcome{passed: true, metric: float64(size)}
		}
		return outcome{
			metric:  float64(size),
			message: fmt.Sprintf("Value: %d does not meet the constraint requirement %s", size, description),
		}
	})
}

// IsUnique requires every row to hold a value of column that no other row
// holds. Null values count as not unique.
func (c *Check) IsUnique(column, hint string) *Check {
	return c.add(fmt.Sprintf("unique(%s)", column), hint, func(t *dataset.Table) outcome {
		values, ok := t.Values(column)
		if !ok {
			return missingColumn(column)
		}

		counts := make(map[string]int, len(values))
		nulls := 0
		for _, v := range values {
			if v == nil {
				nulls++
				continue
			}
			counts[dataset.FormatValue(v)]++
		}

		unique := 0
		duplicated := 0
		for _, n := range counts {
			if n == 1 {
				unique++
			} else {
				duplicated++
			}
		}

		metric := ratio(unique, len(values))
		if unique == len(values) {
			return outcome{passed: true, metric: metric}
		}
		return outcome{
			metric: metric,
			message: fmt.Sprintf("Value: %s does not meet the constraint requirement (%d duplicated values, %d nulls)",
				formatMetric(metric), duplicated, nulls),
		}
	})
}

// IsComplete requires column to hold no nulls.
func (c *Check) IsComplete(column, hint string) *Check {
	return c.add(fmt.Sprintf("complete(%s)", column), hint, func(t *dataset.Table) outcome {
		values, ok := t.Values(column)
		if !ok {
			return missingColumn(column)
		}

		nulls := 0
		for _, v := range values {
			if v == nil {
				nulls++
			}
		}

		metric := ratio(len(values)-nulls, len(values))
		if nulls == 0 {
			return outcome{passed: true, metric: metric}
		}
		return outcome{
			metric:  metric,
			message: fmt.Sprintf("Value: %s does not meet the constraint requirement (%d nulls)", formatMetric(metric), nulls),
		}
	})
}

// IsNonNegative requires every non-null value of column to be a number >= 0.
func (c *Check) IsNonNegative(column, hint string) *Check {
	return c.add(fmt.Sprintf("non_negative(%s)", column), hint, func(t *dataset.Table) outcome {
		values, ok := t.Values(column)
		if !ok {
			return missingColumn(column)
		}

		violations := 0
		for _, v := range values {
			switch val := v.(type) {
			case nil:
			case int64:
				if val < 0 {
					violations++
				}
			case float64:
				if val < 0 || math.IsNaN(val) {
					violations++
				}
			default:
				violations++
			}
		}

		metric := ratio(len(values)-violations, len(values))
		if violations == 0 {
			return outcome{passed: true, metric: metric}
		}
		return outcome{
			metric: metric,
			message: fmt.Sprintf("Value: %s does not meet the constraint requirement (%d negative or non-numeric values)",
				formatMetric(metric), violations),
		}
	})
}

func missingColumn(column string) outcome {
	return outcome{message: fmt.Sprintf("Input data does not include column %s", column)}
}

// ratio is 1 for an empty table
func ratio(n, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(n) / float64(total)
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
