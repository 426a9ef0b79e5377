package quality

import (
	"fmt"
	"strings"

	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

// Rule types accepted in rulesets
const (
	RuleSize        = "size"
	RuleUnique      = "unique"
	RuleComplete    = "complete"
	RuleNonNegative = "non_negative"
)

// DefaultQuality returns the rulesets applied when the configuration
// declares none.
func DefaultQuality() models.Quality {
	return models.Quality{
		Bookings: models.Ruleset{
			Description: "quality check for bookings data",
			Level:       "error",
			Rules: []models.RuleConfig{
				{Type: RuleSize, Op: ">=", Value: 1},
				{Type: RuleUnique, Column: "booking_id", Hint: "Booking ID is not unique throughout"},
				{Type: RuleComplete, Column: "customer_id"},
				{Type: RuleComplete, Column: "amount"},
				{Type: RuleNonNegative, Column: "amount"},
				{Type: RuleNonNegative, Column: "quantity"},
				{Type: RuleNonNegative, Column: "discount"},
			},
		},
		Customers: models.Ruleset{
			Description: "quality check for customers data",
			Level:       "error",
			Rules: []models.RuleConfig{
				{Type: RuleSize, Op: ">", Value: 0},
				{Type: RuleUnique, Column: "customer_id"},
				{Type: RuleComplete, Column: "customer_name"},
				{Type: RuleComplete, Column: "customer_address"},
				{Type: RuleComplete, Column: "phone_number"},
				{Type: RuleComplete, Column: "email"},
			},
		},
	}
}

// BuildCheck turns a declarative ruleset into a Check. field is the
// configuration path used in error messages, e.g. "quality.bookings".
func BuildCheck(field string, rs models.Ruleset) (*Check, error) {
	level, err := parseLevel(rs.Level)
	if err != nil {
		return nil, errors.ConfigError(err.Error(), field+".level")
	}
	if len(rs.Rules) == 0 {
		return nil, errors.ConfigError("ruleset declares no rules", field+".rules")
	}

	check := NewCheck(level, rs.Description)
	for i, rule := range rs.Rules {
		ruleField := fmt.Sprintf("%s.rules[%d]", field, i)
		kind := strings.ToLower(strings.TrimSpace(rule.Type))

		if kind != RuleSize && strings.TrimSpace(rule.Column) == "" {
			return nil, errors.ConfigError(fmt.Sprintf("%s rule requires a column", kind), ruleField+".column")
		}

		switch kind {
		case RuleSize:
			assertion, desc, err := sizeAssertion(rule.Op, rule.Value)
			if err != nil {
				return nil, errors.ConfigError(err.Error(), ruleField+".op")
			}
			check.HasSize(assertion, desc)
		case RuleUnique:
			check.IsUnique(rule.Column, rule.Hint)
		case RuleComplete:
			check.IsComplete(rule.Column, rule.Hint)
		case RuleNonNegative:
			check.IsNonNegative(rule.Column, rule.Hint)
		default:
			return nil, errors.ConfigError(fmt.Sprintf("unknown rule type %q", rule.Type), ruleField+".type")
		}
	}
	return check, nil
}

func parseLevel(level string) (CheckLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "error":
		return LevelError, nil
	case "warning":
		return LevelWarning, nil
	default:
		return "", fmt.Errorf("unknown check level %q", level)
	}
}

func sizeAssertion(op string, value float64) (func(int) bool, string, error) {
	op = strings.TrimSpace(op)
	if op == "" {
		op = ">="
	}
	desc := fmt.Sprintf("%s %g", op, value)

	var fn func(float64) bool
	switch op {
	case ">=":
		fn = func(n float64) bool { return n >= value }
	case ">":
		fn = func(n float64) bool { return n > value }
	case "==":
		fn = func(n float64) bool { return n == value }
	case "!=":
		fn = func(n float64) bool { return n != value }
	case "<=":
		fn = func(n float64) bool { return n <= value }
	case "<":
		fn = func(n float64) bool { return n < value }
	default:
		return nil, "", fmt.Errorf("unknown size operator %q", op)
	}
	return func(size int) bool { return fn(float64(size)) }, desc, nil
}
