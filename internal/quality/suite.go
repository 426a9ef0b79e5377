package quality

import (
	"context"
	"fmt"

	"bookingetl/internal/dataset"
	"bookingetl/pkg/errors"
)

// Status is the outcome of a check or a verification run
type Status string

const (
	StatusSuccess Status = "Success"
	StatusWarning Status = "Warning"
	StatusError   Status = "Error"
)

// ConstraintStatus is the outcome of a single constraint
type ConstraintStatus string

const (
	ConstraintSuccess ConstraintStatus = "Success"
	ConstraintFailure ConstraintStatus = "Failure"
)

// ConstraintResult reports one evaluated constraint
type ConstraintResult struct {
	Rule       string // <table>.<constraint>
	Check      string
	Level      CheckLevel
	Constraint string
	Status     ConstraintStatus
	Metric     float64
	Message    string
	Hint       string
}

// CheckResult aggregates the constraint results of one check
type CheckResult struct {
	Description string
	Level       CheckLevel
	Status      Status
	Constraints []ConstraintResult
}

// VerificationResult is the outcome of running a suite against one table
type VerificationResult struct {
	Table  string
	Rows   int
	Status Status
	Checks []CheckResult
}

// ConstraintResults flattens every constraint result in check order.
func (r VerificationResult) ConstraintResults() []ConstraintResult {
	var out []ConstraintResult
	for _, check := range r.Checks {
		out = append(out, check.Constraints...)
	}
	return out
}

// FailedRules returns the names of every failed constraint.
func (r VerificationResult) FailedRules() []string {
	var failed []string
	for _, cr := range r.ConstraintResults() {
		if cr.Status == ConstraintFailure {
			failed = append(failed, cr.Rule)
		}
	}
	return failed
}

// VerificationSuite runs checks against a table
type VerificationSuite struct {
	data   *dataset.Table
	checks []*Check
}

// NewVerificationSuite creates an empty suite
func NewVerificationSuite() *VerificationSuite {
	return &VerificationSuite{}
}

// OnData sets the table to verify
func (s *VerificationSuite) OnData(t *dataset.Table) *VerificationSuite {
	s.data = t
	return s
}

// AddCheck appends a check to the suite
func (s *VerificationSuite) AddCheck(c *Check) *VerificationSuite {
	s.checks = append(s.checks, c)
	return s
}

// Run evaluates every constraint of every check. A failing constraint does
// not stop the evaluation of the others.
func (s *VerificationSuite) Run(ctx context.Context) (VerificationResult, error) {
	if s.data == nil {
		return VerificationResult{}, errors.New(errors.ErrCodeInternal, "verification suite has no data")
	}

	result := VerificationResult{Table: s.data.Name, Rows: s.data.Len(), Status: StatusSuccess}
	for _, check := range s.checks {
		if err := ctx.Err(); err != nil {
			return VerificationResult{}, err
		}

		cr := CheckResult{Description: check.Description, Level: check.Level, Status: StatusSuccess}
		for _, con := range check.constraints {
			out := con.eval(s.data)
			res := ConstraintResult{
				Rule:       fmt.Sprintf("%s.%s", s.data.Name, con.name),
				Check:      check.Description,
				Level:      check.Level,
				Constraint: con.name,
				Status:     ConstraintSuccess,
				Metric:     out.metric,
				Hint:       con.hint,
			}
			if !out.passed {
				res.Status = ConstraintFailure
				res.Message = out.message
				cr.Status = failureStatus(check.Level)
			}
			cr.Constraints = append(cr.Constraints, res)
		}

		result.Checks = append(result.Checks, cr)
		result.Status = worse(result.Status, cr.Status)
	}

	return result, nil
}

func failureStatus(level CheckLevel) Status {
	if level == LevelWarning {
		return StatusWarning
	}
	return StatusError
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusSuccess: 0, StatusWarning: 1, StatusError: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Gate fails with a DataQualityError naming every failed rule across all
// results when any result is not Success.
func Gate(results ...VerificationResult) error {
	var failed []string
	passed := true
	for _, r := range results {
		if r.Status != StatusSuccess {
			passed = false
		}
		failed = append(failed, r.FailedRules()...)
	}
	if passed {
		return nil
	}
	return errors.DataQualityError(failed)
}
