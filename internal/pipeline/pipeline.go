package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookingetl/internal/dataset"
	"bookingetl/internal/facts"
	"bookingetl/internal/quality"
	"bookingetl/internal/scd"
	"bookingetl/internal/transform"
	"bookingetl/internal/warehouse"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

// FactStore reads and overwrites the fact table
type FactStore interface {
	Load(ctx context.Context) ([]models.FactAggregate, bool, error)
	Replace(ctx context.Context, rows []models.FactAggregate) error
}

// DimensionStore reads open records and applies SCD plans
type DimensionStore interface {
	LoadOpen(ctx context.Context, sentinel time.Time) ([]models.CustomerDimensionRecord, bool, error)
	Apply(ctx context.Context, plan scd.Plan, sentinel time.Time) error
}

// RunLog remembers completed run dates
type RunLog interface {
	HasCompleted(ctx context.Context, date time.Time) (bool, error)
	Record(ctx context.Context, rec warehouse.RunRecord) error
}

// Stores are the persistence targets of a run
type Stores struct {
	Facts     FactStore
	Dimension DimensionStore
	RunLog    RunLog
}

// StoresFrom returns the warehouse-backed stores of db
func StoresFrom(db *warehouse.DB) Stores {
	return Stores{
		Facts:     db.Facts(),
		Dimension: db.Dimension(),
		RunLog:    db.RunLog(),
	}
}

// Pipeline stage names used in logs and metrics
const (
	StageLoad      = "load"
	StageQuality   = "quality"
	StageTransform = "transform"
	StageFacts     = "facts"
	StageDimension = "dimension"
)

// RunOptions modify a single run
type RunOptions struct {
	// Force re-applies a date the run log already holds
	Force bool
}

// Validation is the outcome of loading and verifying one date
type Validation struct {
	Batch     *dataset.Batch
	Bookings  quality.VerificationResult
	Customers quality.VerificationResult
}

// DimensionSummary counts the SCD writes of a run
type DimensionSummary struct {
	TableExisted bool
	Closed       int
	Appended     int
	Unchanged    int
	Conflicts    []string
	// Appends are the versions written by the run
	Appends []models.CustomerDimensionRecord
}

// Report summarises a run
type Report struct {
	RunID            string
	Date             time.Time
	Validation       *Validation
	Transform        transform.Stats
	Aggregates       []models.FactAggregate
	FactRows         int
	FactTableExisted bool
	Dimension        DimensionSummary
	Duration         time.Duration
}

// Pipeline runs the daily booking load against a session
type Pipeline struct {
	session   *Session
	loader    *dataset.Loader
	bookings  *quality.Check
	customers *quality.Check
	stores    Stores
}

// New builds a pipeline. stores may be zero for validation-only use.
func New(session *Session, stores Stores) (*Pipeline, error) {
	cfg := session.Config

	bookings, err := quality.BuildCheck("quality.bookings", cfg.Quality.Bookings)
	if err != nil {
		return nil, err
	}
	customers, err := quality.BuildCheck("quality.customers", cfg.Quality.Customers)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		session:   session,
		loader:    dataset.NewLoader(cfg.Source, session.Log),
		bookings:  bookings,
		customers: customers,
		stores:    stores,
	}, nil
}

// Load reads the extracts of date without verifying them.
func (p *Pipeline) Load(ctx context.Context, date string) (*dataset.Batch, error) {
	start := time.Now()
	defer p.session.Metrics.ObserveStage(StageLoad, start)

	batch, err := p.loader.Load(ctx, date)
	if err != nil {
		return nil, err
	}
	p.session.Metrics.RowsLoaded.WithLabelValues(dataset.BookingsTable).Add(float64(batch.Bookings.Len()))
	p.session.Metrics.RowsLoaded.WithLabelValues(dataset.CustomersTable).Add(float64(batch.Customers.Len()))
	return batch, nil
}

// Validate loads and verifies the extracts of date. Both batches are always
// verified; the returned error is the quality gate decision.
func (p *Pipeline) Validate(ctx context.Context, date string) (*Validation, error) {
	batch, err := p.Load(ctx, date)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer p.session.Metrics.ObserveStage(StageQuality, start)

	v := &Validation{Batch: batch}
	if v.Bookings, err = quality.NewVerificationSuite().OnData(batch.Bookings).AddCheck(p.bookings).Run(ctx); err != nil {
		return nil, err
	}
	if v.Customers, err = quality.NewVerificationSuite().OnData(batch.Customers).AddCheck(p.customers).Run(ctx); err != nil {
		return nil, err
	}

	for _, result := range []quality.VerificationResult{v.Bookings, v.Customers} {
		for _, rule := range result.FailedRules() {
			p.session.Metrics.QualityFailures.WithLabelValues(rule).Inc()
		}
		p.session.Log.Info("Quality verification finished",
			zap.String("table", result.Table),
			zap.String("status", string(result.Status)),
			zap.Strings("failed_rules", result.FailedRules()),
		)
	}

	return v, quality.Gate(v.Bookings, v.Customers)
}

// Run processes the extracts of date end to end. Nothing is written unless
// both batches pass the quality gate.
func (p *Pipeline) Run(ctx context.Context, date string, opts RunOptions) (*Report, error) {
	started := time.Now()
	log := p.session.Log.With(zap.String("date", date))

	runDate, err := dataset.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if p.stores.Facts == nil || p.stores.Dimension == nil {
		return nil, errors.New(errors.ErrCodeInternal, "pipeline has no warehouse stores")
	}

	if err := p.checkRerun(ctx, runDate, opts); err != nil {
		return nil, err
	}

	report := &Report{RunID: p.session.ID, Date: runDate}

	validation, err := p.Validate(ctx, date)
	report.Validation = validation
	if err != nil {
		log.Error("Run stopped before any write", zap.Error(err))
		return report, err
	}

	bookings, err := dataset.DecodeBookings(validation.Batch.Bookings)
	if err != nil {
		return report, err
	}
	customers, err := dataset.DecodeCustomers(validation.Batch.Customers)
	if err != nil {
		return report, err
	}

	transformStart := time.Now()
	rows, stats := transform.Transform(bookings, customers, p.session.Now())
	aggregates := transform.Aggregate(rows)
	p.session.Metrics.ObserveStage(StageTransform, transformStart)
	p.session.Metrics.RowsDropped.WithLabelValues("unmatched_customer").Add(float64(stats.Unmatched))
	p.session.Metrics.RowsDropped.WithLabelValues("non_positive_quantity").Add(float64(stats.NonPositive))
	report.Transform = stats
	report.Aggregates = aggregates

	log.Info("Transformed bookings",
		zap.Int("input", stats.Input),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("non_positive", stats.NonPositive),
		zap.Int("output", stats.Output),
		zap.Int("aggregates", len(aggregates)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer p.session.Metrics.ObserveStage(StageFacts, start)

		rows, existed, err := p.mergeFacts(gctx, aggregates)
		report.FactRows = rows
		report.FactTableExisted = existed
		return err
	})
	g.Go(func() error {
		start := time.Now()
		defer p.session.Metrics.ObserveStage(StageDimension, start)

		summary, err := p.applyDimension(gctx, customers, runDate)
		report.Dimension = summary
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("Run failed while writing", zap.Error(err))
		return report, err
	}

	if p.stores.RunLog != nil {
		err := p.stores.RunLog.Record(ctx, warehouse.RunRecord{
			Date:             runDate,
			RunID:            p.session.ID,
			CompletedAt:      p.session.Now(),
			FactRows:         report.FactRows,
			DimensionAppends: report.Dimension.Appended,
			DimensionCloses:  report.Dimension.Closed,
		})
		if err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(started)
	p.session.Metrics.LastSuccess.SetToCurrentTime()
	log.Info("Run completed",
		zap.Int("fact_rows", report.FactRows),
		zap.Int("dimension_appended", report.Dimension.Appended),
		zap.Int("dimension_closed", report.Dimension.Closed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (p *Pipeline) checkRerun(ctx context.Context, runDate time.Time, opts RunOptions) error {
	if !p.session.Config.Facts.GuardReruns || p.stores.RunLog == nil {
		return nil
	}

	done, err := p.stores.RunLog.HasCompleted(ctx, runDate)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}
	if opts.Force {
		p.session.Log.Warn("Re-applying a date that already completed; fact totals will include it twice",
			zap.String("date", runDate.Format(models.DateLayout)))
		return nil
	}

	date := runDate.Format(models.DateLayout)
	return errors.New(errors.ErrCodeAlreadyProcessed, fmt.Sprintf("Extracts for %s have already been applied", date)).
		WithContext("date", date).
		WithSeverity(errors.SeverityWarning).
		WithSuggestions("Pass --force to apply them again")
}

func (p *Pipeline) mergeFacts(ctx context.Context, fresh []models.FactAggregate) (int, bool, error) {
	existing, exists, err := p.stores.Facts.Load(ctx)
	if err != nil {
		return 0, false, err
	}

	merged := facts.Merge(existing, exists, fresh)
	if err := p.stores.Facts.Replace(ctx, merged); err != nil {
		return 0, exists, err
	}
	return len(merged), exists, nil
}

func (p *Pipeline) applyDimension(ctx context.Context, customers []models.CustomerRecord, runDate time.Time) (DimensionSummary, error) {
	sentinel := p.session.Sentinel

	open, exists, err := p.stores.Dimension.LoadOpen(ctx, sentinel)
	if err != nil {
		return DimensionSummary{}, err
	}

	summary := DimensionSummary{TableExisted: exists, Conflicts: scd.OpenConflicts(open, sentinel)}
	if len(summary.Conflicts) > 0 {
		p.session.Log.Warn("Customers with more than one open dimension record",
			zap.Strings("customer_ids", summary.Conflicts))
	}

	plan := scd.Apply(open, exists, customers, runDate, scd.Options{
		Sentinel:      sentinel,
		DetectChanges: p.session.Config.Dimension.DetectChanges,
	})
	if err := p.stores.Dimension.Apply(ctx, plan, sentinel); err != nil {
		return summary, err
	}

	summary.Closed = len(plan.Closes)
	summary.Appended = len(plan.Appends)
	summary.Unchanged = plan.Unchanged
	summary.Appends = plan.Appends
	return summary, nil
}
