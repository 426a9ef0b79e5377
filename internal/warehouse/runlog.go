package warehouse

import (
	"context"
	"fmt"
	"time"

	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

// RunRecord describes a completed run
type RunRecord struct {
	Date             time.Time
	RunID            string
	CompletedAt      time.Time
	FactRows         int
	DimensionAppends int
	DimensionCloses  int
}

// RunLog records which extract dates have been applied
type RunLog struct {
	db    *DB
	table string
}

// Table returns the qualified table name
func (l *RunLog) Table() string {
	return l.db.qualified(l.table)
}

// HasCompleted reports whether a run for date has been recorded.
func (l *RunLog) HasCompleted(ctx context.Context, date time.Time) (bool, error) {
	ctx, cancel := l.db.context(ctx)
	defer cancel()

	exists, err := l.db.tableExists(ctx, l.table)
	if err != nil || !exists {
		return false, err
	}

	query := l.db.dialect.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE run_date = CAST(? AS DATE)", l.Table()))
	var n int64
	if err := l.db.db.QueryRowContext(ctx, query, date.Format(models.DateLayout)).Scan(&n); err != nil {
		return false, errors.SQLError("Failed to read run log", query, err)
	}
	return n > 0, nil
}

// Record appends a completed run.
func (l *RunLog) Record(ctx context.Context, rec RunRecord) error {
	ctx, cancel := l.db.context(ctx)
	defer cancel()

	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (run_date DATE, run_id VARCHAR, completed_at TIMESTAMP, fact_rows BIGINT, dimension_appends BIGINT, dimension_closes BIGINT)",
		l.Table())
	if err := l.db.exec(ctx, "Failed to create run log", create); err != nil {
		return err
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (run_date, run_id, completed_at, fact_rows, dimension_appends, dimension_closes) VALUES (CAST(? AS DATE), ?, CAST(? AS TIMESTAMP), ?, ?, ?)",
		l.Table())
	return l.db.exec(ctx, "Failed to record run", insert,
		rec.Date.Format(models.DateLayout),
		rec.RunID,
		rec.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		rec.FactRows,
		rec.DimensionAppends,
		rec.DimensionCloses,
	)
}
