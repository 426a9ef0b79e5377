package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

var factColumns = []string{"booking_type", "customer_id", "total_amount_sum", "total_quantity_sum"}

var factColumnTypes = map[string]string{
	"booking_type":       "VARCHAR",
	"customer_id":        "VARCHAR",
	"total_amount_sum":   "DECIMAL(38,6)",
	"total_quantity_sum": "BIGINT",
}

// FactStore persists the booking fact table
type FactStore struct {
	db    *DB
	table string
}

// Table returns the qualified table name
func (s *FactStore) Table() string {
	return s.db.qualified(s.table)
}

// Load reads every persisted aggregate. exists is false when the table has
// not been created yet. Columns missing from the table read as empty keys
// and zero sums.
func (s *FactStore) Load(ctx context.Context) ([]models.FactAggregate, bool, error) {
	ctx, cancel := s.db.context(ctx)
	defer cancel()

	exists, err := s.db.tableExists(ctx, s.table)
	if err != nil || !exists {
		return nil, false, err
	}

	present, err := s.db.columns(ctx, s.table)
	if err != nil {
		return nil, true, err
	}

	exprs := make([]string, len(factColumns))
	for i, col := range factColumns {
		if present[col] {
			exprs[i] = fmt.Sprintf("CAST(%s AS VARCHAR)", col)
		} else {
			exprs[i] = "NULL"
			s.db.log.Warn("Fact table column missing, treating as zero",
				zap.String("table", s.Table()),
				zap.String("column", col),
			)
		}
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), s.Table())

	rows, err := s.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, true, errors.SQLError("Failed to load fact table", query, err)
	}
	defer rows.Close()

	var out []models.FactAggregate
	for rows.Next() {
		var kind, customer, amount, quantity sql.NullString
		if err := rows.Scan(&kind, &customer, &amount, &quantity); err != nil {
			return nil, true, errors.SQLError("Failed to read fact row", query, err)
		}

		agg := models.FactAggregate{BookingType: kind.String, CustomerID: customer.String}
		if amount.Valid {
			if agg.TotalAmountSum, err = decimal.NewFromString(strings.TrimSpace(amount.String)); err != nil {
				return nil, true, errors.Wrap(err, errors.ErrCodeSchemaMismatch, "Fact table holds a non-numeric total_amount_sum").
					WithContext("table", s.Table())
			}
		}
		if quantity.Valid {
			q, err := decimal.NewFromString(strings.TrimSpace(quantity.String))
			if err != nil {
				return nil, true, errors.Wrap(err, errors.ErrCodeSchemaMismatch, "Fact table holds a non-numeric total_quantity_sum").
					WithContext("table", s.Table())
			}
			if !q.Equal(q.Truncate(0)) {
				return nil, true, errors.New(errors.ErrCodeSchemaMismatch,
					fmt.Sprintf("Fact table holds a fractional total_quantity_sum %s", q)).
					WithContext("table", s.Table())
			}
			agg.TotalQuantitySum = q.IntPart()
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, true, errors.SQLError("Failed to read fact table", query, err)
	}
	return out, true, nil
}

// Replace overwrites the fact table with rows in a single transaction.
// Columns missing from an existing table are added first.
func (s *FactStore) Replace(ctx context.Context, rows []models.FactAggregate) error {
	ctx, cancel := s.db.context(ctx)
	defer cancel()

	defs := make([]string, len(factColumns))
	for i, col := range factColumns {
		defs[i] = col + " " + factColumnTypes[col]
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", s.Table(), strings.Join(defs, ", "))
	if err := s.db.exec(ctx, "Failed to create fact table", create); err != nil {
		return err
	}

	present, err := s.db.columns(ctx, s.table)
	if err != nil {
		return err
	}
	var missing []string
	for _, col := range factColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = []any{r.BookingType, r.CustomerID, r.TotalAmountSum.String(), r.TotalQuantitySum}
	}

	err = s.db.inTx(ctx, func(tx *sql.Tx) error {
		for _, col := range missing {
			alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", s.Table(), col, factColumnTypes[col])
			if _, err := tx.ExecContext(ctx, alter); err != nil {
				return errors.SQLError("Failed to add fact table column", alter, err).
					WithContext("column", col)
			}
			s.db.log.Warn("Added missing fact table column",
				zap.String("table", s.Table()),
				zap.String("column", col),
			)
		}

		del := fmt.Sprintf("DELETE FROM %s", s.Table())
		if _, err := tx.ExecContext(ctx, del); err != nil {
			return errors.SQLError("Failed to clear fact table", del, err)
		}
		return s.db.insertBatches(ctx, tx, s.Table(), factColumns, "(?, ?, CAST(? AS DECIMAL(38,6)), ?)", values)
	})
	if err != nil {
		return err
	}

	s.db.log.Info("Fact table replaced",
		zap.String("table", s.Table()),
		zap.Int("rows", len(rows)),
	)
	return nil
}
