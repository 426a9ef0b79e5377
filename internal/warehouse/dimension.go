package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookingetl/internal/scd"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

var dimensionColumns = []string{
	"customer_id", "customer_name", "customer_address", "phone_number", "email", "valid_from", "valid_to",
}

// DimensionStore persists the customer SCD Type 2 table
type DimensionStore struct {
	db    *DB
	table string
}

// Table returns the qualified table name
func (s *DimensionStore) Table() string {
	return s.db.qualified(s.table)
}

// LoadOpen reads the records whose valid_to equals sentinel.
func (s *DimensionStore) LoadOpen(ctx context.Context, sentinel time.Time) ([]models.CustomerDimensionRecord, bool, error) {
	ctx, cancel := s.db.context(ctx)
	defer cancel()

	exists, err := s.db.tableExists(ctx, s.table)
	if err != nil || !exists {
		return nil, false, err
	}

	exprs := make([]string, len(dimensionColumns))
	for i, col := range dimensionColumns {
		exprs[i] = fmt.Sprintf("CAST(%s AS VARCHAR)", col)
	}
	query := s.db.dialect.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE valid_to = CAST(? AS DATE)",
		strings.Join(exprs, ", "), s.Table()))

	rows, err := s.db.db.QueryContext(ctx, query, sentinel.Format(models.DateLayout))
	if err != nil {
		return nil, true, errors.SQLError("Failed to load open dimension records", query, err)
	}
	defer rows.Close()

	var out []models.CustomerDimensionRecord
	for rows.Next() {
		var id, name, address, phone, email, from, to sql.NullString
		if err := rows.Scan(&id, &name, &address, &phone, &email, &from, &to); err != nil {
			return nil, true, errors.SQLError("Failed to read dimension row", query, err)
		}

		rec := models.CustomerDimensionRecord{
			CustomerID:      id.String,
			CustomerName:    name.String,
			CustomerAddress: address.String,
			PhoneNumber:     phone.String,
			Email:           email.String,
		}
		if rec.ValidFrom, err = parseDate(from.String); err != nil {
			return nil, true, errors.Wrap(err, errors.ErrCodeSchemaMismatch, "Dimension table holds an invalid valid_from").
				WithContext("customer_id", rec.CustomerID)
		}
		if rec.ValidTo, err = parseDate(to.String); err != nil {
			return nil, true, errors.Wrap(err, errors.ErrCodeSchemaMismatch, "Dimension table holds an invalid valid_to").
				WithContext("customer_id", rec.CustomerID)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, true, errors.SQLError("Failed to read dimension table", query, err)
	}
	return out, true, nil
}

// Apply writes a plan: every close is a conditional update of the open
// record, then the new versions are appended. Both happen in one
// transaction so a customer never loses its open record.
func (s *DimensionStore) Apply(ctx context.Context, plan scd.Plan, sentinel time.Time) error {
	if plan.Empty() {
		return nil
	}

	ctx, cancel := s.db.context(ctx)
	defer cancel()

	if plan.Initial {
		create := fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (customer_id VARCHAR, customer_name VARCHAR, customer_address VARCHAR, phone_number VARCHAR, email VARCHAR, valid_from DATE, valid_to DATE)",
			s.Table())
		if err := s.db.exec(ctx, "Failed to create dimension table", create); err != nil {
			return err
		}
	}

	values := make([][]any, len(plan.Appends))
	for i, r := range plan.Appends {
		values[i] = []any{
			r.CustomerID, r.CustomerName, r.CustomerAddress, r.PhoneNumber, r.Email,
			r.ValidFrom.Format(models.DateLayout), r.ValidTo.Format(models.DateLayout),
		}
	}

	update := s.db.dialect.Rebind(fmt.Sprintf(
		"UPDATE %s SET valid_to = CAST(? AS DATE) WHERE customer_id = ? AND valid_to = CAST(? AS DATE)",
		s.Table()))
	open := sentinel.Format(models.DateLayout)

	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range plan.Closes {
			if _, err := tx.ExecContext(ctx, update, c.ValidTo.Format(models.DateLayout), c.CustomerID, open); err != nil {
				return errors.SQLError("Failed to close dimension record", update, err).
					WithContext("customer_id", c.CustomerID)
			}
		}
		return s.db.insertBatches(ctx, tx, s.Table(), dimensionColumns,
			"(?, ?, ?, ?, ?, CAST(? AS DATE), CAST(? AS DATE))", values)
	})
	if err != nil {
		return err
	}

	s.db.log.Info("Dimension updated",
		zap.String("table", s.Table()),
		zap.Bool("initial", plan.Initial),
		zap.Int("closed", len(plan.Closes)),
		zap.Int("appended", len(plan.Appends)),
	)
	return nil
}
