package dataset

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bookingetl/internal/common"
	"bookingetl/pkg/errors"
	"bookingetl/pkg/models"
)

const (
	BookingsTable  = "bookings"
	CustomersTable = "customers"
)

// Batch is the dated pair of extracts processed by one run
type Batch struct {
	Date          string
	BookingsPath  string
	CustomersPath string
	Bookings      *Table
	Customers     *Table
}

// Loader reads dated extracts from a directory
type Loader struct {
	Dir              string
	BookingsPattern  string
	CustomersPattern string
	Log              *zap.Logger
}

// NewLoader creates a loader from the source configuration
func NewLoader(cfg models.Source, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		Dir:              cfg.Dir,
		BookingsPattern:  cfg.BookingsPattern,
		CustomersPattern: cfg.CustomersPattern,
		Log:              log,
	}
}

// ParseDate validates a run date in YYYY-MM-DD form.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid run date "+date).
			WithContext("date", date).
			WithSuggestions("Use the YYYY-MM-DD format, e.g. 2024-07-25")
	}
	return t, nil
}

// Paths resolves the bookings and customers extract paths for date.
func (l *Loader) Paths(date string) (string, string, error) {
	bookings, err := common.DatedPath(l.Dir, l.BookingsPattern, date)
	if err != nil {
		return "", "", errors.ConfigError(err.Error(), "source.bookings_pattern")
	}
	customers, err := common.DatedPath(l.Dir, l.CustomersPattern, date)
	if err != nil {
		return "", "", errors.ConfigError(err.Error(), "source.customers_pattern")
	}
	return bookings, customers, nil
}

// Load reads both extracts for date.
func (l *Loader) Load(ctx context.Context, date string) (*Batch, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	bookingsPath, customersPath, err := l.Paths(date)
	if err != nil {
		return nil, err
	}

	bookings, err := ReadFile(ctx, bookingsPath, BookingsTable)
	if err != nil {
		return nil, err
	}
	l.Log.Info("loaded extract",
		zap.String("table", BookingsTable),
		zap.String("path", bookingsPath),
		zap.Int("rows", bookings.Len()),
		zap.Int("columns", len(bookings.Schema)))

	customers, err := ReadFile(ctx, customersPath, CustomersTable)
	if err != nil {
		return nil, err
	}
	l.Log.Info("loaded extract",
		zap.String("table", CustomersTable),
		zap.String("path", customersPath),
		zap.Int("rows", customers.Len()),
		zap.Int("columns", len(customers.Schema)))

	return &Batch{
		Date:          date,
		BookingsPath:  bookingsPath,
		CustomersPath: customersPath,
		Bookings:      bookings,
		Customers:     customers,
	}, nil
}
