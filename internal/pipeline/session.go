package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookingetl/internal/config"
	"bookingetl/internal/observability"
	"bookingetl/internal/warehouse"
	"bookingetl/pkg/models"
)

// SessionOptions control what a session sets up
type SessionOptions struct {
	Service string
	Version string
	// OpenWarehouse connects to the configured warehouse
	OpenWarehouse bool
	// Logger replaces the logger built from the configuration
	Logger *zap.Logger
	// Clock replaces time.Now
	Clock func() time.Time
}

// Session is the execution context of one run. It is created when the run
// starts and released with Close when it ends.
type Session struct {
	ID       string
	Config   *models.Config
	Log      *zap.Logger
	Metrics  *observability.Metrics
	DB       *warehouse.DB
	Sentinel time.Time

	clock   func() time.Time
	pusher  *observability.Pusher
	ownsLog bool
}

// NewSession builds the logger, metrics and warehouse connection of a run.
func NewSession(ctx context.Context, cfg *models.Config, opts SessionOptions) (*Session, error) {
	sentinel, err := config.OpenSentinel(cfg.Dimension)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:       uuid.NewString(),
		Config:   cfg,
		Log:      opts.Logger,
		Metrics:  observability.NewMetrics(),
		Sentinel: sentinel,
		clock:    opts.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	if s.Log == nil {
		log, err := observability.NewLogger(cfg.Logging, opts.Service, opts.Version)
		if err != nil {
			return nil, err
		}
		s.Log = log
		s.ownsLog = true
	}
	s.Log = s.Log.With(zap.String("run_id", s.ID))

	s.pusher = observability.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, map[string]string{
		"instance": opts.Service,
	})

	if opts.OpenWarehouse {
		db, err := warehouse.Open(ctx, cfg.Warehouse, s.Log)
		if err != nil {
			return nil, err
		}
		s.DB = db
	}

	return s, nil
}

// Now returns the session clock time
func (s *Session) Now() time.Time {
	return s.clock()
}

// Close pushes metrics, closes the warehouse connection and flushes logs.
// It returns the first failure but always attempts every step.
func (s *Session) Close(ctx context.Context) error {
	var first error

	if err := s.pusher.Push(ctx, s.Metrics.Registry); err != nil {
		s.Log.Warn("Failed to push metrics", zap.Error(err))
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			first = err
		}
		s.DB = nil
	}

	if s.ownsLog {
		// stderr sync fails on some terminals
		_ = s.Log.Sync()
	}
	return first
}
