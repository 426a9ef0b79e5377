package observability

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "bookingetl"

// Metrics holds the instruments of one run. Each run owns its registry so
// that the pushed group describes that run only.
type Metrics struct {
	Registry *prometheus.Registry

	RowsLoaded      *prometheus.CounterVec
	RowsDropped     *prometheus.CounterVec
	QualityFailures *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	LastSuccess     prometheus.Gauge
}

// NewMetrics creates and registers the run instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows read from the daily extracts.",
		}, []string{"batch"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Booking rows removed during transformation.",
		}, []string{"reason"}),
		QualityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_failures_total",
			Help:      "Failed data quality constraints.",
		}, []string{"check"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}
	m.Registry.MustRegister(m.RowsLoaded, m.RowsDropped, m.QualityFailures, m.StageDuration, m.LastSuccess)
	return m
}

// ObserveStage records the time elapsed since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Pusher sends a registry to a Prometheus Pushgateway
type Pusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

// NewPusher returns nil when endpoint is empty.
func NewPusher(endpoint, job string, grouping map[string]string) *Pusher {
	if strings.TrimSpace(endpoint) == "" {
		return nil
	}
	job = strings.TrimSpace(job)
	if job == "" {
		job = namespace
	}
	return &Pusher{endpoint: endpoint, job: job, grouping: grouping}
}

// Push replaces the metrics of this job and grouping on the gateway.
func (p *Pusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(registry)
	for key, value := range p.grouping {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}
	return pusher.PushContext(ctx)
}
