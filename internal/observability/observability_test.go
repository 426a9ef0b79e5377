package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookingetl/pkg/models"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(models.Logging{Level: "debug", Format: "console"}, "bookingetl", "test")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger(models.Logging{Level: "loud"}, "bookingetl", "test")
	assert.Error(t, err)
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "json", normalizeFormat(""))
	assert.Equal(t, "json", normalizeFormat("JSON"))
	assert.Equal(t, "console", normalizeFormat("text"))
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.RowsLoaded.WithLabelValues("bookings").Add(3)
	m.RowsDropped.WithLabelValues("unmatched_customer").Inc()
	m.QualityFailures.WithLabelValues("bookings.unique(booking_id)").Inc()
	m.ObserveStage("load", time.Now().Add(-time.Second))
	m.LastSuccess.SetToCurrentTime()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("bookings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("unmatched_customer")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess), 0.0)

	expected := `
# HELP bookingetl_quality_failures_total Failed data quality constraints.
# TYPE bookingetl_quality_failures_total counter
bookingetl_quality_failures_total{check="bookings.unique(booking_id)"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "bookingetl_quality_failures_total"))
}

func TestNewPusherWithoutEndpoint(t *testing.T) {
	p := NewPusher("  ", "job", nil)
	assert.Nil(t, p)
	assert.NoError(t, p.Push(context.Background(), NewMetrics().Registry))
}

func TestPusherPush(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := NewMetrics()
	m.RowsLoaded.WithLabelValues("customers").Add(2)

	p := NewPusher(server.URL, "", map[string]string{"run_date": "2024-07-25", "": "skipped"})
	require.NotNil(t, p)
	require.NoError(t, p.Push(context.Background(), m.Registry))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/bookingetl/run_date/2024-07-25", path)
	assert.NotEmpty(t, body)
}
