package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStoreCallRecordsSeconds(t *testing.T) {
	m := &Metrics{
		StoreCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "test_store_call_duration_seconds",
			Buckets: []float64{0.5, 1, 2},
		}, []string{"operation"}),
	}

	m.ObserveStoreCall("append_attendance", time.Now().Add(-1500*time.Millisecond))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StoreCallDuration))

	var out dto.Metric
	h := m.StoreCallDuration.WithLabelValues("append_attendance").(prometheus.Metric)
	require.NoError(t, h.Write(&out))
	assert.Equal(t, uint64(1), out.GetHistogram().GetSampleCount())
	assert.InDelta(t, 1.5, out.GetHistogram().GetSampleSum(), 0.5, "observed in seconds")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStoreCall("append_attendance", time.Now())
		m.ObserveVerify(time.Now())
		m.RecordCheckIn("success")
		m.RecordIssue("issued")
		m.RecordVerification("rejected", "expired")
		m.IncrementDirectoryError()
	})
}
