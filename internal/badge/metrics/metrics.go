package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the badge module. Methods are nil-safe
// so services can run without a registry in tests.
type Metrics struct {
	BadgesIssued       *prometheus.CounterVec
	Verifications      *prometheus.CounterVec
	CheckIns           *prometheus.CounterVec
	StoreCallDuration  *prometheus.HistogramVec
	VerifyDuration     prometheus.Histogram
	DirectoryLookupErr prometheus.Counter
}

// New registers the badge metrics with the default registry. Call once per process.
func New() *Metrics {
	return &Metrics{
		BadgesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgepass_badges_issued_total",
			Help: "Badge issuance attempts by outcome",
		}, []string{"outcome"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgepass_verifications_total",
			Help: "Badge verifications by outcome and rejection reason",
		}, []string{"outcome", "reason"}),
		CheckIns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "badgepass_checkins_total",
			Help: "Session check-ins by outcome",
		}, []string{"outcome"}),
		StoreCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgepass_store_call_duration_seconds",
			Help:    "Duration of badge store calls",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"operation"}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgepass_verify_duration_seconds",
			Help:    "Duration of Verify operations (scanner critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DirectoryLookupErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "badgepass_directory_lookup_errors_total",
			Help: "Participant directory lookups that failed for infrastructure reasons",
		}),
	}
}

func (m *Metrics) RecordIssue(outcome string) {
	if m == nil {
		return
	}
	m.BadgesIssued.WithLabelValues(outcome).Inc()
}

// RecordVerification counts one verification. reason is empty when verified.
func (m *Metrics) RecordVerification(outcome, reason string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) RecordCheckIn(outcome string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(outcome).Inc()
}

// ObserveStoreCall records a store call duration. Call with time.Now() at the start.
func (m *Metrics) ObserveStoreCall(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveVerify(start time.Time) {
	if m == nil {
		return
	}
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementDirectoryError() {
	if m == nil {
		return
	}
	m.DirectoryLookupErr.Inc()
}
