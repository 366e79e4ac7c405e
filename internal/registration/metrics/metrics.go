package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
// Tracks workflow throughput, slot churn, and critical path durations.
type Metrics struct {
	RegistrationsCreated   prometheus.Counter
	RegistrationsCompleted prometheus.Counter
	StepAdvanced           *prometheus.CounterVec
	GateApproved           *prometheus.CounterVec
	DocumentsAttached      *prometheus.CounterVec
	TransitionRejected     *prometheus.CounterVec
	UpdateDuration         prometheus.Histogram
	UploadDuration         prometheus.Histogram
	CacheHits              prometheus.Counter
	CacheMisses            prometheus.Counter
}

// New creates a Metrics instance with all registration module metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_registrations_created_total",
			Help: "Total number of registrations created",
		}),
		RegistrationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_registrations_completed_total",
			Help: "Total number of registrations that reached completion",
		}),
		StepAdvanced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_step_advanced_total",
			Help: "Workflow advances by the step reached",
		}, []string{"step"}),
		GateApproved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_gate_approved_total",
			Help: "Approval gates raised, by gate",
		}, []string{"gate"}),
		DocumentsAttached: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_documents_attached_total",
			Help: "Document slot writes, by slot",
		}, []string{"slot"}),
		TransitionRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_transition_rejected_total",
			Help: "Workflow operations rejected, by reason code",
		}, []string{"reason"}),
		UpdateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "regdesk_registration_update_duration_seconds",
			Help:    "Duration of serialized registration updates",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "regdesk_attachment_upload_duration_seconds",
			Help:    "Duration of blob uploads on the attachment path",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_registration_cache_hits_total",
			Help: "Registration reads served from the cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_registration_cache_misses_total",
			Help: "Registration reads that fell through to the store",
		}),
	}
}

// ObserveUpdate records the duration of one serialized update.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpdate(start time.Time) {
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}

// ObserveUpload records the duration of one blob upload.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpload(start time.Time) {
	m.UploadDuration.Observe(time.Since(start).Seconds())
}
