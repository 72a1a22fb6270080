package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	examTransitions     *prometheus.CounterVec
	resultCalculations  *prometheus.CounterVec
	resumptionDecisions *prometheus.CounterVec
	admissionDecisions  *prometheus.CounterVec
	mailDispatches      *prometheus.CounterVec
	mediaUploads        *prometheus.CounterVec
	mediaUploadLatency  prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exam_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		examTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_enrollment_transitions_total",
			Help: "Enrollment state transitions by target status.",
		}, []string{"status"})

		resultCalculations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_result_calculations_total",
			Help: "Result calculations by outcome.",
		}, []string{"outcome"})

		resumptionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_resumption_requests_total",
			Help: "Resumption workflow events by action.",
		}, []string{"action"})

		admissionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_admission_submissions_total",
			Help: "Admission form events by action.",
		}, []string{"action"})

		mailDispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_mail_dispatch_total",
			Help: "Outbound mail jobs by kind and outcome.",
		}, []string{"kind", "outcome"})

		mediaUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_media_uploads_total",
			Help: "Question media uploads by outcome.",
		}, []string{"outcome"})

		mediaUploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exam_media_upload_latency_seconds",
			Help:    "Latency of question media uploads.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			examTransitions,
			resultCalculations,
			resumptionDecisions,
			admissionDecisions,
			mailDispatches,
			mediaUploads,
			mediaUploadLatency,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// EnrollmentTransitions counts status changes of enrollments.
func EnrollmentTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return examTransitions
}

// ResultCalculations counts scoring runs; outcome is success or failure.
func ResultCalculations() *prometheus.CounterVec {
	RegisterMetrics()
	return resultCalculations
}

// ResumptionEvents counts resumption requests, approvals and rejections.
func ResumptionEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return resumptionDecisions
}

// AdmissionEvents counts admission submissions and decisions.
func AdmissionEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return admissionDecisions
}

// MailDispatches counts outbound mail jobs.
func MailDispatches() *prometheus.CounterVec {
	RegisterMetrics()
	return mailDispatches
}

// MediaUploads counts media uploads; outcome is stored or the rejection reason.
func MediaUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return mediaUploads
}

// MediaUploadLatency exposes the upload latency histogram.
func MediaUploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return mediaUploadLatency
}
