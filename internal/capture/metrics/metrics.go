// Package metrics provides observability for the capture module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the capture pipeline.
type Metrics struct {
	// Validation verdicts by outcome ("accepted"/"rejected") and reason.
	ValidationVerdicts *prometheus.CounterVec

	// Per-side transfer durations.
	UploadDuration *prometheus.HistogramVec

	// Terminal workflow outcomes by status ("complete"/"error"/"cancelled").
	UploadsFinished *prometheus.CounterVec

	// Preview handles currently live; a non-zero value at idle means a leak.
	LivePreviewHandles prometheus.GaugeFunc
}

// New creates and registers all capture metrics. liveHandles reports the
// preview manager's live-handle count.
func New(liveHandles func() int64) *Metrics {
	return &Metrics{
		ValidationVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_capture_validation_verdicts_total",
			Help: "Validation verdicts by outcome and rejection reason",
		}, []string{"outcome", "reason"}),

		UploadDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veridoc_capture_upload_duration_seconds",
			Help:    "Duration of one side's upload operation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"side"}),

		UploadsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veridoc_capture_uploads_finished_total",
			Help: "Terminal capture workflow outcomes by status",
		}, []string{"status"}),

		LivePreviewHandles: promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "veridoc_capture_live_preview_handles",
			Help: "Preview handles attached but not yet released",
		}, func() float64 {
			if liveHandles == nil {
				return 0
			}
			return float64(liveHandles())
		}),
	}
}

// ObserveVerdict records a validation outcome. Reason is empty for accepts.
func (m *Metrics) ObserveVerdict(outcome, reason string) {
	if m != nil {
		m.ValidationVerdicts.WithLabelValues(outcome, reason).Inc()
	}
}

// ObserveUpload records a side's transfer duration.
func (m *Metrics) ObserveUpload(side string, d time.Duration) {
	if m != nil {
		m.UploadDuration.WithLabelValues(side).Observe(d.Seconds())
	}
}

// ObserveFinished records a terminal workflow status.
func (m *Metrics) ObserveFinished(status string) {
	if m != nil {
		m.UploadsFinished.WithLabelValues(status).Inc()
	}
}
