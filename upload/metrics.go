package upload

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeOK = "OK"

// Metrics records per-file outcomes and batch latency. A nil *Metrics is a no-op.
type Metrics struct {
	files    *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Uploaded file parts by outcome code.",
		}, []string{"code"}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "upload",
			Name:      "batches_total",
			Help:      "Upload batches by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "upload",
			Name:      "batch_duration_seconds",
			Help:      "Time from first part to commit decision.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) observe(out *Outcome, result string, elapsed time.Duration) {
	if m == nil {
		return
	}

	for range out.Uploaded {
		m.files.WithLabelValues(outcomeOK).Inc()
	}
	for _, e := range out.Errors {
		m.files.WithLabelValues(string(e.Code)).Inc()
	}
	m.batches.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}
