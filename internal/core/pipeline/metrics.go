package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "recipe_importer"

// Metrics 匯入流程指標
type Metrics struct {
	ChunksProcessed    prometheus.Counter
	ExtractionFailures *prometheus.CounterVec
	CandidatesRejected *prometheus.CounterVec
	DuplicatesDropped  prometheus.Counter
	RecipesEmitted     prometheus.Counter
	ImportDuration     *prometheus.HistogramVec
}

// NewMetrics 建立並註冊指標；reg 為 nil 時不註冊
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chunks_processed_total",
			Help:      "Number of text chunks sent through extraction.",
		}),
		ExtractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "extraction_failures_total",
			Help:      "Chunk extraction failures by error kind.",
		}, []string{"kind"}),
		CandidatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "candidates_rejected_total",
			Help:      "Candidate recipes dropped during normalization by reason.",
		}, []string{"reason"}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicates_dropped_total",
			Help:      "Candidate recipes discarded as duplicates.",
		}),
		RecipesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recipes_emitted_total",
			Help:      "Recipes returned to callers after deduplication.",
		}),
		ImportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "import_duration_seconds",
			Help:      "End-to-end import duration by outcome.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ChunksProcessed,
			m.ExtractionFailures,
			m.CandidatesRejected,
			m.DuplicatesDropped,
			m.RecipesEmitted,
			m.ImportDuration,
		)
	}
	return m
}
