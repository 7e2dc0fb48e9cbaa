package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "ottgen_"

// Parse outcomes as reported by a discovery run.
const (
	ParseQueued           = "queued"
	ParseSkippedProvider  = "skipped_provider"
	ParseSkippedImages    = "skipped_images"
	ParseSkippedDuplicate = "skipped_duplicate"
	ParseFailed           = "failed"
)

// Generation outcomes per candidate.
const (
	GenerationSubmitted = "submitted"
	GenerationGenerated = "generated"
	GenerationFailed    = "failed"
)

var parseItemsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "parse_items_total",
		Help: "Discovered catalog items by parse outcome",
	},
	[]string{"media_kind", "outcome"},
)

var parseRunDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    prefix + "parse_run_duration_seconds",
		Help:    "Wall time of a discovery run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
)

var generationCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "generation_total",
		Help: "Candidates handed to the generation gateway by outcome",
	},
	[]string{"outcome"},
)

var lockContentionCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "generation_lock_lost_total",
		Help: "Claims lost to a concurrent claimer",
	},
)

var enrichCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "enrich_total",
		Help: "Overview enrichment attempts by reason",
	},
	[]string{"reason"},
)

var archiveFailureCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "payload_archive_failures_total",
		Help: "Payloads that could not be written to the archive",
	},
)

var remainingQuotaGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: prefix + "daily_quota_remaining",
		Help: "Generations left for the current UTC day",
	},
)

var candidatesGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: prefix + "candidates",
		Help: "Candidates per lifecycle status",
	},
	[]string{"status"},
)

// Metrics records pipeline outcomes. The zero value is ready to use.
type Metrics struct{}

var m = &Metrics{}

// Get returns the process-wide metrics recorder.
func Get() *Metrics {
	return m
}

func (m *Metrics) RecordParseItem(mediaKind, outcome string) {
	parseItemsCounter.With(prometheus.Labels{"media_kind": mediaKind, "outcome": outcome}).Inc()
}

func (m *Metrics) RecordParseRun(d time.Duration) {
	parseRunDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordGeneration(outcome string) {
	generationCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func (m *Metrics) RecordLockLost() {
	lockContentionCounter.Inc()
}

func (m *Metrics) RecordEnrich(reason string) {
	enrichCounter.With(prometheus.Labels{"reason": reason}).Inc()
}

func (m *Metrics) RecordArchiveFailure() {
	archiveFailureCounter.Inc()
}

func (m *Metrics) SetRemainingQuota(n int) {
	remainingQuotaGauge.Set(float64(n))
}

// SetCandidateCounts replaces the per-status gauge values.
func (m *Metrics) SetCandidateCounts(counts map[string]int64) {
	for status, n := range counts {
		candidatesGauge.With(prometheus.Labels{"status": status}).Set(float64(n))
	}
}
