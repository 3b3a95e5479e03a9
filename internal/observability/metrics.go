package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	extractionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apontador",
		Subsystem: "extract",
		Name:      "documents_total",
		Help:      "Documents extracted, labeled by the strategy that matched (none when empty).",
	}, []string{"strategy"})

	extractedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "apontador",
		Subsystem: "extract",
		Name:      "records_total",
		Help:      "Activity records recovered from documents.",
	})

	postAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apontador",
		Subsystem: "teamwork",
		Name:      "post_attempts_total",
		Help:      "Time entry post attempts, labeled by endpoint scope and outcome.",
	}, []string{"scope", "outcome"})

	postDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "apontador",
		Subsystem: "teamwork",
		Name:      "post_duration_seconds",
		Help:      "Time spent posting one time entry across all payload variants.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apontador",
		Subsystem: "teamwork",
		Name:      "fetch_failures_total",
		Help:      "Remote list calls that failed and degraded to an empty result.",
	}, []string{"resource"})

	batchEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apontador",
		Subsystem: "submission",
		Name:      "entries_total",
		Help:      "Records processed by batch submission, labeled by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(extractionCounter, extractedRecords, postAttempts, postDuration, fetchFailures, batchEntries)
}

// RecordExtraction counts one extracted document.
func RecordExtraction(strategy string, records int) {
	if strategy == "" {
		strategy = "none"
	}
	extractionCounter.WithLabelValues(strategy).Inc()
	extractedRecords.Add(float64(records))
}

// RecordPostAttempt counts one endpoint/payload attempt.
func RecordPostAttempt(scope string, ok bool) {
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	postAttempts.WithLabelValues(scope, outcome).Inc()
}

// ObservePost records the wall time spent on one entry.
func ObservePost(seconds float64) {
	postDuration.Observe(seconds)
}

// RecordFetchFailure counts a degraded remote list call.
func RecordFetchFailure(resource string) {
	fetchFailures.WithLabelValues(resource).Inc()
}

// RecordBatchEntry counts one processed record ("posted", "failed", "skipped").
func RecordBatchEntry(result string) {
	batchEntries.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
