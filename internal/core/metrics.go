package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmimport_runs_total",
		Help: "The total number of finished import runs by outcome",
	}, []string{"schema", "outcome"})

	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmimport_records_total",
		Help: "The total number of records seen by status (created, rejected, duplicate)",
	}, []string{"schema", "status"})

	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crmimport_classifications_total",
		Help: "The total number of classifier calls by result (filled, empty, failed)",
	}, []string{"schema", "result"})

	CommitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crmimport_commit_duration_seconds",
		Help:    "Time taken by the bulk create call",
		Buckets: prometheus.DefBuckets,
	}, []string{"schema", "success"})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crmimport_active_runs",
		Help: "The number of import runs held in memory",
	})
)

func recordRun(schema string, rep Report, dedup DedupResult, sum Summary) {
	if sum.DryRun {
		return
	}
	RunsTotal.WithLabelValues(schema, string(sum.Outcome)).Inc()
	RecordsTotal.WithLabelValues(schema, "rejected").Add(float64(rep.Invalid))
	RecordsTotal.WithLabelValues(schema, "duplicate").Add(float64(dedup.DuplicateCount))
	RecordsTotal.WithLabelValues(schema, "created").Add(float64(sum.Imported))
}

func recordClassification(schema string, stats EnrichStats) {
	ClassificationsTotal.WithLabelValues(schema, "filled").Add(float64(stats.Filled))
	ClassificationsTotal.WithLabelValues(schema, "failed").Add(float64(stats.Failed))
	ClassificationsTotal.WithLabelValues(schema, "empty").Add(float64(stats.Requested - stats.Filled - stats.Failed))
}

func observeCommit(schema string, d time.Duration, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	CommitLatency.WithLabelValues(schema, label).Observe(d.Seconds())
}
