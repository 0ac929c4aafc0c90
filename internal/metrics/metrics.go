package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the audit service.
type Metrics struct {
	AuditsTotal   prometheus.Counter
	AuditsFailed  prometheus.Counter
	DedupHits     prometheus.Counter
	WALErrors     prometheus.Counter
	RateLimited   prometheus.Counter
	AuditDuration prometheus.Histogram

	StageFailures   *prometheus.CounterVec
	IssuesFound     *prometheus.CounterVec
	ComplianceScore prometheus.Histogram
}

// New creates and registers all metrics. Call it once per process;
// promauto panics on double registration.
func New() *Metrics {
	return &Metrics{
		AuditsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fl_audits_total",
			Help: "Total number of audit runs started",
		}),
		AuditsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fl_audits_failed",
			Help: "Number of audit runs that produced an overall FAILED status",
		}),
		DedupHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fl_dedup_hits",
			Help: "Number of duplicate audit submissions served from the result store",
		}),
		WALErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fl_wal_errors",
			Help: "Number of inbox WAL write errors",
		}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fl_rate_limited",
			Help: "Number of requests rejected by the rate limiter",
		}),
		AuditDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fl_audit_duration_seconds",
			Help:    "Wall-clock duration of complete audit runs",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		StageFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fl_stage_failures_total",
				Help: "Number of analysis stage failures by stage",
			},
			[]string{"stage"},
		),
		IssuesFound: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fl_issues_found_total",
				Help: "Number of audit issues raised by category",
			},
			[]string{"category"},
		),
		ComplianceScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fl_compliance_score",
			Help:    "Distribution of compliance scores across audit runs",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}
