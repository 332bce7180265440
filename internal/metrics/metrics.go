package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "api_requests_total", Help: "Processed API requests",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jrpoints", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	EntriesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "entries_recorded_total", Help: "Ledger entries recorded",
	})
	EntriesReversed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "entries_reversed_total", Help: "Ledger entries reversed",
	})
	RulesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "rules_deleted_total", Help: "Award rules deleted with reversal",
	})
	RequestsReviewed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "requests_reviewed_total", Help: "Award requests reviewed",
	}, []string{"decision"})
	DisputesReviewed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "disputes_reviewed_total", Help: "Disputes reviewed",
	}, []string{"decision"})
	Rollovers = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jrpoints", Name: "period_rollovers_total", Help: "Period snapshots taken",
	})
	AggregateDrift = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jrpoints", Name: "aggregate_drift_subjects", Help: "Subjects whose cached totals diverge from entry sums",
	})
)

func init() {
	prometheus.MustRegister(APIRequests, HandlerErrors, DBPing,
		EntriesRecorded, EntriesReversed, RulesDeleted,
		RequestsReviewed, DisputesReviewed, Rollovers, AggregateDrift)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
