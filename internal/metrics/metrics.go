package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts rewrite requests received from the wiki host
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realnames_requests_total",
		Help: "Total number of rewrite requests received",
	}, []string{"opportunity"})

	// ResolverLookupsTotal counts memo table lookups by table and result
	ResolverLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realnames_resolver_lookups_total",
		Help: "Total number of resolver lookups",
	}, []string{"table", "result"}) // table: "realname" or "pageid"; result: "hit" or "miss"

	// StoreErrorsTotal counts collaborator failures surfaced by the resolver
	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realnames_store_errors_total",
		Help: "Total number of account or page store errors",
	}, []string{"store"})

	// RewritesTotal counts rewrite outcomes per opportunity
	RewritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realnames_rewrites_total",
		Help: "Total number of rewrite opportunities by outcome",
	}, []string{"opportunity", "outcome"})

	// RewriteDuration tracks rewrite latency including collaborator calls
	RewriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "realnames_rewrite_duration_seconds",
		Help:    "Rewrite processing duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"opportunity"})
)

// RecordLookup records a resolver memo lookup
func RecordLookup(table string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ResolverLookupsTotal.WithLabelValues(table, result).Inc()
}

// RecordRewrite records the outcome and duration of one rewrite opportunity
func RecordRewrite(opportunity, outcome string, seconds float64) {
	RewritesTotal.WithLabelValues(opportunity, outcome).Inc()
	RewriteDuration.WithLabelValues(opportunity).Observe(seconds)
}
