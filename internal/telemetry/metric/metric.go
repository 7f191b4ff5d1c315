// Package metric exposes Prometheus metrics for the session subsystem:
// authentication outcomes, cache effectiveness, session churn, and
// HTTP request latency.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics behind a dedicated
// prometheus registry, so tests can create isolated instances.
type Registry struct {
	// AuthTotal counts gate decisions by outcome: ok, refreshed,
	// rejected, error.
	AuthTotal *prometheus.CounterVec

	// CacheLookups counts active-session cache lookups by result:
	// hit, miss.
	CacheLookups *prometheus.CounterVec

	// ActiveEntries tracks the number of user entries in the cache.
	ActiveEntries prometheus.GaugeFunc

	// SessionsCreated counts issued sessions by trigger: login,
	// register, refresh, identity.
	SessionsCreated *prometheus.CounterVec

	// SessionsRemoved counts torn-down sessions by trigger: logout,
	// logout_others, logout_selected, expired, rotated.
	SessionsRemoved *prometheus.CounterVec

	// RequestDuration observes HTTP handler latency by route and code.
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// CacheSizer reports the current cache entry count.
type CacheSizer interface {
	Len() int
}

// NewRegistry creates and registers all application metrics. sizer may
// be nil, in which case the active entries gauge reports zero.
func NewRegistry(sizer CacheSizer) *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessguard",
			Name:      "auth_total",
			Help:      "Authentication gate decisions by outcome.",
		}, []string{"outcome"}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessguard",
			Name:      "cache_lookups_total",
			Help:      "Active-session cache lookups by result.",
		}, []string{"result"}),

		ActiveEntries: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sessguard",
			Name:      "cache_entries",
			Help:      "User entries currently held in the active-session cache.",
		}, func() float64 {
			if sizer == nil {
				return 0
			}
			return float64(sizer.Len())
		}),

		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessguard",
			Name:      "sessions_created_total",
			Help:      "Sessions issued by trigger.",
		}, []string{"trigger"}),

		SessionsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessguard",
			Name:      "sessions_removed_total",
			Help:      "Sessions torn down by trigger.",
		}, []string{"trigger"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sessguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),

		registry: reg,
	}

	reg.MustRegister(
		r.AuthTotal,
		r.CacheLookups,
		r.ActiveEntries,
		r.SessionsCreated,
		r.SessionsRemoved,
		r.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler returns the scrape endpoint handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
