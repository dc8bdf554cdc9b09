package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthzMetrics exposes collectors for the authorization core.
type AuthzMetrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	invalidations *prometheus.CounterVec
	decisions     *prometheus.CounterVec
}

// NewAuthzMetrics registers authorization metrics against the provided
// registerer. A nil registerer falls back to the Prometheus default.
func NewAuthzMetrics(registerer prometheus.Registerer) *AuthzMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snd_authz_cache_hits_total",
		Help: "Permission cache lookups served without a store round-trip.",
	})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snd_authz_cache_misses_total",
		Help: "Permission cache lookups that required store resolution.",
	})
	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snd_authz_cache_invalidations_total",
		Help: "Explicit permission cache invalidations by scope.",
	}, []string{"scope"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snd_authz_decisions_total",
		Help: "Authorization decisions by outcome.",
	}, []string{"outcome"})
	registerer.MustRegister(hits, misses, invalidations, decisions)
	return &AuthzMetrics{
		cacheHits:     hits,
		cacheMisses:   misses,
		invalidations: invalidations,
		decisions:     decisions,
	}
}

// CacheHit records a cache lookup served from memory.
func (m *AuthzMetrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss records a cache lookup that fell through to the store.
func (m *AuthzMetrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// Invalidation records an explicit eviction; scope is "user" or "all".
func (m *AuthzMetrics) Invalidation(scope string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(scope).Inc()
}

// Decision records a check outcome: "allow", "deny" or "error".
func (m *AuthzMetrics) Decision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}
