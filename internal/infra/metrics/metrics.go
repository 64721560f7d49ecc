// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"database/sql"
	"net/http"

	"portal/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portal"

// Collector is the Prometheus-backed MetricsRecorder.
type Collector struct {
	registry *prometheus.Registry

	signIns        *prometheus.CounterVec
	sessionsIssued *prometheus.CounterVec
	oauthLinks     *prometheus.CounterVec
	guardRedirects *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
	cleanedUp      *prometheus.CounterVec
}

var _ service.MetricsRecorder = (*Collector)(nil)

// NewCollector creates a dedicated registry with the Go and process
// collectors plus the service counters.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return newCollector(reg)
}

func newCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		sessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Sessions issued by authentication method.",
		}, []string{"method"}),
		oauthLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_links_total",
			Help:      "OAuth account link calls; created is false when the link already existed.",
		}, []string{"provider", "created"}),
		guardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_guard_redirects_total",
			Help:      "Redirects issued by the route guard.",
		}, []string{"reason"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"path"}),
		cleanedUp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deleted_total",
			Help:      "Expired rows removed by the cleanup worker.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.signIns,
		c.sessionsIssued,
		c.oauthLinks,
		c.guardRedirects,
		c.rateLimited,
		c.cleanedUp,
	)

	return c
}

// Registry is shared with the HTTP request middleware.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RegisterDBStats exports connection pool stats for db as
// go_sql_* series labelled db_name.
func (c *Collector) RegisterDBStats(db *sql.DB, dbName string) error {
	return c.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

func (c *Collector) RecordSignIn(method, outcome string) {
	c.signIns.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordSessionIssued(method string) {
	c.sessionsIssued.WithLabelValues(method).Inc()
}

func (c *Collector) RecordOAuthLink(provider string, created bool) {
	label := "false"
	if created {
		label = "true"
	}
	c.oauthLinks.WithLabelValues(provider, label).Inc()
}

func (c *Collector) RecordGuardRedirect(reason string) {
	c.guardRedirects.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordRateLimited(path string) {
	c.rateLimited.WithLabelValues(path).Inc()
}

func (c *Collector) RecordCleanup(sessions, tokens int64) {
	c.cleanedUp.WithLabelValues("sessions").Add(float64(sessions))
	c.cleanedUp.WithLabelValues("tokens").Add(float64(tokens))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Nop discards every measurement. Used by tests.
type Nop struct{}

var _ service.MetricsRecorder = Nop{}

func (Nop) RecordSignIn(string, string)  {}
func (Nop) RecordSessionIssued(string)   {}
func (Nop) RecordOAuthLink(string, bool) {}
func (Nop) RecordGuardRedirect(string)   {}
func (Nop) RecordRateLimited(string)     {}
func (Nop) RecordCleanup(int64, int64)   {}
