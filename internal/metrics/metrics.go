// Package metrics exposes docrender's Prometheus collectors.
//
// A Metrics value satisfies the recorder interfaces of the document pipeline
// and the fragment cache, so one instance observes renders, fragments and
// cache lookups.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "docrender").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the render duration histogram buckets.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors. Default: a new registry.
	Registry *prometheus.Registry
}

// Option configures Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the registry the collectors are registered with.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry *prometheus.Registry

	rendersTotal   *prometheus.CounterVec
	renderDuration prometheus.Histogram
	fragmentsTotal *prometheus.CounterVec
	cacheRequests  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	cfg := Config{
		Namespace: "docrender",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		registry: cfg.Registry,

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "renders_total",
			Help:        "Total number of page renders",
			ConstLabels: cfg.ConstLabels,
		}, []string{"status"}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "render_duration_seconds",
			Help:        "Page render duration in seconds, parse and resolve included",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		fragmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "fragments_total",
			Help:        "Total number of resolved fragments",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind", "status"}),

		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "fragment_cache_requests_total",
			Help:        "Total number of fragment cache lookups",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests served",
			ConstLabels: cfg.ConstLabels,
		}, []string{"code"}),
	}
}

// RenderDone records a finished page render.
func (m *Metrics) RenderDone(status string, d time.Duration) {
	m.rendersTotal.WithLabelValues(status).Inc()
	m.renderDuration.Observe(d.Seconds())
}

// FragmentDone records a resolved fragment.
func (m *Metrics) FragmentDone(kind, status string) {
	m.fragmentsTotal.WithLabelValues(kind, status).Inc()
}

// CacheLookup records a fragment cache lookup.
func (m *Metrics) CacheLookup(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

// HTTPDone records a served HTTP response.
func (m *Metrics) HTTPDone(code int) {
	m.httpRequests.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
