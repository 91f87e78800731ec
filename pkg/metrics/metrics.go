// Package metrics exposes override activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "overrides"

// Collector owns a private registry so several collectors can coexist in
// one process.
type Collector struct {
	registry *prometheus.Registry

	Events       *prometheus.CounterVec
	StaleRemoved *prometheus.CounterVec
	Forced       *prometheus.GaugeVec
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	mu       sync.Mutex
	trackers []func()
}

// NewCollector builds and registers every metric under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_total",
			Help:      "Override and preset activity events by verb and domain",
		},
		[]string{"verb", "domain"},
	)
	stale := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_overrides_removed_total",
			Help:      "Forced ids dropped because their option was no longer registered",
		},
		[]string{"domain"},
	)
	forced := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forced_options",
			Help:      "Options currently forced per domain",
		},
		[]string{"domain"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(events, stale, forced, httpRequests, httpDuration)

	return &Collector{
		registry:     registry,
		Events:       events,
		StaleRemoved: stale,
		Forced:       forced,
		HTTPRequests: httpRequests,
		HTTPDuration: httpDuration,
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Notify implements activity.ActivityHook.
func (c *Collector) Notify(_ context.Context, event activity.Event) error {
	c.Events.WithLabelValues(event.Verb, event.Domain).Inc()
	if event.Verb == activity.VerbOverridesPruned {
		if removed, ok := event.Metadata["removed"].([]string); ok {
			c.StaleRemoved.WithLabelValues(event.Domain).Add(float64(len(removed)))
		}
	}
	return nil
}

var _ activity.ActivityHook = (*Collector)(nil)

// Track keeps the forced gauge for kind in sync with stream.
func (c *Collector) Track(kind overrides.Kind, stream overrides.Stream[[]overrides.EffectiveOption]) {
	gauge := c.Forced.WithLabelValues(string(kind))
	unsubscribe := stream.Subscribe(func(values []overrides.EffectiveOption) {
		gauge.Set(float64(len(values)))
	})
	c.mu.Lock()
	c.trackers = append(c.trackers, unsubscribe)
	c.mu.Unlock()
}

// TrackToolbar tracks every domain of toolbar.
func (c *Collector) TrackToolbar(toolbar *overrides.Toolbar) {
	for _, domain := range []*overrides.Domain{toolbar.FeatureFlags(), toolbar.Permissions(), toolbar.AppFeatures()} {
		c.Track(domain.Kind(), domain.ForcedValues())
	}
	c.Track(overrides.KindLanguage, toolbar.Language().ForcedValues())
}

// Stop detaches every tracked stream.
func (c *Collector) Stop() {
	c.mu.Lock()
	trackers := c.trackers
	c.trackers = nil
	c.mu.Unlock()
	for _, unsubscribe := range trackers {
		unsubscribe()
	}
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
