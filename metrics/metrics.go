// Package metrics exposes authentication events and request metrics to
// Prometheus.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-auth-core"
)

const namespace = "authcore"

// Collector owns the metric vectors and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	// AuthEvents counts activity events by type, provider and failure kind
	AuthEvents *prometheus.CounterVec
	// Requests counts HTTP requests by method, route and status
	Requests *prometheus.CounterVec
	// RequestLatency tracks HTTP request latency in seconds
	RequestLatency *prometheus.HistogramVec
}

var _ auth.ActivitySink = (*Collector)(nil)

// New creates a Collector registered on a private registry together with
// the process and Go runtime collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_events_total",
				Help:      "Total number of authentication events by type",
			},
			[]string{"event", "provider", "kind"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.AuthEvents,
		c.Requests,
		c.RequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Record implements auth.ActivitySink.
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	c.AuthEvents.WithLabelValues(
		string(event.EventType),
		event.Provider,
		string(event.Kind),
	).Inc()
	return nil
}

// Middleware records the count and latency of every request. The route
// label is the matched route pattern so ids do not explode cardinality.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = auth.StatusFor(auth.KindOf(err))
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		route := ctx.Route().Path
		method := ctx.Method()

		c.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		c.RequestLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}
