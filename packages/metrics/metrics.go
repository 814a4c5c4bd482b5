// Package metrics instruments requests with Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fhttp "github.com/abdul-hamid-achik/fetcher/packages/http"
	"github.com/abdul-hamid-achik/fetcher/packages/middleware"
)

// Collector holds the request metrics. It is safe for concurrent use.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	responsesTotal   *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector registers the metrics on a private registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	return NewCollectorWithRegistry(reg, reg)
}

// NewCollectorWithRegistry registers the metrics on reg; g is used by
// Handler and may be nil.
func NewCollectorWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetcher_requests_total",
				Help: "Total number of requests sent",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetcher_request_duration_seconds",
				Help:    "Duration of requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fetcher_requests_in_flight",
				Help: "Number of requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		responsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetcher_responses_total",
				Help: "Responses seen by the middleware chain, by status class",
			},
			[]string{"class"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetcher_errors_total",
				Help: "Total number of failed requests",
			},
			[]string{"type", "method", "endpoint"},
		),
		gatherer: g,
	}
}

// Instrument wraps next so that every call is counted and timed. Transport
// failures are counted with status_code "0".
func (c *Collector) Instrument(next fhttp.Doer) fhttp.Doer {
	return fhttp.DoerFunc(func(ctx context.Context, req *fhttp.Request) (*fhttp.Response, error) {
		endpoint := Endpoint(req.URL)

		inFlight := c.requestsInFlight.WithLabelValues(req.Method, endpoint)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		resp, err := next.Do(ctx, req)
		elapsed := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		code := strconv.Itoa(status)
		c.requestsTotal.WithLabelValues(req.Method, code, endpoint).Inc()
		c.requestDuration.WithLabelValues(req.Method, code, endpoint).Observe(elapsed.Seconds())

		if err != nil {
			c.errorsTotal.WithLabelValues(errorType(ctx, err), req.Method, endpoint).Inc()
		}
		return resp, err
	})
}

// Middleware counts responses by status class (2xx, 4xx, ...) and counts
// non-2xx responses as "status" errors. Responses pass through unchanged.
func (c *Collector) Middleware() middleware.Middleware {
	return func(_ context.Context, resp *fhttp.Response) (*fhttp.Response, error) {
		c.responsesTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()
		if !resp.OK() {
			method, endpoint := "", ""
			if resp.Request != nil {
				method, endpoint = resp.Request.Method, Endpoint(resp.Request.URL)
			}
			c.errorsTotal.WithLabelValues("status", method, endpoint).Inc()
		}
		return resp, nil
	}
}

// Handler serves the collected metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Endpoint reduces a URL to host and path so query strings do not explode
// label cardinality.
func Endpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host + u.Path
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

func errorType(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		return "canceled"
	default:
		return "transport"
	}
}
