package middleware

import (
	"net/http"
	"strconv"
	"time"

	"backoffice/core/config"
	"backoffice/core/router"

	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// ApplyConfigurableMiddleware installs the middleware enabled in cfg
func ApplyConfigurableMiddleware(r *router.Router, cfg *config.MiddlewareConfig) {
	if cfg.RecoverEnabled {
		r.Echo().Use(middleware.Recover())
	}
	if cfg.RequestIDEnabled {
		r.Echo().Use(middleware.RequestID())
	}
	if cfg.BodyLimit != "" {
		r.Echo().Use(middleware.BodyLimit(cfg.BodyLimit))
	}
}

// CORSMiddleware allows cross-origin calls from origins ("*" when empty)
func CORSMiddleware(origins []string) router.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return router.FromEcho(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Api-Key", "X-Request-ID"},
	}))
}

// Metrics records request counts and latencies per route
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the HTTP collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Middleware observes every request. The route pattern, not the raw URL,
// is used as the path label.
func (m *Metrics) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c *router.Context) error {
			start := time.Now()
			err := next(c)

			path := c.Echo().Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Writer.Status())
			m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
			m.duration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
