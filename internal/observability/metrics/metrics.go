// Package metrics exposes prometheus instruments for the negotiation core.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments. All methods are nil-safe
// so callers never need to guard.
type Metrics struct {
	offersSubmitted   prometheus.Counter
	offersAccepted    prometheus.Counter
	offersExpired     prometheus.Counter
	offersWithdrawn   *prometheus.CounterVec
	requestsCancelled prometheus.Counter
	sweepRuns         prometheus.Counter
	sweepDuration     prometheus.Histogram

	httpRequests *prometheus.HistogramVec
}

// New registers the marketplace instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		offersSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kraal_offers_submitted_total",
			Help: "Offers submitted against buy requests.",
		}),
		offersAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kraal_offers_accepted_total",
			Help: "Offers accepted by buyers.",
		}),
		offersExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kraal_offers_expired_total",
			Help: "Offers expired by the background sweep.",
		}),
		offersWithdrawn: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kraal_offers_withdrawn_total",
			Help: "Offers withdrawn, by reason.",
		}, []string{"reason"}),
		requestsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kraal_requests_cancelled_total",
			Help: "Buy requests cancelled by buyers.",
		}),
		sweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kraal_sweep_runs_total",
			Help: "Expiry sweep executions.",
		}),
		sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kraal_sweep_duration_seconds",
			Help:    "Expiry sweep run duration.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kraal_http_request_duration_seconds",
			Help:    "HTTP request duration by route, method, and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncOfferSubmitted() {
	if m != nil {
		m.offersSubmitted.Inc()
	}
}

func (m *Metrics) IncOfferAccepted() {
	if m != nil {
		m.offersAccepted.Inc()
	}
}

func (m *Metrics) AddOffersExpired(n int) {
	if m != nil && n > 0 {
		m.offersExpired.Add(float64(n))
	}
}

func (m *Metrics) AddOffersWithdrawn(reason string, n int) {
	if m != nil && n > 0 {
		m.offersWithdrawn.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) IncRequestCancelled() {
	if m != nil {
		m.requestsCancelled.Inc()
	}
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m != nil {
		m.sweepRuns.Inc()
		m.sweepDuration.Observe(d.Seconds())
	}
}

// GinMiddleware records request durations per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
