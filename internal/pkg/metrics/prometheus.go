package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "remlyo"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Entitlement metrics
	accessDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "decisions_total",
			Help:      "Access decisions by outcome, denial reason and plan",
		},
		[]string{"decision", "reason", "plan"},
	)

	remedyViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "remedy_views_total",
			Help:      "Remedy views counted against free-tier allowances",
		},
		[]string{"result"},
	)

	remedyPurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "remedy_purchases_total",
			Help:      "Remedy purchases by status",
		},
		[]string{"status"},
	)

	// Subscription metrics
	subscriptionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "events_total",
			Help:      "Subscription lifecycle transitions",
		},
		[]string{"event", "plan"},
	)

	expirySweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "expiry_sweep_duration_seconds",
			Help:      "Duration of the expiry sweep in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)

	planSeedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "seed_total",
			Help:      "Plan seeding attempts by result",
		},
		[]string{"plan", "result"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Route pattern keeps ailment and remedy ids out of the label set
		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAccessDecision records the outcome of an entitlement evaluation
func RecordAccessDecision(allowed bool, reason, plan string) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	if plan == "" {
		plan = "none"
	}
	accessDecisionsTotal.WithLabelValues(decision, reason, plan).Inc()
}

// RecordRemedyView records a free-tier view: counted, repeat or limited
func RecordRemedyView(result string) {
	remedyViewsTotal.WithLabelValues(result).Inc()
}

// RecordRemedyPurchase records a purchase transition
func RecordRemedyPurchase(status string) {
	remedyPurchasesTotal.WithLabelValues(status).Inc()
}

// RecordSubscriptionEvent records subscribed, cancelled, replaced or expired
func RecordSubscriptionEvent(event, plan string) {
	subscriptionEventsTotal.WithLabelValues(event, plan).Inc()
}

// RecordExpirySweep records how long an expiry sweep took
func RecordExpirySweep(duration time.Duration) {
	expirySweepDuration.Observe(duration.Seconds())
}

// RecordPlanSeed records the result of seeding one plan
func RecordPlanSeed(plan string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	planSeedTotal.WithLabelValues(plan, result).Inc()
}
