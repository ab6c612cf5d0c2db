// Package metrics exposes Prometheus instruments for the dashboard's calls
// to its external collaborators.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "upstream_requests_total",
		Help:      "Calls made to the students backend and the identity provider.",
	}, []string{"upstream", "op", "outcome"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to external collaborators.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"upstream", "op"})

	pageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "page_renders_total",
		Help:      "Dashboard pages rendered, by response status.",
	}, []string{"status"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dashboard",
		Name:      "active_sessions",
		Help:      "Browser sessions with live dashboard state.",
	})
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	Status() int
}

// ObserveUpstream records one call. outcome is "ok", the upstream status
// code, or "transport" when no response was received.
func ObserveUpstream(upstream, op string, start time.Time, err error) {
	upstreamDuration.WithLabelValues(upstream, op).Observe(time.Since(start).Seconds())
	upstreamRequests.WithLabelValues(upstream, op, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var sc StatusCoder
	if errors.As(err, &sc) && sc.Status() != 0 {
		return strconv.Itoa(sc.Status())
	}
	return "transport"
}

// PageRendered counts one rendered dashboard page.
func PageRendered(status int) {
	pageRenders.WithLabelValues(strconv.Itoa(status)).Inc()
}

// SetActiveSessions reports the size of the session registry.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
