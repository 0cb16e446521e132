// Package metrics exposes Prometheus instrumentation for the gate, the
// server actions and backend calls, plus the /metrics handler.
package metrics

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is where the metrics endpoint is mounted. The gate bypasses it.
const Path = "/metrics"

var (
	gateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "profilehub",
		Name:      "gate_decisions_total",
		Help:      "Access-control gate outcomes by decision.",
	}, []string{"decision"})

	actionResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "profilehub",
		Name:      "action_results_total",
		Help:      "Server action results by action and result kind.",
	}, []string{"action", "kind"})

	backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "profilehub",
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of backend operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"driver", "operation"})
)

// GateDecision counts one gate outcome ("bypass", "pass", "login", "onboarding").
func GateDecision(decision string) {
	gateDecisions.WithLabelValues(decision).Inc()
}

// ActionResult counts one server action result.
func ActionResult(action, kind string) {
	actionResults.WithLabelValues(action, kind).Inc()
}

// ObserveBackend records the duration of a backend operation started at start.
func ObserveBackend(driver, operation string, start time.Time) {
	backendDuration.WithLabelValues(driver, operation).Observe(time.Since(start).Seconds())
}

// Register mounts the Prometheus handler on the echo instance.
func Register(e *echo.Echo) {
	e.GET(Path, echo.WrapHandler(promhttp.Handler()))
}
