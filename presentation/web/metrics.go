package web

import (
	"strconv"
	"time"

	"feedback_automation/application/automation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedback",
		Name:      "automation_runs_total",
		Help:      "Automation runs by outcome.",
	}, []string{"outcome"})
	metricRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "feedback",
		Name:      "automation_run_duration_seconds",
		Help:      "Wall-clock duration of automation runs.",
		Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
	}, []string{"outcome"})
	metricActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedback",
		Name:      "automation_runs_active",
		Help:      "Automation runs currently streaming to a client.",
	})
	metricLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedback",
		Name:      "logins_total",
		Help:      "Front-end login attempts by result.",
	}, []string{"result"})
	metricHTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedback",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)

// ObserveRun records a finished automation run. It matches automation.Runner.OnDone.
func ObserveRun(outcome automation.Outcome, elapsed time.Duration) {
	metricRuns.WithLabelValues(string(outcome)).Inc()
	metricRunDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func observeRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	metricHTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
