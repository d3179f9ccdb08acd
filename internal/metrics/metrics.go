package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrelay_http_requests_total",
		Help: "Total inbound HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialrelay_http_request_duration_seconds",
		Help:    "Inbound HTTP request duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	UpstreamCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrelay_upstream_calls_total",
		Help: "Outbound API calls by service and outcome",
	}, []string{"service", "outcome"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrelay_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	RepliesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialrelay_replies_generated_total",
		Help: "Replies drafted successfully",
	})
	ReplyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socialrelay_reply_failures_total",
		Help: "Reply drafts dropped after a completion failure",
	})
	RepliesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "socialrelay_replies_in_flight",
		Help: "Completion requests currently in flight",
	})
	FanOutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "socialrelay_fanout_duration_seconds",
		Help:    "Reply fan-out duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrelay_command_runs_total",
		Help: "CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrelay_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration, UpstreamCalls, APIRetries,
		RepliesGenerated, ReplyFailures, RepliesInFlight, FanOutDuration,
		CommandRuns, CommandErrors,
	)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveHTTP records one finished inbound request.
func ObserveHTTP(method, route string, status int, start time.Time) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// ObserveUpstream counts an outbound call; err decides the outcome label.
func ObserveUpstream(service string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamCalls.WithLabelValues(service, outcome).Inc()
}

// ObserveFanOutDuration records a fan-out run duration
func ObserveFanOutDuration(start time.Time) {
	FanOutDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
