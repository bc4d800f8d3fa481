package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_agent_calls_total",
			Help: "Total number of agent reasoning calls",
		},
		[]string{"model", "status"}, // status: success|error
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_agent_latency_seconds",
			Help:    "End-to-end query latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_agent_tokens_total",
			Help: "Total tokens used by the agent",
		},
		[]string{"model", "type"}, // type: input|output
	)

	AgentRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hermes_agent_rounds",
			Help:    "Reasoning rounds used per query",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Market data gateway metrics
	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_gateway_calls_total",
			Help: "Total number of market data gateway calls",
		},
		[]string{"operation", "status"}, // status: success|error|rate_limited
	)

	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_gateway_latency_seconds",
			Help:    "Market data gateway latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hermes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	// Email metrics
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hermes_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"kind", "status"}, // kind: portfolio_update|alert
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(AgentCalls)
	prometheus.MustRegister(AgentLatency)
	prometheus.MustRegister(AgentTokens)
	prometheus.MustRegister(AgentRounds)

	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ToolLatency)

	prometheus.MustRegister(GatewayCalls)
	prometheus.MustRegister(GatewayLatency)

	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)

	prometheus.MustRegister(EmailsSent)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
