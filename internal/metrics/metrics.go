package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "barberchat"

// Registry holds every collector the service exports on /metrics.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_seconds",
		Help:      "HTTP request duration seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// outcome=ok|error
	LLMPings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_pings_total",
		Help:      "LLM Ping calls",
	}, []string{"provider", "outcome"})

	LLMChats = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_chats_total",
		Help:      "LLM Chat calls",
	}, []string{"provider", "outcome"})

	LLMChatDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_chat_seconds",
		Help:      "LLM Chat duration seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"provider", "outcome"})

	// mode=plan|phrase, reason=no_model|llm_error|invalid_output|empty_output|panic
	Fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallbacks_total",
		Help:      "Responses served by a fallback path instead of the primary model output",
	}, []string{"mode", "reason"})

	// kind=service|barber
	Unresolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unresolved_refs_total",
		Help:      "Catalog names returned by the planner that matched no catalog entry",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests, HTTPDuration,
		LLMPings, LLMChats, LLMChatDur,
		Fallbacks, Unresolved,
	)
}

// ObserveChat records one LLM chat call.
func ObserveChat(provider, outcome string, seconds float64) {
	LLMChats.WithLabelValues(provider, outcome).Inc()
	LLMChatDur.WithLabelValues(provider, outcome).Observe(seconds)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
