// Package metrics exposes Prometheus collectors for submissions and the score ledger.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "careercurve"

// Submission outcomes.
const (
	OutcomeRanked          = "ranked"
	OutcomeNotSaved        = "not_saved"
	OutcomeRankUnavailable = "rank_unavailable"
	OutcomeRejected        = "rejected"
)

var registry = prometheus.NewRegistry()

var (
	factory = promauto.With(registry)

	submissionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Scored submissions by outcome.",
	}, []string{"outcome"})

	rankDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rank_duration_seconds",
		Help:      "Time spent appending to and scanning the score ledger.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	ledgerRecords = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_records",
		Help:      "Ledger size observed by the most recent rank computation.",
	})

	llmDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_duration_seconds",
		Help:      "Resume scoring LLM call duration.",
		Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Registry returns the private registry backing /metrics.
func Registry() *prometheus.Registry {
	return registry
}

// IncSubmission counts a submission with the given outcome.
func IncSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRank records the duration of a rank computation and the ledger size it saw.
func ObserveRank(d time.Duration, total int) {
	rankDuration.Observe(d.Seconds())
	if total > 0 {
		ledgerRecords.Set(float64(total))
	}
}

// ObserveLLM records an LLM call duration.
func ObserveLLM(d time.Duration) {
	if d < 0 {
		d = 0
	}
	llmDuration.Observe(d.Seconds())
}

// Middleware counts requests by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
