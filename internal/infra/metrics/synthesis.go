package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(synthesisCallsTotal, synthesisLatencyMs, synthesisRetriesTotal) }

var (
	synthesisCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echobook_synthesis_calls_total",
			Help: "Speech synthesis calls per provider and outcome.",
		},
		[]string{"provider", "success"},
	)

	synthesisLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echobook_synthesis_latency_ms",
			Help:    "Speech synthesis latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000},
		},
		[]string{"provider", "success"},
	)

	synthesisRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echobook_synthesis_retries_total",
			Help: "Retried synthesis attempts per provider.",
		},
		[]string{"provider"},
	)
)

func ObserveSynthesis(provider string, latency time.Duration, success bool) {
	lbl := []string{norm(provider), strconv.FormatBool(success)}
	synthesisCallsTotal.WithLabelValues(lbl...).Inc()
	synthesisLatencyMs.WithLabelValues(lbl...).Observe(float64(latency / time.Millisecond))
}

func IncSynthesisRetry(provider string) {
	synthesisRetriesTotal.WithLabelValues(norm(provider)).Inc()
}
