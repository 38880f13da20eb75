package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsSubmittedTotal, jobsFinishedTotal, jobDurationSeconds, jobsTracked, workerQueueDepth)
}

var (
	jobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "echobook_jobs_submitted_total",
			Help: "Conversion jobs accepted by the dispatcher.",
		},
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echobook_jobs_finished_total",
			Help: "Conversion jobs that reached a terminal status.",
		},
		[]string{"status"}, // 'done', 'failed'
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echobook_job_duration_seconds",
			Help:    "Wall time of one conversion pipeline run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"status"},
	)

	jobsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "echobook_jobs_tracked",
			Help: "Job records currently held by the registry.",
		},
	)

	workerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "echobook_worker_queue_depth",
			Help: "Tasks waiting in the worker pool queue.",
		},
	)
)

func IncJobSubmitted() { jobsSubmittedTotal.Inc() }

func ObserveJobFinished(status string, d time.Duration) {
	jobsFinishedTotal.WithLabelValues(norm(status)).Inc()
	jobDurationSeconds.WithLabelValues(norm(status)).Observe(d.Seconds())
}

func SetJobsTracked(n int) { jobsTracked.Set(float64(n)) }

func SetQueueDepth(n int) { workerQueueDepth.Set(float64(n)) }
