// Package telemetry exposes the Prometheus metrics emitted by the
// worker loop, grounded on
// wuchris-ch-distributed-task-scheduler/internal/telemetry/metrics.go.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsClaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_jobs_claimed_total",
		Help: "Jobs successfully claimed by a worker loop.",
	})
	JobsSucceeded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_jobs_succeeded_total",
		Help: "Jobs that reached the Succeeded terminal state.",
	})
	JobsRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_jobs_retried_total",
		Help: "Processing failures that scheduled a retry.",
	})
	JobsFailedTerminal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_jobs_dead_lettered_total",
		Help: "Jobs that reached the Failed terminal state.",
	})
	WorkerIdleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_worker_idle_seconds",
		Help:    "Time spent sleeping between claim attempts when no work was found.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// Handler exposes /metrics with a singleton registry, mirroring the
// teacher repo's once.Do registration guard.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(JobsClaimed, JobsSucceeded, JobsRetried, JobsFailedTerminal, WorkerIdleSeconds)
	})
	return promhttp.Handler()
}
