package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics captures background job health signals.
type JobMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobErrors   *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
}

var (
	jobMetricsOnce sync.Once
	jobMetrics     *JobMetrics
)

// Jobs returns the singleton job metrics registry.
func Jobs() *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetrics = newJobMetrics(prometheus.DefaultRegisterer)
	})
	return jobMetrics
}

// ResetJobMetricsForTest resets the job metrics singleton for tests.
func ResetJobMetricsForTest() {
	jobMetricsOnce = sync.Once{}
	jobMetrics = nil
}

func newJobMetrics(registerer prometheus.Registerer) *JobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &JobMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revops_job_runs_total",
			Help: "Number of background job runs.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "revops_job_duration_seconds",
			Help:    "Background job run duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revops_job_errors_total",
			Help: "Number of background job failures.",
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revops_job_timeouts_total",
			Help: "Number of background job soft timeouts.",
		}, []string{"job"}),
	}

	registerer.MustRegister(m.jobRuns, m.jobDuration, m.jobErrors, m.jobTimeouts)
	return m
}

func (m *JobMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (m *JobMetrics) IncJobError(job string) {
	if m == nil {
		return
	}
	m.jobErrors.WithLabelValues(normalizeLabel(job)).Inc()
}

func (m *JobMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
