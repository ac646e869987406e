package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job run results.
const (
	JobResultSuccess = "success"
	JobResultFailure = "failure"
)

// JobMetrics records scheduled maintenance runs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics. A nil registerer yields a no-op
// recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wishlist_job_duration_seconds",
		Help:    "Duration of scheduled wishlist jobs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_job_runs_total",
		Help: "Scheduled wishlist job runs, by result.",
	}, []string{"job", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_job_rows_deleted_total",
		Help: "Rows removed by scheduled wishlist jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, rows)
	return &JobMetrics{duration: duration, runs: runs, rows: rows}
}

func (m *JobMetrics) ObserveRun(job, result string, d time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	job = jobLabel(job)
	m.duration.WithLabelValues(job).Observe(d.Seconds())
	m.runs.WithLabelValues(job, result).Inc()
}

func (m *JobMetrics) RowsDeleted(job string, n int64) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(jobLabel(job)).Add(float64(n))
}

func jobLabel(job string) string {
	job = strings.TrimSpace(job)
	if job == "" {
		return "unknown"
	}
	return job
}
