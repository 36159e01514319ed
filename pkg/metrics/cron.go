package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron tracks maintenance job runs.
type Cron struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewCron(reg prometheus.Registerer) *Cron {
	if reg == nil {
		return &Cron{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cron_job_runs_total",
		Help:      "Maintenance job runs by job and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cron_job_duration_seconds",
		Help:      "Maintenance job duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	reg.MustRegister(runs, duration)
	return &Cron{runs: runs, duration: duration}
}

// JobFinished records one run. A nil err counts as success.
func (c *Cron) JobFinished(job string, elapsed time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.runs.WithLabelValues(normalizeLabel(job), result).Inc()
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(elapsed.Seconds())
}
