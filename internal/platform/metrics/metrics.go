package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopledger"

// Collector owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Collector struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	settlements     *prometheus.CounterVec
	settledAmount   *prometheus.CounterVec
	accrualFailures *prometheus.CounterVec
	syncCreated     prometheus.Counter
	jobRuns         *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "salary",
			Name:      "settlements_total",
			Help:      "Salary settlements applied, by path.",
		}, []string{"path"}),
		settledAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "salary",
			Name:      "settled_amount_total",
			Help:      "Money marked paid against salary entries.",
		}, []string{"path"}),
		accrualFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "salary",
			Name:      "accrual_failures_total",
			Help:      "Accruals that failed after the work item was created.",
		}, []string{"work_kind"}),
		syncCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "salary",
			Name:      "sync_created_entries_total",
			Help:      "Salary entries created by reconciliation.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Background job runs by type and outcome.",
		}, []string{"job_type", "status"}),
	}
	c.registry.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.settlements,
		c.settledAmount,
		c.accrualFailures,
		c.syncCreated,
		c.jobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) SalarySettled(path string, amount int64) {
	if c == nil || amount <= 0 {
		return
	}
	c.settlements.WithLabelValues(path).Inc()
	c.settledAmount.WithLabelValues(path).Add(float64(amount))
}

func (c *Collector) AccrualFailed(workKind string) {
	if c == nil {
		return
	}
	c.accrualFailures.WithLabelValues(workKind).Inc()
}

func (c *Collector) SyncCreated(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.syncCreated.Add(float64(n))
}

func (c *Collector) JobFinished(jobType, status string) {
	if c == nil {
		return
	}
	c.jobRuns.WithLabelValues(jobType, status).Inc()
}
