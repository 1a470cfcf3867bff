// Package metrics collects per-run Prometheus counters for the batch job
// and pushes them once, at job end, to a configured Pushgateway. There is
// no long-lived /metrics endpoint — this is a batch job, not a service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/lovablehtml/prerender-engine/internal/logger"
)

// Collector owns a private Prometheus registry for a single job run.
type Collector struct {
	registry *prometheus.Registry

	renderTotal           *prometheus.CounterVec
	readinessReasonTotal  *prometheus.CounterVec
	syncKVTotal           *prometheus.CounterVec
	syncR2Total           *prometheus.CounterVec
	renderDurationSeconds prometheus.Histogram

	log *logger.Logger
}

// New builds a Collector with a fresh, unregistered-elsewhere registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		renderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "render_total",
			Help: "Total number of render attempts, labeled by outcome.",
		}, []string{"outcome"}),
		readinessReasonTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "render_readiness_reason_total",
			Help: "Total renders terminated by each readiness reason.",
		}, []string{"reason"}),
		syncKVTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_kv_total",
			Help: "Total KV sync attempts, labeled by result.",
		}, []string{"result"}),
		syncR2Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_r2_total",
			Help: "Total blob sync attempts, labeled by result.",
		}, []string{"result"}),
		renderDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Wall-clock duration of a single render, in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 20, 30},
		}),
		log: logger.New("MetricsPusher"),
	}

	registry.MustRegister(c.renderTotal, c.readinessReasonTotal, c.syncKVTotal, c.syncR2Total, c.renderDurationSeconds)
	return c
}

// ObserveRender records a render attempt's outcome and duration.
func (c *Collector) ObserveRender(success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.renderTotal.WithLabelValues(outcome).Inc()
	c.renderDurationSeconds.Observe(durationSeconds)
}

// ObserveReadinessReason records which readiness reason terminated a render.
func (c *Collector) ObserveReadinessReason(reason string) {
	if reason == "" {
		return
	}
	c.readinessReasonTotal.WithLabelValues(reason).Inc()
}

// ObserveSync records the KV and blob sync outcomes for one URL.
func (c *Collector) ObserveSync(kvSynced, r2Synced bool) {
	c.syncKVTotal.WithLabelValues(resultLabel(kvSynced)).Inc()
	c.syncR2Total.WithLabelValues(resultLabel(r2Synced)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Push sends the collected metrics to pushgatewayURL under jobName. If
// pushgatewayURL is empty the push is skipped and a debug line is logged —
// this is optional observability, not a load-bearing operation.
func (c *Collector) Push(pushgatewayURL, jobName string) {
	if pushgatewayURL == "" {
		c.log.LogDebugf("no pushgateway configured, skipping metrics push")
		return
	}

	pusher := push.New(pushgatewayURL, jobName).Gatherer(c.registry)
	if err := pusher.Push(); err != nil {
		c.log.LogWarnf("failed to push metrics to %s: %v", pushgatewayURL, err)
		return
	}
	c.log.LogInfof("pushed metrics to %s for job %s", pushgatewayURL, jobName)
}
