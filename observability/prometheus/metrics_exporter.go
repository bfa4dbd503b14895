package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/loopbridge/loopbridge/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds    *prom.HistogramVec
	taskPanicTotal         *prom.CounterVec
	taskRejectedTotal      *prom.CounterVec
	queueDepth             *prom.GaugeVec
	offloadDurationSeconds *prom.HistogramVec
	bridgeDurationSeconds  *prom.HistogramVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "loopbridge"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Scheduled task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"loop"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"name"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks and jobs.",
	}, []string{"name", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current ready-queue or job-queue depth.",
	}, []string{"name"})
	offloadVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "offload_duration_seconds",
		Help:      "Offloaded blocking call duration in seconds.",
		Buckets:   buckets,
	}, []string{"pool"})
	bridgeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "bridge_duration_seconds",
		Help:      "Bridged run-to-completion duration in seconds, by execution path.",
		Buckets:   buckets,
	}, []string{"path"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if offloadVec, err = registerCollector(reg, offloadVec); err != nil {
		return nil, err
	}
	if bridgeVec, err = registerCollector(reg, bridgeVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds:    durationVec,
		taskPanicTotal:         panicVec,
		taskRejectedTotal:      rejectedVec,
		queueDepth:             queueDepthVec,
		offloadDurationSeconds: offloadVec,
		bridgeDurationSeconds:  bridgeVec,
	}, nil
}

// RecordTaskDuration records scheduled task execution duration.
func (m *MetricsExporter) RecordTaskDuration(loopName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(loopName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(name string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(name, "unknown")).Inc()
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(name string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(name, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(name string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(name, "unknown")).Set(float64(depth))
}

// RecordOffloadDuration records offloaded blocking call duration.
func (m *MetricsExporter) RecordOffloadDuration(poolID string, duration time.Duration) {
	if m == nil {
		return
	}
	m.offloadDurationSeconds.WithLabelValues(normalizeLabel(poolID, "unknown")).Observe(duration.Seconds())
}

// RecordBridgeExecution records one bridged execution by path.
func (m *MetricsExporter) RecordBridgeExecution(path string, duration time.Duration) {
	if m == nil {
		return
	}
	m.bridgeDurationSeconds.WithLabelValues(normalizeLabel(path, "unknown")).Observe(duration.Seconds())
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
