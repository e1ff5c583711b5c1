package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/taskrt/taskrt/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskSpawnTotal      *prom.CounterVec
	taskExitTotal       *prom.CounterVec
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	queueDepth          *prom.GaugeVec
	liveSchedulers      prom.Gauge
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "taskrt"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	spawnVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_spawn_total",
		Help:      "Total number of tasks created.",
	}, []string{"scheduler"})
	exitVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_exit_total",
		Help:      "Total number of task exits.",
	}, []string{"scheduler", "status_class"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"scheduler"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"scheduler"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current run-queue depth.",
	}, []string{"scheduler"})
	liveSchedulers := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "live_schedulers",
		Help:      "Number of live schedulers.",
	})

	var err error
	if spawnVec, err = registerCollector(reg, spawnVec); err != nil {
		return nil, err
	}
	if exitVec, err = registerCollector(reg, exitVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if liveSchedulers, err = registerCollector(reg, liveSchedulers); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskSpawnTotal:      spawnVec,
		taskExitTotal:       exitVec,
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		queueDepth:          queueDepthVec,
		liveSchedulers:      liveSchedulers,
	}, nil
}

// RecordTaskSpawned records task creation.
func (m *MetricsExporter) RecordTaskSpawned(schedulerID core.SchedulerID) {
	if m == nil {
		return
	}
	m.taskSpawnTotal.WithLabelValues(schedulerLabel(schedulerID)).Inc()
}

// RecordTaskExited records a task exit and its duration.
func (m *MetricsExporter) RecordTaskExited(schedulerID core.SchedulerID, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := schedulerLabel(schedulerID)
	m.taskExitTotal.WithLabelValues(label, statusClass(status)).Inc()
	m.taskDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(schedulerID core.SchedulerID, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(schedulerLabel(schedulerID)).Inc()
}

// RecordQueueDepth records run-queue depth.
func (m *MetricsExporter) RecordQueueDepth(schedulerID core.SchedulerID, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(schedulerLabel(schedulerID)).Set(float64(depth))
}

// RecordSchedulerCount records the live scheduler gauge.
func (m *MetricsExporter) RecordSchedulerCount(live int) {
	if m == nil {
		return
	}
	m.liveSchedulers.Set(float64(live))
}

func schedulerLabel(id core.SchedulerID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func statusClass(status int) string {
	if status == 0 {
		return "ok"
	}
	return "error"
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
