package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/taskrt/taskrt/core"
)

// KernelSnapshotProvider provides current kernel-wide stats snapshots.
type KernelSnapshotProvider interface {
	Stats() core.KernelStats
	Schedulers() []*core.Scheduler
}

// SnapshotPoller periodically exports kernel and scheduler Stats() snapshots
// into Prometheus gauges. It complements MetricsExporter: the exporter counts
// events as they happen, the poller samples state that only the kernel can
// enumerate (per-scheduler queue depth and liveness).
type SnapshotPoller struct {
	interval time.Duration

	kernelMu sync.RWMutex
	kernel   KernelSnapshotProvider

	schedQueued  *prom.GaugeVec
	schedLive    *prom.GaugeVec
	schedStopped *prom.GaugeVec

	kernelSchedulers prom.Gauge
	kernelTasks      prom.Gauge

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	schedQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskrt",
		Name:      "scheduler_queued",
		Help:      "Ready tasks queued per scheduler.",
	}, []string{"scheduler"})
	schedLive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskrt",
		Name:      "scheduler_live_tasks",
		Help:      "Outstanding (not yet exited) tasks per scheduler.",
	}, []string{"scheduler"})
	schedStopped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskrt",
		Name:      "scheduler_terminated",
		Help:      "Scheduler terminated state (1=terminated, 0=live).",
	}, []string{"scheduler"})

	kernelSchedulers := prom.NewGauge(prom.GaugeOpts{
		Namespace: "taskrt",
		Name:      "kernel_live_schedulers",
		Help:      "Live schedulers owned by the kernel.",
	})
	kernelTasks := prom.NewGauge(prom.GaugeOpts{
		Namespace: "taskrt",
		Name:      "kernel_tasks_spawned_total",
		Help:      "Tasks spawned since kernel start (snapshot).",
	})

	var err error
	if schedQueued, err = registerCollector(reg, schedQueued); err != nil {
		return nil, err
	}
	if schedLive, err = registerCollector(reg, schedLive); err != nil {
		return nil, err
	}
	if schedStopped, err = registerCollector(reg, schedStopped); err != nil {
		return nil, err
	}
	if kernelSchedulers, err = registerCollector(reg, kernelSchedulers); err != nil {
		return nil, err
	}
	if kernelTasks, err = registerCollector(reg, kernelTasks); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:         interval,
		schedQueued:      schedQueued,
		schedLive:        schedLive,
		schedStopped:     schedStopped,
		kernelSchedulers: kernelSchedulers,
		kernelTasks:      kernelTasks,
	}, nil
}

// SetKernel sets or replaces the kernel snapshot provider.
func (p *SnapshotPoller) SetKernel(kernel KernelSnapshotProvider) {
	if p == nil {
		return
	}
	p.kernelMu.Lock()
	p.kernel = kernel
	p.kernelMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.kernelMu.RLock()
	kernel := p.kernel
	p.kernelMu.RUnlock()

	if kernel == nil {
		return
	}

	stats := kernel.Stats()
	p.kernelSchedulers.Set(float64(stats.LiveSchedulers))
	p.kernelTasks.Set(float64(stats.TasksSpawned))

	for _, sched := range kernel.Schedulers() {
		snap := sched.Stats()
		label := strconv.FormatUint(uint64(snap.ID), 10)
		p.schedQueued.WithLabelValues(label).Set(float64(snap.Queued))
		p.schedLive.WithLabelValues(label).Set(float64(snap.LiveTasks))
		if snap.Terminated {
			p.schedStopped.WithLabelValues(label).Set(1)
		} else {
			p.schedStopped.WithLabelValues(label).Set(0)
		}
	}
}
