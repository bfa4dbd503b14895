package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/loopbridge/loopbridge/core"
)

// LoopSnapshotProvider provides current loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.LoopStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports loop/pool Stats() snapshots and the
// background task registry size into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	registryMu   sync.RWMutex
	registrySize func() int

	loopPending *prom.GaugeVec
	loopClosed  *prom.GaugeVec
	loopPumping *prom.GaugeVec

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	backgroundTasks prom.Gauge

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

	loopPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "loop_pending",
		Help:      "Number of pending tasks per loop.",
	}, []string{"loop"})
	loopClosed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "loop_closed",
		Help:      "Loop closed state (1=closed, 0=open).",
	}, []string{"loop"})
	loopPumping := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "loop_pumping",
		Help:      "Loop pumping state (1=a goroutine is driving the loop).",
	}, []string{"loop"})

	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "pool_queued",
		Help:      "Queued jobs per pool.",
	}, []string{"pool"})
	poolActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "pool_active",
		Help:      "Active jobs per pool.",
	}, []string{"pool"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "pool_workers",
		Help:      "Worker count per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	backgroundTasks := prom.NewGauge(prom.GaugeOpts{
		Namespace: "loopbridge",
		Name:      "background_tasks",
		Help:      "Background tasks currently retained by the registry.",
	})

	var err error
	if loopPending, err = registerCollector(reg, loopPending); err != nil {
		return nil, err
	}
	if loopClosed, err = registerCollector(reg, loopClosed); err != nil {
		return nil, err
	}
	if loopPumping, err = registerCollector(reg, loopPumping); err != nil {
		return nil, err
	}
	if poolQueued, err = registerCollector(reg, poolQueued); err != nil {
		return nil, err
	}
	if poolActive, err = registerCollector(reg, poolActive); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}
	if backgroundTasks, err = registerCollector(reg, backgroundTasks); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:        interval,
		loops:           make(map[string]LoopSnapshotProvider),
		pools:           make(map[string]PoolSnapshotProvider),
		loopPending:     loopPending,
		loopClosed:      loopClosed,
		loopPumping:     loopPumping,
		poolQueued:      poolQueued,
		poolActive:      poolActive,
		poolWorkers:     poolWorkers,
		poolRunning:     poolRunning,
		backgroundTasks: backgroundTasks,
	}, nil
}

// AddLoop adds or replaces a loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// SetRegistrySize sets the source for the background task gauge, typically
// loopbridge.BackgroundTaskCount.
func (p *SnapshotPoller) SetRegistrySize(fn func() int) {
	if p == nil {
		return
	}
	p.registryMu.Lock()
	p.registrySize = fn
	p.registryMu.Unlock()
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
	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.loopClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
		p.loopPumping.WithLabelValues(name).Set(boolGauge(stats.Pumping))
	}
	p.loopsMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
	p.poolsMu.RUnlock()

	p.registryMu.RLock()
	registrySize := p.registrySize
	p.registryMu.RUnlock()
	if registrySize != nil {
		p.backgroundTasks.Set(float64(registrySize()))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
