package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/loopbridge/loopbridge/core"
)

type stubLoopProvider struct {
	stats core.LoopStats
}

func (s *stubLoopProvider) Stats() core.LoopStats { return s.stats }

type stubPoolProvider struct {
	stats core.PoolStats
}

func (s *stubPoolProvider) Stats() core.PoolStats { return s.stats }

// TestSnapshotPoller_CollectsLoopStats tests loop gauge export
// Given: a poller with a registered loop provider
// When: polling starts
// Then: the loop gauges reflect the provider's snapshot
func TestSnapshotPoller_CollectsLoopStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddLoop("main", &stubLoopProvider{stats: core.LoopStats{
		Name:    "main",
		Pending: 4,
		Closed:  false,
		Pumping: true,
	}})

	poller.Start(context.Background())
	defer poller.Stop()
	time.Sleep(30 * time.Millisecond)

	if got := testutil.ToFloat64(poller.loopPending.WithLabelValues("main")); got != 4 {
		t.Errorf("loop_pending: got = %v, want 4", got)
	}
	if got := testutil.ToFloat64(poller.loopClosed.WithLabelValues("main")); got != 0 {
		t.Errorf("loop_closed: got = %v, want 0", got)
	}
	if got := testutil.ToFloat64(poller.loopPumping.WithLabelValues("main")); got != 1 {
		t.Errorf("loop_pumping: got = %v, want 1", got)
	}
}

// TestSnapshotPoller_CollectsPoolStats tests pool gauge export
func TestSnapshotPoller_CollectsPoolStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddPool("offload", &stubPoolProvider{stats: core.PoolStats{
		ID:      "offload",
		Workers: 8,
		Queued:  2,
		Active:  3,
		Running: true,
	}})

	poller.Start(context.Background())
	defer poller.Stop()
	time.Sleep(30 * time.Millisecond)

	if got := testutil.ToFloat64(poller.poolWorkers.WithLabelValues("offload")); got != 8 {
		t.Errorf("pool_workers: got = %v, want 8", got)
	}
	if got := testutil.ToFloat64(poller.poolQueued.WithLabelValues("offload")); got != 2 {
		t.Errorf("pool_queued: got = %v, want 2", got)
	}
	if got := testutil.ToFloat64(poller.poolActive.WithLabelValues("offload")); got != 3 {
		t.Errorf("pool_active: got = %v, want 3", got)
	}
	if got := testutil.ToFloat64(poller.poolRunning.WithLabelValues("offload")); got != 1 {
		t.Errorf("pool_running: got = %v, want 1", got)
	}
}

// TestSnapshotPoller_RegistryGauge tests the background task gauge
// Given: a registry size source
// When: a poll cycle runs
// Then: the gauge reflects the source's value
func TestSnapshotPoller_RegistryGauge(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.SetRegistrySize(func() int { return 5 })
	poller.Start(context.Background())
	defer poller.Stop()
	time.Sleep(30 * time.Millisecond)

	if got := testutil.ToFloat64(poller.backgroundTasks); got != 5 {
		t.Errorf("background_tasks: got = %v, want 5", got)
	}
}

// TestSnapshotPoller_StartStopIdempotent tests lifecycle safety
// Given: a poller
// When: Start and Stop are called repeatedly
// Then: every call returns without hanging or panicking
func TestSnapshotPoller_StartStopIdempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.Start(context.Background())
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()

	poller.Start(context.Background())
	poller.Stop()
}

// TestSnapshotPoller_WithLiveLoop tests polling against the real Stats source
// Given: a running loop registered on the poller
// When: the loop processes tasks
// Then: collection runs against the live snapshot without error
func TestSnapshotPoller_WithLiveLoop(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	loop := core.NewLoop(core.WithName("polled"))
	loop.Start()
	defer loop.Stop()

	poller.AddLoop("polled", loop)
	poller.Start(context.Background())
	defer poller.Stop()

	for i := 0; i < 10; i++ {
		loop.Post(func(ctx context.Context) {})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if got := testutil.ToFloat64(poller.loopPending.WithLabelValues("polled")); got != 0 {
		t.Errorf("loop_pending after drain: got = %v, want 0", got)
	}
}
