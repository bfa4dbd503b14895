package loopbridge

import (
	"sync"

	"github.com/loopbridge/loopbridge/core"
)

var (
	pkgMetricsMu sync.RWMutex
	pkgMetrics   core.Metrics = &core.NilMetrics{}
)

// SetMetrics installs a metrics collector for package-level operations
// (bridge executions). Loops and pools take their own collector via
// core.WithMetrics. Passing nil restores the no-op default.
func SetMetrics(m core.Metrics) {
	pkgMetricsMu.Lock()
	defer pkgMetricsMu.Unlock()
	if m == nil {
		m = &core.NilMetrics{}
	}
	pkgMetrics = m
}

func getMetrics() core.Metrics {
	pkgMetricsMu.RLock()
	defer pkgMetricsMu.RUnlock()
	return pkgMetrics
}
