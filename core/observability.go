package core

// LoopStats represents runtime observability state for a Loop.
type LoopStats struct {
	Name    string
	Pending int
	Closed  bool
	Pumping bool
}

// PoolStats represents runtime observability state for a WorkerPool.
type PoolStats struct {
	ID      string
	Workers int
	Queued  int
	Active  int
	Running bool
}
