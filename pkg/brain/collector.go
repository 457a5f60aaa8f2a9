package brain

import "sync"

// Mode is the layer's control mode, checked once at tick start.
type Mode int

const (
	// ModeAutonomous runs the full COLLECT→BUILD→INFER→DEMUX→CLEAR tick.
	ModeAutonomous Mode = iota

	// ModeExternal hands action control to an outside process: each tick
	// clears pending requests and produces no decisions, without ever
	// invoking inference.
	ModeExternal
)

func (m Mode) String() string {
	switch m {
	case ModeAutonomous:
		return "autonomous"
	case ModeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// collector buffers the per-tick pending requests in arrival order.
// Resubmitting before the tick replaces the payload but keeps the
// agent's original position, so the manifest order stays stable. The
// mutex covers concurrent count() reads from the monitor goroutine.
type collector struct {
	mu      sync.Mutex
	order   []AgentID
	pending map[AgentID]*ObservationRequest
}

func newCollector() *collector {
	return &collector{pending: make(map[AgentID]*ObservationRequest)}
}

func (c *collector) submit(id AgentID, req *ObservationRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.pending[id]; !seen {
		c.order = append(c.order, id)
	}
	c.pending[id] = req
}

// beginTick snapshots the pending set as an ordered manifest plus the
// matching request slice. The returned order is fixed for the tick.
func (c *collector) beginTick() (Manifest, []*ObservationRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return nil, nil
	}
	manifest := make(Manifest, len(c.order))
	copy(manifest, c.order)
	requests := make([]*ObservationRequest, len(manifest))
	for i, id := range manifest {
		requests[i] = c.pending[id]
	}
	return manifest, requests
}

// clear drops all per-tick state. It runs unconditionally at tick end so
// no request leaks into the next tick.
func (c *collector) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	for id := range c.pending {
		delete(c.pending, id)
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
