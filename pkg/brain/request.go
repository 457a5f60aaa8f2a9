// Package brain implements the tick-synchronous batching layer: it
// collects one observation per agent per tick, builds the batched input
// tensors, runs one inference call, and splits the outputs back per
// agent. One tick runs to completion before the next begins.
package brain

import (
	"github.com/google/uuid"

	"github.com/decisionlayer/tickbatch/pkg/visual"
)

// AgentID identifies one submitting agent. IDs are opaque to the layer;
// NewAgentID is a convenience for callers that need fresh ones.
type AgentID string

// NewAgentID returns a random unique agent identifier.
func NewAgentID() AgentID { return AgentID(uuid.NewString()) }

// ObservationRequest is one agent's observation for one tick. All fields
// except the vector observation are optional; unsupported fields are
// ignored for models whose signature lacks the capability.
type ObservationRequest struct {
	// VectorObservation is the stacked vector observation. Its length
	// must be identical across every agent in a tick.
	VectorObservation []float32

	// VisualObservations holds one frame per configured visual sensor,
	// in sensor order.
	VisualObservations []visual.ImageBuffer

	// PreviousAction is the agent's last decided action, one value per
	// discrete branch (or per continuous dimension).
	PreviousAction []float32

	// ActionMask marks allowed discrete action values: true = allowed.
	// One entry per discrete action value across all branches. nil means
	// fully unmasked.
	ActionMask []bool

	// Memory is the agent's recurrent state from the previous tick's
	// decision. nil or short slices are zero-padded to the model's
	// memory size. The agent, not the layer, owns this vector.
	Memory []float32
}

// Decision is the per-agent output of one tick. The layer retains no
// decision after delivery.
type Decision struct {
	Agent  AgentID
	Action []float32

	// Memory is the updated recurrent state, nil unless the model has
	// recurrent IO. Feed it back on the next tick's request.
	Memory []float32

	// Value is the scalar value estimate; HasValue reports whether the
	// model produced one.
	Value    float32
	HasValue bool
}

// Manifest is the ordered agent list for one tick, fixed when the batch
// is collected. The order is the sole correspondence between tensor row
// index and agent and must not change within a tick.
type Manifest []AgentID
