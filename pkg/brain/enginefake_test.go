package brain

import (
	"context"
	"fmt"

	"github.com/decisionlayer/tickbatch/pkg/config"
	"github.com/decisionlayer/tickbatch/pkg/tensor"
)

// fakeEngine is a scriptable backend for unit tests. The default Run
// only answers the probe's memory-size fetch; everything else goes
// through runFn.
type fakeEngine struct {
	nodes   map[string]bool
	memSize float32
	runFn   func(ctx context.Context, inputs map[string]*tensor.Tensor, fetches []string) ([]*tensor.Tensor, error)

	runs        int
	lastInputs  map[string]*tensor.Tensor
	lastFetches []string
	closed      bool
}

func (f *fakeEngine) HasNode(name string) bool { return f.nodes[name] }

func (f *fakeEngine) Run(ctx context.Context, inputs map[string]*tensor.Tensor, fetches []string) ([]*tensor.Tensor, error) {
	f.runs++
	f.lastInputs = inputs
	f.lastFetches = fetches

	if len(fetches) == 1 && fetches[0] == "memory_size" {
		return []*tensor.Tensor{tensor.ScalarFloat(f.memSize)}, nil
	}
	if f.runFn != nil {
		return f.runFn(ctx, inputs, fetches)
	}
	return nil, fmt.Errorf("fakeEngine: unscripted fetch %v", fetches)
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func defaultNodes() config.NodeNames {
	return config.NodeNames{
		BatchSize:         "batch_size",
		VectorObservation: "vector_observation",
		RecurrentIn:       "recurrent_in",
		RecurrentOut:      "recurrent_out",
		MemorySize:        "memory_size",
		Action:            "action",
		PreviousAction:    "prev_action",
		ActionMask:        "action_masks",
		ValueEstimate:     "value_estimate",
	}
}

func continuousCfg(size int) config.BrainConfig {
	return config.BrainConfig{
		Nodes:  defaultNodes(),
		Action: config.ActionSpace{Kind: config.ActionContinuous, Size: size},
	}
}

func discreteCfg(branches ...int) config.BrainConfig {
	return config.BrainConfig{
		Nodes:  defaultNodes(),
		Action: config.ActionSpace{Kind: config.ActionDiscrete, Branches: branches},
	}
}

// nodeSet builds the fake graph from node names.
func nodeSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
