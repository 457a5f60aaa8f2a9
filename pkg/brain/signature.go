package brain

import (
	"context"

	"github.com/decisionlayer/tickbatch/pkg/config"
	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
	"github.com/decisionlayer/tickbatch/pkg/infer"
)

// Signature records which optional inputs and outputs the loaded model
// supports. It is computed exactly once when a model is attached and
// never recomputed.
type Signature struct {
	HasBatchSize         bool
	HasVectorObservation bool
	HasRecurrent         bool
	HasPreviousAction    bool
	HasActionMask        bool
	HasValueEstimate     bool

	// VisualInputs lists the configured visual sensor names present in
	// the graph, in sensor order.
	VisualInputs []string

	// MemorySize is the recurrent state width, 0 when HasRecurrent is
	// false.
	MemorySize int
}

// Probe inspects the loaded model once. A missing action output is fatal:
// no usable decision can ever be produced. Every other absence is a
// capability reduction, not an error.
func Probe(ctx context.Context, eng infer.Engine, cfg config.BrainConfig) (Signature, error) {
	names := cfg.Nodes
	if !eng.HasNode(names.Action) {
		return Signature{}, layererr.New(layererr.CodeModelIncompatible,
			"model has no action output").WithNode(names.Action)
	}

	sig := Signature{
		HasBatchSize:         eng.HasNode(names.BatchSize),
		HasVectorObservation: eng.HasNode(names.VectorObservation),
		HasPreviousAction:    eng.HasNode(names.PreviousAction),
		HasActionMask:        eng.HasNode(names.ActionMask),
		HasValueEstimate:     eng.HasNode(names.ValueEstimate),
	}

	for _, vs := range cfg.Visual {
		if eng.HasNode(vs.Name) {
			sig.VisualInputs = append(sig.VisualInputs, vs.Name)
		}
	}

	if eng.HasNode(names.RecurrentIn) && eng.HasNode(names.RecurrentOut) {
		size, err := fetchMemorySize(ctx, eng, names.MemorySize)
		if err != nil {
			return Signature{}, err
		}
		if size > 0 {
			sig.HasRecurrent = true
			sig.MemorySize = size
		}
	}

	return sig, nil
}

// fetchMemorySize issues the one extra inference call that reads the
// model's fixed memory-size scalar.
func fetchMemorySize(ctx context.Context, eng infer.Engine, node string) (int, error) {
	out, err := eng.Run(ctx, nil, []string{node})
	if err != nil {
		return 0, infer.WrapRunError(err)
	}
	if len(out) != 1 || out[0].Len() == 0 {
		return 0, layererr.New(layererr.CodeInferenceFailed,
			"memory size fetch returned no value").WithNode(node)
	}
	t := out[0]
	if len(t.Ints) > 0 {
		return int(t.Ints[0]), nil
	}
	return int(t.Floats[0]), nil
}
