package refgraph

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/decisionlayer/tickbatch/pkg/tensor"
)

// Engine executes a GraphDef. It satisfies the infer.Engine contract.
// Errors are reported as plain backend errors; the layer wraps them.
type Engine struct {
	def    *GraphDef
	closed bool
}

// New creates an engine over the given definition.
func New(def *GraphDef) (*Engine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &Engine{def: def}, nil
}

// HasNode reports whether name is a declared input, output, or const.
func (e *Engine) HasNode(name string) bool {
	if _, ok := e.def.Inputs[name]; ok {
		return true
	}
	if _, ok := e.def.Outputs[name]; ok {
		return true
	}
	_, ok := e.def.Consts[name]
	return ok
}

// Run validates the fed inputs against declared widths and produces one
// deterministic tensor per fetch. Output row i depends on the content of
// input row i, so result attribution survives through the layer's demux.
func (e *Engine) Run(ctx context.Context, inputs map[string]*tensor.Tensor, fetches []string) ([]*tensor.Tensor, error) {
	if e.closed {
		return nil, fmt.Errorf("refgraph: session closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := 1
	for name, in := range inputs {
		width, ok := e.def.Inputs[name]
		if !ok {
			return nil, fmt.Errorf("refgraph: no such node %q in graph", name)
		}
		if width > 0 && in.RowWidth() != width {
			return nil, fmt.Errorf("refgraph: shape mismatch for input %q: fed width %d, graph expects %d",
				name, in.RowWidth(), width)
		}
		if in.Rank() > 0 && in.Batch() > batch {
			batch = in.Batch()
		}
	}

	sigs := rowSignatures(inputs, batch)

	out := make([]*tensor.Tensor, len(fetches))
	for fi, name := range fetches {
		if c, ok := e.def.Consts[name]; ok {
			out[fi] = tensor.ScalarFloat(c)
			continue
		}
		width, ok := e.def.Outputs[name]
		if !ok {
			return nil, fmt.Errorf("refgraph: no such node %q in graph", name)
		}
		t := tensor.NewFloat(batch, width)
		for i := 0; i < batch; i++ {
			row := t.Row(i)
			for j := range row {
				row[j] = e.value(name, sigs[i], j)
			}
		}
		out[fi] = t
	}
	return out, nil
}

// Close releases the session; further Run calls fail.
func (e *Engine) Close() error {
	e.closed = true
	return nil
}

// rowSignatures folds each batch row of every float input into one
// per-row scalar so outputs track their originating row.
func rowSignatures(inputs map[string]*tensor.Tensor, batch int) []float64 {
	sigs := make([]float64, batch)
	for name, in := range inputs {
		if in.DType != tensor.Float32 || in.Rank() < 2 || in.Batch() != batch {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(name))
		salt := float64(h.Sum32()%saltMod) / saltMod
		for i := 0; i < batch; i++ {
			var sum float64
			for _, v := range in.Row(i) {
				sum += float64(v)
			}
			sigs[i] += sum * (1 + salt)
		}
	}
	return sigs
}

const saltMod = 977

func (e *Engine) value(fetch string, sig float64, j int) float32 {
	h := fnv.New32a()
	h.Write([]byte(fetch))
	x := float64(e.def.Seed) + float64(h.Sum32()%saltMod) + sig*7.31 + float64(j)*3.77
	return float32(math.Tanh(math.Sin(x) * 1.7))
}
