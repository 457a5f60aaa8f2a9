package brain

import (
	"github.com/decisionlayer/tickbatch/pkg/config"
	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
	"github.com/decisionlayer/tickbatch/pkg/tensor"
)

// demuxer splits the batched output tensors back into per-agent
// decisions, in manifest order.
type demuxer struct {
	sig    Signature
	names  config.NodeNames
	action config.ActionSpace
}

// fetchNames returns the fixed fetch order: action always, then
// recurrent-out and value-estimate when the signature enables them.
func (d *demuxer) fetchNames() []string {
	fetches := []string{d.names.Action}
	if d.sig.HasRecurrent {
		fetches = append(fetches, d.names.RecurrentOut)
	}
	if d.sig.HasValueEstimate {
		fetches = append(fetches, d.names.ValueEstimate)
	}
	return fetches
}

// demux consumes outputs in fetch order and produces one decision per
// manifest row. Row i of every output belongs to manifest[i].
func (d *demuxer) demux(manifest Manifest, outputs []*tensor.Tensor) ([]Decision, error) {
	want := len(d.fetchNames())
	if len(outputs) != want {
		return nil, layererr.Newf(layererr.CodeInferenceFailed,
			"backend returned %d outputs, expected %d", len(outputs), want)
	}

	next := 0
	take := func() *tensor.Tensor {
		t := outputs[next]
		next++
		return t
	}

	actions := take()
	var memories, values *tensor.Tensor
	if d.sig.HasRecurrent {
		memories = take()
	}
	if d.sig.HasValueEstimate {
		values = take()
	}

	batch := len(manifest)
	actionWidth := d.action.Width()
	if err := checkOutput(d.names.Action, actions, batch, actionWidth); err != nil {
		return nil, err
	}
	if memories != nil {
		if err := checkOutput(d.names.RecurrentOut, memories, batch, d.sig.MemorySize); err != nil {
			return nil, err
		}
	}
	if values != nil {
		if err := checkOutput(d.names.ValueEstimate, values, batch, 1); err != nil {
			return nil, err
		}
	}

	decisions := make([]Decision, batch)
	for i, id := range manifest {
		dec := Decision{
			Agent:  id,
			Action: readRow(actions, i, actionWidth),
		}
		if memories != nil {
			dec.Memory = readRow(memories, i, d.sig.MemorySize)
		}
		if values != nil {
			// Value estimates go through the same dtype widening as
			// actions; a discrete backend may emit them integer-coded.
			dec.Value = readRow(values, i, 1)[0]
			dec.HasValue = true
		}
		decisions[i] = dec
	}
	return decisions, nil
}

func checkOutput(name string, t *tensor.Tensor, batch, width int) error {
	if t.Batch() != batch {
		return layererr.Newf(layererr.CodeInferenceFailed,
			"output batch dimension is %d, manifest has %d agents", t.Batch(), batch).
			WithNode(name)
	}
	if t.RowWidth() < width {
		return layererr.Newf(layererr.CodeInferenceFailed,
			"output row width is %d, need %d", t.RowWidth(), width).
			WithNode(name)
	}
	return nil
}

// readRow copies the first width values of row i, casting integer-coded
// backend outputs to float.
func readRow(t *tensor.Tensor, i, width int) []float32 {
	out := make([]float32, width)
	if t.DType == tensor.Int32 {
		for j, v := range t.RowInts(i)[:width] {
			out[j] = float32(v)
		}
		return out
	}
	copy(out, t.Row(i)[:width])
	return out
}
