package brain

import (
	"math/rand"

	"github.com/decisionlayer/tickbatch/pkg/config"
	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
	"github.com/decisionlayer/tickbatch/pkg/infer"
	"github.com/decisionlayer/tickbatch/pkg/tensor"
	"github.com/decisionlayer/tickbatch/pkg/visual"
)

// builder constructs the signature-gated input tensor set for one tick.
// All tensors are created fresh per tick and discarded at CLEAR; nothing
// here survives across ticks.
type builder struct {
	sig Signature
	cfg config.BrainConfig
	eng infer.Engine
	rng *rand.Rand

	presentVisual map[string]bool
}

func newBuilder(sig Signature, cfg config.BrainConfig, eng infer.Engine, seed int64) *builder {
	present := make(map[string]bool, len(sig.VisualInputs))
	for _, name := range sig.VisualInputs {
		present[name] = true
	}
	return &builder{
		sig:           sig,
		cfg:           cfg,
		eng:           eng,
		rng:           rand.New(rand.NewSource(seed)),
		presentVisual: present,
	}
}

// build constructs one tensor per signature-enabled input, in the fixed
// feed order: batch size, fixed auxiliary inputs, vector observation,
// previous action, action mask, visual observations, recurrent memory.
// Every tensor's first dimension equals len(manifest).
func (b *builder) build(manifest Manifest, requests []*ObservationRequest) (*TensorSet, error) {
	batch := len(manifest)
	set := newTensorSet()

	if b.sig.HasBatchSize {
		set.add(b.cfg.Nodes.BatchSize, tensor.ScalarInt(int32(batch)))
	}

	for _, aux := range b.cfg.Aux {
		t, err := b.drawAux(aux)
		if err != nil {
			return nil, err
		}
		set.add(aux.Name, t)
	}

	if b.sig.HasVectorObservation {
		t, err := b.vectorObservations(manifest, requests)
		if err != nil {
			return nil, err
		}
		set.add(b.cfg.Nodes.VectorObservation, t)
	}

	if b.sig.HasPreviousAction {
		t, err := b.previousActions(manifest, requests)
		if err != nil {
			return nil, err
		}
		set.add(b.cfg.Nodes.PreviousAction, t)
	}

	if b.sig.HasActionMask {
		t, err := b.actionMasks(manifest, requests)
		if err != nil {
			return nil, err
		}
		set.add(b.cfg.Nodes.ActionMask, t)
	}

	for sensor, vs := range b.cfg.Visual {
		if !b.presentVisual[vs.Name] {
			continue
		}
		t, err := b.visualObservations(manifest, requests, sensor, vs)
		if err != nil {
			return nil, err
		}
		set.add(vs.Name, t)
	}

	if b.sig.HasRecurrent {
		set.add(b.cfg.Nodes.RecurrentIn, b.recurrentMemories(requests))
	}

	return set, nil
}

// drawAux samples one value uniformly in [min,max] and broadcasts it to
// the whole batch as a scalar feed. The value models a shared exogenous
// control signal, not a per-agent feature.
func (b *builder) drawAux(aux config.AuxInput) (*tensor.Tensor, error) {
	if !b.eng.HasNode(aux.Name) {
		return nil, layererr.Newf(layererr.CodeConfiguration,
			"fixed auxiliary input %q does not exist in the model", aux.Name).
			WithNode(aux.Name)
	}
	if aux.Kind == config.KindInteger {
		lo, hi := int64(aux.Min), int64(aux.Max)
		v := lo
		if hi > lo {
			v = lo + b.rng.Int63n(hi-lo+1)
		}
		return tensor.ScalarInt(int32(v)), nil
	}
	v := aux.Min + b.rng.Float64()*(aux.Max-aux.Min)
	return tensor.ScalarFloat(float32(v)), nil
}

func (b *builder) vectorObservations(manifest Manifest, requests []*ObservationRequest) (*tensor.Tensor, error) {
	width := len(requests[0].VectorObservation)
	t := tensor.NewFloat(len(requests), width)
	for i, req := range requests {
		if len(req.VectorObservation) != width {
			return nil, layererr.Newf(layererr.CodeShapeMismatch,
				"agent %s supplies %d vector observation values, batch width is %d",
				manifest[i], len(req.VectorObservation), width)
		}
		copy(t.Row(i), req.VectorObservation)
	}
	return t, nil
}

// previousActions encodes each agent's last action, truncated toward
// zero to its integer encoding.
func (b *builder) previousActions(manifest Manifest, requests []*ObservationRequest) (*tensor.Tensor, error) {
	width := b.cfg.Action.Width()
	t := tensor.NewInt(len(requests), width)
	for i, req := range requests {
		if req.PreviousAction == nil {
			continue
		}
		if len(req.PreviousAction) != width {
			return nil, layererr.Newf(layererr.CodeShapeMismatch,
				"agent %s supplies %d previous action values, want %d",
				manifest[i], len(req.PreviousAction), width)
		}
		row := t.RowInts(i)
		for j, v := range req.PreviousAction {
			row[j] = int32(v)
		}
	}
	return t, nil
}

// actionMasks writes 1.0 for allowed values and 0.0 for forbidden ones.
// Agents with no mask get a fully unmasked row.
func (b *builder) actionMasks(manifest Manifest, requests []*ObservationRequest) (*tensor.Tensor, error) {
	width := b.cfg.Action.TotalDiscrete()
	t := tensor.NewFloat(len(requests), width)
	for i, req := range requests {
		row := t.Row(i)
		if req.ActionMask == nil {
			for j := range row {
				row[j] = 1
			}
			continue
		}
		if len(req.ActionMask) != width {
			return nil, layererr.Newf(layererr.CodeShapeMismatch,
				"agent %s supplies a %d-value action mask, want %d",
				manifest[i], len(req.ActionMask), width)
		}
		for j, allowed := range req.ActionMask {
			if allowed {
				row[j] = 1
			}
		}
	}
	return t, nil
}

func (b *builder) visualObservations(manifest Manifest, requests []*ObservationRequest, sensor int, vs config.VisualSensor) (*tensor.Tensor, error) {
	buffers := make([]visual.ImageBuffer, len(requests))
	for i, req := range requests {
		if sensor >= len(req.VisualObservations) {
			return nil, layererr.Newf(layererr.CodeShapeMismatch,
				"agent %s supplies %d visual observations, sensor %d (%s) needs one",
				manifest[i], len(req.VisualObservations), sensor, vs.Name)
		}
		buffers[i] = req.VisualObservations[sensor]
	}
	return visual.Encode(buffers, vs.Grayscale)
}

// recurrentMemories copies each agent's stored memory vector, trusting
// the agent seeded it from the previous tick's output. Short or missing
// vectors are zero-padded, long ones truncated.
func (b *builder) recurrentMemories(requests []*ObservationRequest) *tensor.Tensor {
	t := tensor.NewFloat(len(requests), b.sig.MemorySize)
	for i, req := range requests {
		copy(t.Row(i), req.Memory)
	}
	return t
}
