package brain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionlayer/tickbatch/pkg/config"
	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
)

func TestProbeMissingActionIsFatal(t *testing.T) {
	eng := &fakeEngine{nodes: nodeSet("vector_observation")}

	_, err := Probe(context.Background(), eng, continuousCfg(2))
	require.Error(t, err)
	assert.Equal(t, layererr.CodeModelIncompatible, layererr.CodeOf(err))
	assert.True(t, layererr.IsFatal(err))
}

func TestProbeOptionalAbsencesClearFlags(t *testing.T) {
	eng := &fakeEngine{nodes: nodeSet("action", "vector_observation")}

	sig, err := Probe(context.Background(), eng, continuousCfg(2))
	require.NoError(t, err)

	assert.True(t, sig.HasVectorObservation)
	assert.False(t, sig.HasBatchSize)
	assert.False(t, sig.HasRecurrent)
	assert.False(t, sig.HasPreviousAction)
	assert.False(t, sig.HasActionMask)
	assert.False(t, sig.HasValueEstimate)
	assert.Equal(t, 0, sig.MemorySize)
	assert.Zero(t, eng.runs, "no recurrent pair, no extra inference call")
}

func TestProbeRecurrentPairFetchesMemorySize(t *testing.T) {
	eng := &fakeEngine{
		nodes:   nodeSet("action", "recurrent_in", "recurrent_out", "memory_size"),
		memSize: 8,
	}

	sig, err := Probe(context.Background(), eng, continuousCfg(2))
	require.NoError(t, err)

	assert.True(t, sig.HasRecurrent)
	assert.Equal(t, 8, sig.MemorySize)
	assert.Equal(t, 1, eng.runs, "exactly one extra inference call")
	assert.Equal(t, []string{"memory_size"}, eng.lastFetches)
}

func TestProbeRecurrentNeedsBothEnds(t *testing.T) {
	eng := &fakeEngine{nodes: nodeSet("action", "recurrent_in"), memSize: 8}

	sig, err := Probe(context.Background(), eng, continuousCfg(2))
	require.NoError(t, err)

	assert.False(t, sig.HasRecurrent)
	assert.Zero(t, eng.runs)
}

func TestProbeZeroMemorySizeDisablesRecurrence(t *testing.T) {
	eng := &fakeEngine{
		nodes:   nodeSet("action", "recurrent_in", "recurrent_out", "memory_size"),
		memSize: 0,
	}

	sig, err := Probe(context.Background(), eng, continuousCfg(2))
	require.NoError(t, err)
	assert.False(t, sig.HasRecurrent)
	assert.Equal(t, 0, sig.MemorySize)
}

func TestProbeVisualInputs(t *testing.T) {
	cfg := continuousCfg(2)
	cfg.Visual = []config.VisualSensor{
		{Name: "visual_observation_0"},
		{Name: "visual_observation_1", Grayscale: true},
	}
	eng := &fakeEngine{nodes: nodeSet("action", "visual_observation_0")}

	sig, err := Probe(context.Background(), eng, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"visual_observation_0"}, sig.VisualInputs)
}
