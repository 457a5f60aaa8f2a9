package refgraph

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionlayer/tickbatch/pkg/tensor"
)

func testDef() *GraphDef {
	return &GraphDef{
		Inputs: map[string]int{
			"vector_observation": 4,
			"recurrent_in":       8,
			"batch_size":         0,
		},
		Outputs: map[string]int{
			"action":         2,
			"recurrent_out":  8,
			"value_estimate": 1,
		},
		Consts: map[string]float32{"memory_size": 8},
		Seed:   42,
	}
}

func TestHasNode(t *testing.T) {
	eng, err := New(testDef())
	require.NoError(t, err)

	assert.True(t, eng.HasNode("vector_observation"))
	assert.True(t, eng.HasNode("action"))
	assert.True(t, eng.HasNode("memory_size"))
	assert.False(t, eng.HasNode("action_masks"))
}

func TestRunProducesFetchOrderAndShapes(t *testing.T) {
	eng, err := New(testDef())
	require.NoError(t, err)

	obs := tensor.NewFloat(3, 4)
	for i := range obs.Floats {
		obs.Floats[i] = float32(i) * 0.1
	}

	out, err := eng.Run(context.Background(),
		map[string]*tensor.Tensor{"vector_observation": obs},
		[]string{"action", "value_estimate"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].ShapeEquals(3, 2))
	assert.True(t, out[1].ShapeEquals(3, 1))
}

func TestRunDeterministicAndRowCorrelated(t *testing.T) {
	eng, err := New(testDef())
	require.NoError(t, err)

	obs := tensor.NewFloat(2, 4)
	copy(obs.Row(0), []float32{1, 2, 3, 4})
	copy(obs.Row(1), []float32{4, 3, 2, 1})

	first, err := eng.Run(context.Background(),
		map[string]*tensor.Tensor{"vector_observation": obs}, []string{"action"})
	require.NoError(t, err)
	second, err := eng.Run(context.Background(),
		map[string]*tensor.Tensor{"vector_observation": obs}, []string{"action"})
	require.NoError(t, err)
	assert.Equal(t, first[0].Floats, second[0].Floats)

	// Swapping input rows must swap output rows.
	swapped := tensor.NewFloat(2, 4)
	copy(swapped.Row(0), obs.Row(1))
	copy(swapped.Row(1), obs.Row(0))
	third, err := eng.Run(context.Background(),
		map[string]*tensor.Tensor{"vector_observation": swapped}, []string{"action"})
	require.NoError(t, err)

	assert.Equal(t, first[0].Row(0), third[0].Row(1))
	assert.Equal(t, first[0].Row(1), third[0].Row(0))
}

func TestRunConstFetch(t *testing.T) {
	eng, err := New(testDef())
	require.NoError(t, err)

	out, err := eng.Run(context.Background(), nil, []string{"memory_size"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, float32(8), out[0].Floats[0])
}

func TestRunRejectsUnknownAndMisshapen(t *testing.T) {
	eng, err := New(testDef())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = eng.Run(ctx, nil, []string{"no_such_output"})
	assert.ErrorContains(t, err, `"no_such_output"`)

	bad := tensor.NewFloat(2, 5)
	_, err = eng.Run(ctx, map[string]*tensor.Tensor{"vector_observation": bad}, []string{"action"})
	assert.ErrorContains(t, err, "shape mismatch")

	_, err = eng.Run(ctx, map[string]*tensor.Tensor{"unknown_in": tensor.NewFloat(1, 1)}, []string{"action"})
	assert.ErrorContains(t, err, `"unknown_in"`)
}

func TestClosedSession(t *testing.T) {
	eng, err := New(testDef())
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	_, err = eng.Run(context.Background(), nil, []string{"action"})
	assert.ErrorContains(t, err, "closed")
}

func TestBlobRoundTrip(t *testing.T) {
	def := testDef()
	var buf bytes.Buffer
	require.NoError(t, def.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, def.Inputs, loaded.Inputs)
	assert.Equal(t, def.Outputs, loaded.Outputs)
	assert.Equal(t, def.Consts, loaded.Consts)
	assert.Equal(t, def.Seed, loaded.Seed)
}

func TestParseManifest(t *testing.T) {
	src := []byte(`
inputs:
  vector_observation: 6
outputs:
  action: 3
consts:
  memory_size: 0
seed: 7
`)
	def, err := ParseManifest(src)
	require.NoError(t, err)
	assert.Equal(t, 6, def.Inputs["vector_observation"])
	assert.Equal(t, 3, def.Outputs["action"])

	_, err = ParseManifest([]byte(`inputs: {x: 1}`))
	assert.Error(t, err, "graph without outputs must be rejected")
}
