package infer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
)

func TestWrapRunErrorNil(t *testing.T) {
	assert.NoError(t, WrapRunError(nil))
}

func TestWrapRunErrorCodeAndCause(t *testing.T) {
	cause := errors.New("session exhausted")
	err := WrapRunError(cause)

	assert.Equal(t, layererr.CodeInferenceFailed, layererr.CodeOf(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWrapRunErrorExtractsNode(t *testing.T) {
	cases := []struct {
		msg  string
		node string
	}{
		{`no such node "recurrent_in" in graph`, "recurrent_in"},
		{`feed dtype mismatch for placeholder 'epsilon'`, "epsilon"},
		{`invalid argument: "action_masks" expects float32`, "action_masks"},
		{`backend unavailable`, ""},
	}
	for _, tc := range cases {
		err := WrapRunError(fmt.Errorf("%s", tc.msg))
		var le *layererr.LayerError
		assert.True(t, errors.As(err, &le), tc.msg)
		assert.Equal(t, tc.node, le.Node, tc.msg)
	}
}
