// Package infer abstracts the neural inference backend behind a named
// inputs/fetches contract. The layer never inspects a backend beyond
// named-node lookup.
package infer

import (
	"context"
	"regexp"

	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
	"github.com/decisionlayer/tickbatch/pkg/tensor"
)

// Engine executes one batched call against a loaded model. A session is
// exclusively owned by one layer instance and is not shared.
type Engine interface {
	// HasNode reports whether the graph contains a node with this name.
	HasNode(name string) bool

	// Run feeds the named input tensors and returns one tensor per fetch
	// name, in fetch order. The call blocks until the backend completes;
	// no cancellation beyond ctx is provided.
	Run(ctx context.Context, inputs map[string]*tensor.Tensor, fetches []string) ([]*tensor.Tensor, error)

	// Close releases the backend session.
	Close() error
}

// Backend error strings frequently embed the offending node name in
// quotes. Extraction is diagnostic only and must never fail the caller.
var nodePattern = regexp.MustCompile(`(?:node|placeholder|tensor|input|output)\s+["']([^"']+)["']|["']([^"']+)["']`)

// WrapRunError re-raises a backend execution error as an InferenceFailed
// layer error, attaching the offending node name when one can be parsed
// out of the message.
func WrapRunError(err error) error {
	if err == nil {
		return nil
	}
	wrapped := layererr.Wrap(layererr.CodeInferenceFailed, "backend execution failed", err)
	if node := extractNode(err.Error()); node != "" {
		wrapped.WithNode(node)
	}
	return wrapped
}

func extractNode(msg string) string {
	m := nodePattern.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}
