// Package errors provides the typed error taxonomy for the batching layer.
//
// Load-time errors (ModelIncompatible) are unrecoverable and prevent the
// layer from being constructed. Per-tick errors (ShapeMismatch,
// InferenceFailed, ConfigurationError) abort only the tick that raised
// them; the layer stays usable for the next tick.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies layer errors for logging, metrics, and recovery decisions.
type Code string

const (
	// CodeModelIncompatible indicates the loaded model is missing a
	// mandatory node and can never produce usable decisions.
	CodeModelIncompatible Code = "MODEL_INCOMPATIBLE"

	// CodeShapeMismatch indicates per-agent payload lengths disagree with
	// the declared tensor feature width for the current tick.
	CodeShapeMismatch Code = "SHAPE_MISMATCH"

	// CodeInferenceFailed indicates the inference backend rejected or
	// failed the batched call.
	CodeInferenceFailed Code = "INFERENCE_FAILED"

	// CodeConfiguration indicates a configured node name does not exist
	// in the loaded model.
	CodeConfiguration Code = "CONFIGURATION_ERROR"

	// CodeInvalidConfig indicates the configuration file or environment
	// could not be parsed or validated.
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// LayerError is a typed error carrying the taxonomy code, an optional
// offending node name, and the wrapped cause.
type LayerError struct {
	Code    Code
	Message string
	Node    string // offending graph node, diagnostic only, may be empty
	Err     error
}

func (e *LayerError) Error() string {
	switch {
	case e.Node != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s (node %q): %v", e.Code, e.Message, e.Node, e.Err)
	case e.Node != "":
		return fmt.Sprintf("[%s] %s (node %q)", e.Code, e.Message, e.Node)
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *LayerError) Unwrap() error { return e.Err }

// New creates a LayerError with the given code and message.
func New(code Code, msg string) *LayerError {
	return &LayerError{Code: code, Message: msg}
}

// Newf creates a LayerError with a formatted message.
func Newf(code Code, format string, args ...any) *LayerError {
	return &LayerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a LayerError wrapping cause. A nil cause yields a plain
// LayerError so call sites do not need to branch.
func Wrap(code Code, msg string, cause error) *LayerError {
	return &LayerError{Code: code, Message: msg, Err: cause}
}

// WithNode attaches the offending node name and returns the error.
func (e *LayerError) WithNode(node string) *LayerError {
	e.Node = node
	return e
}

// CodeOf extracts the taxonomy code from err, walking the unwrap chain.
// Errors that carry no LayerError map to the empty Code.
func CodeOf(err error) Code {
	var le *LayerError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether err is a load-time error that must prevent the
// layer from being used.
func IsFatal(err error) bool {
	return HasCode(err, CodeModelIncompatible)
}
