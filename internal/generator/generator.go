// Package generator provides text generation backends used by the agent.
package generator

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a backend produced no text at all.
var ErrEmptyResponse = errors.New("generator returned no text")

// Generator turns a prompt into text. Implementations make no promise about
// the structure of the returned text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Kind names a configured backend.
type Kind string

const (
	// KindMock is the deterministic fixture backend.
	KindMock Kind = "mock"
	// KindGemini calls the Gemini API.
	KindGemini Kind = "gemini"
	// KindGrpc calls a remote generator service.
	KindGrpc Kind = "grpc"
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMock, KindGemini, KindGrpc:
		return Kind(s), true
	default:
		return "", false
	}
}

// Ensure backends implement Generator.
var (
	_ Generator = (*Mock)(nil)
	_ Generator = (*GeminiGenerator)(nil)
	_ Generator = (*GrpcClient)(nil)
	_ Generator = (*Cached)(nil)
)
