// Package provider defines the two external-boundary abstractions the core
// depends on for model access: Embedder (text -> vector) and Completer
// (messages -> text). Both are provider-supplied per the external
// interfaces contract; the core never assumes a concrete backend.
package provider

import "context"

type Message struct {
	Role    string
	Content string
}

// JSONSchema pins a Completer call to structured output. Strict means the
// generator expects a schema-valid JSON value back and will retry once with
// a repair instruction on violation (see package schema).
type JSONSchema struct {
	Name   string
	Schema map[string]any
	Strict bool
}

type GenerateOptions struct {
	Temperature float64
	JSONSchema  *JSONSchema
}

// Embedder maps text to fixed-dimension vectors. Implementations MUST
// return vectors in the same order as inputs.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Completer maps a message history to a text completion.
type Completer interface {
	GenerateText(ctx context.Context, model string, messages []Message, opts GenerateOptions) (string, error)
}

// Provider is the combined boundary a single configured backend satisfies.
type Provider interface {
	Embedder
	Completer
}
