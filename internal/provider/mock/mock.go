// Package mock implements a deterministic, offline provider.Provider used
// for local development and as the default in defaultConfig. It never makes
// a network call.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyforge/studyforge/internal/provider"
)

type Provider struct {
	EmbeddingDims int
}

func New() *Provider {
	return &Provider{EmbeddingDims: 8}
}

func (p *Provider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	_ = ctx
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		h := sha256.Sum256([]byte(model + "\n" + s))
		vec := make([]float32, p.EmbeddingDims)
		for j := 0; j < p.EmbeddingDims; j++ {
			u := binary.LittleEndian.Uint32(h[(j*4)%len(h):])
			vec[j] = float32(u%10_000)/10_000.0 - 0.5
		}
		out[i] = vec
	}
	return out, nil
}

func (p *Provider) GenerateText(ctx context.Context, model string, messages []provider.Message, opts provider.GenerateOptions) (string, error) {
	_ = ctx
	_ = model

	if opts.JSONSchema != nil {
		return stubJSON(opts.JSONSchema), nil
	}

	var user string
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			user = messages[i].Content
			break
		}
	}
	if strings.TrimSpace(user) == "" {
		return "mock: ok", nil
	}
	return fmt.Sprintf("mock: %s", user), nil
}

// stubJSON fabricates a schema-conformant value by walking the JSON Schema
// and filling every required property with a zero-ish placeholder. It is
// deliberately naive: real structured-output correctness is exercised by the
// generators' own tests against a fake Completer, not by this provider.
func stubJSON(s *provider.JSONSchema) string {
	if s == nil || s.Schema == nil {
		return `{}`
	}
	v := stubValue(s.Schema)
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}

// mockOptions and mockCorrectAnswer are fixed stand-ins for the generators'
// "options"/"correct_answer" properties, which carry a structural contract
// (exactly 4 entries, each prefixed with a distinct letter A-D, and a
// correct_answer naming one of them) that a generic schema walk can't infer.
var mockOptions = []any{"A. mock option", "B. mock option", "C. mock option", "D. mock option"}

const mockCorrectAnswer = "A"

func stubValue(schema map[string]any) any {
	if enumAny, ok := schema["enum"].([]any); ok && len(enumAny) > 0 {
		return enumAny[0]
	}

	t := primaryType(schema)
	switch t {
	case "object":
		props, _ := schema["properties"].(map[string]any)
		out := map[string]any{}
		for k, raw := range props {
			switch k {
			case "options":
				out[k] = mockOptions
			case "correct_answer":
				out[k] = mockCorrectAnswer
			default:
				sub, _ := raw.(map[string]any)
				out[k] = stubValue(sub)
			}
		}
		return out
	case "array":
		items, _ := schema["items"].(map[string]any)
		return []any{stubValue(items)}
	case "integer", "number":
		return 0
	case "boolean":
		return false
	default:
		return "mock"
	}
}

// primaryType resolves schema["type"], which is either a plain string or (for
// a nullable property like QuizItemV1's short_answer-only options/
// correct_answer) a ["type", "null"] union. It picks the non-null arm so the
// stub is a concrete value instead of null, which the generators' structural
// checks treat as "not applicable" rather than "present but wrong".
func primaryType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, tv := range t {
			if ts, _ := tv.(string); ts != "" && ts != "null" {
				return ts
			}
		}
	}
	return ""
}
