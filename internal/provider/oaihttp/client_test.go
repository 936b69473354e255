package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/provider"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestEmbed(t *testing.T) {
	cfg := config.ProviderConfig{
		Type:           "oai_http",
		BaseURL:        "http://upstream",
		EmbeddingsPath: "/v1/embeddings",
		Timeout:        config.Duration{Duration: 2 * time.Second},
	}

	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/embeddings" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			var in embeddingsRequest
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				t.Fatalf("decode req: %v", err)
			}
			if in.Model != "upstream-model" {
				t.Fatalf("model=%q", in.Model)
			}
			out := embeddingsResponse{
				Data: []struct {
					Embedding []float64 `json:"embedding"`
					Index     int       `json:"index"`
				}{
					{Embedding: []float64{0.1, 0.2}, Index: 0},
					{Embedding: []float64{0.3, 0.4}, Index: 1},
				},
			}
			b, _ := json.Marshal(out)
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(bytes.NewReader(b)),
			}, nil
		}),
	}

	p, err := NewWithHTTPClient(cfg, client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	p.limiter.SetBurst(1000)
	p.limiter.SetLimit(1000)

	vecs, err := p.Embed(context.Background(), "upstream-model", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("len=%d", len(vecs))
	}
	if len(vecs[0]) != 2 {
		t.Fatalf("dims=%d", len(vecs[0]))
	}
}

func TestGenerateText_JSONSchemaRetriesWithRepairPrompt(t *testing.T) {
	var calls int32

	cfg := config.ProviderConfig{
		Type:                "oai_http",
		BaseURL:             "http://upstream",
		ChatCompletionsPath: "/v1/chat/completions",
		Timeout:             config.Duration{Duration: 2 * time.Second},
		JSONSchema: config.JSONSchemaConfig{
			MaxRetries:     2,
			MaxPromptBytes: 4096,
		},
	}

	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			n := atomic.AddInt32(&calls, 1)

			var payload map[string]any
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				t.Fatalf("decode req: %v", err)
			}

			if n == 1 {
				if _, ok := payload["guided_json"]; !ok {
					t.Fatalf("expected guided_json on first attempt")
				}
				return jsonResponse(chatCompletionResponse{
					Choices: []struct {
						Message struct {
							Content string `json:"content,omitempty"`
						} `json:"message,omitempty"`
						Text string `json:"text,omitempty"`
					}{{Message: struct {
						Content string `json:"content,omitempty"`
					}{Content: "not json"}}},
				}), nil
			}

			if _, ok := payload["guided_json"]; ok {
				t.Fatalf("did not expect guided_json on retry")
			}
			msgsAny, _ := payload["messages"].([]any)
			if len(msgsAny) != 3 {
				t.Fatalf("expected 3 messages on retry, got %d", len(msgsAny))
			}
			return jsonResponse(chatCompletionResponse{
				Choices: []struct {
					Message struct {
						Content string `json:"content,omitempty"`
					} `json:"message,omitempty"`
					Text string `json:"text,omitempty"`
				}{{Message: struct {
					Content string `json:"content,omitempty"`
				}{Content: `{"ok":true}`}}},
			}), nil
		}),
	}

	p, err := NewWithHTTPClient(cfg, client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	p.limiter.SetBurst(1000)
	p.limiter.SetLimit(1000)

	out, err := p.GenerateText(context.Background(), "upstream-model", []provider.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "user"},
	}, provider.GenerateOptions{
		Temperature: 0,
		JSONSchema: &provider.JSONSchema{
			Name:   "test",
			Schema: map[string]any{"type": "object"},
			Strict: true,
		},
	})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if strings.TrimSpace(out) != `{"ok":true}` {
		t.Fatalf("out=%q", out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls=%d", got)
	}
}

func TestEmbedRetriesOnceAfterATransientFailure(t *testing.T) {
	var calls int32

	cfg := config.ProviderConfig{
		Type:           "oai_http",
		BaseURL:        "http://upstream",
		EmbeddingsPath: "/v1/embeddings",
		Timeout:        config.Duration{Duration: 2 * time.Second},
	}

	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return &http.Response{
					StatusCode: http.StatusServiceUnavailable,
					Header:     http.Header{},
					Body:       io.NopCloser(bytes.NewReader(nil)),
				}, nil
			}
			out := embeddingsResponse{Data: []struct {
				Embedding []float64 `json:"embedding"`
				Index     int       `json:"index"`
			}{{Embedding: []float64{0.1, 0.2}, Index: 0}}}
			b, _ := json.Marshal(out)
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(bytes.NewReader(b)),
			}, nil
		}),
	}

	p, err := NewWithHTTPClient(cfg, client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	p.limiter.SetBurst(1000)
	p.limiter.SetLimit(1000)

	vecs, err := p.Embed(context.Background(), "upstream-model", []string{"a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("len=%d", len(vecs))
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls=%d, want 2 (one retry after a 503)", got)
	}
}

func TestEmbedDoesNotRetryWhenRetryAfterIsZero(t *testing.T) {
	var calls int32

	cfg := config.ProviderConfig{
		Type:           "oai_http",
		BaseURL:        "http://upstream",
		EmbeddingsPath: "/v1/embeddings",
		Timeout:        config.Duration{Duration: 2 * time.Second},
	}

	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Header:     http.Header{"Retry-After": []string{"0"}},
				Body:       io.NopCloser(bytes.NewReader(nil)),
			}, nil
		}),
	}

	p, err := NewWithHTTPClient(cfg, client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	p.limiter.SetBurst(1000)
	p.limiter.SetLimit(1000)

	if _, err := p.Embed(context.Background(), "upstream-model", []string{"a"}); err == nil {
		t.Fatalf("expected an error from a persistent 503")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls=%d, want 1 (Retry-After: 0 means do not retry)", got)
	}
}

func jsonResponse(v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}
