// Package gemini implements provider.Provider against Google's Generative
// AI API via the official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/httpx"
	"github.com/studyforge/studyforge/internal/provider"
)

const retryBackoff = 1 * time.Second

// httpStatusError adapts a *genai.APIError's status code so httpx.Once can
// recognize retryable Gemini failures the same way it recognizes HTTP ones.
type httpStatusError struct {
	code int
	err  error
}

func (e *httpStatusError) Error() string       { return e.err.Error() }
func (e *httpStatusError) Unwrap() error       { return e.err }
func (e *httpStatusError) HTTPStatusCode() int { return e.code }

func wrapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return &httpStatusError{code: apiErr.Code, err: err}
	}
	return err
}

type Provider struct {
	client          *genai.Client
	embeddingModel  string
	completionModel string
}

func New(ctx context.Context, cfg config.ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider.api_key is required for provider.type=gemini")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}
	completionModel := cfg.CompletionModel
	if completionModel == "" {
		completionModel = "gemini-2.0-flash"
	}

	return &Provider{client: client, embeddingModel: embeddingModel, completionModel: completionModel}, nil
}

func (p *Provider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		model = p.embeddingModel
	}

	contents := make([]*genai.Content, len(inputs))
	for i, in := range inputs {
		contents[i] = genai.NewContentFromText(in, genai.RoleUser)
	}

	var resp *genai.EmbedContentResponse
	err := httpx.Once(ctx, nil, retryBackoff, func() error {
		var callErr error
		resp, callErr = p.client.Models.EmbedContent(ctx, model, contents, nil)
		return wrapGeminiError(callErr)
	})
	if err != nil {
		return nil, apierr.UpstreamErrorf(err, "gemini embed call failed")
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, apierr.UpstreamErrorf(nil, "gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (p *Provider) GenerateText(ctx context.Context, model string, messages []provider.Message, opts provider.GenerateOptions) (string, error) {
	if model == "" {
		model = p.completionModel
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	genCfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(opts.Temperature))}
	if opts.JSONSchema != nil {
		genCfg.ResponseMIMEType = "application/json"
	}

	var resp *genai.GenerateContentResponse
	err := httpx.Once(ctx, nil, retryBackoff, func() error {
		var callErr error
		resp, callErr = p.client.Models.GenerateContent(ctx, model, contents, genCfg)
		return wrapGeminiError(callErr)
	})
	if err != nil {
		return "", apierr.UpstreamErrorf(err, "gemini generate call failed")
	}
	text := resp.Text()
	if text == "" {
		return "", apierr.UpstreamErrorf(nil, "gemini returned an empty response")
	}
	return text, nil
}
