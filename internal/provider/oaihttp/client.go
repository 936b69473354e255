// Package oaihttp implements provider.Provider against any OpenAI
// chat-completions/embeddings compatible HTTP server.
package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/httpx"
	"github.com/studyforge/studyforge/internal/provider"
)

const retryBackoff = 1 * time.Second

type Provider struct {
	baseURL string
	apiKey  string

	chatCompletionsPath string
	embeddingsPath      string

	timeout time.Duration

	jsonSchemaMaxRetries     int
	jsonSchemaMaxPromptBytes int

	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(cfg config.ProviderConfig) (*Provider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oai_http: base_url required")
	}

	chatPath := strings.TrimSpace(cfg.ChatCompletionsPath)
	if chatPath == "" {
		chatPath = "/v1/chat/completions"
	}
	embPath := strings.TrimSpace(cfg.EmbeddingsPath)
	if embPath == "" {
		embPath = "/v1/embeddings"
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxRetries := cfg.JSONSchema.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	maxPromptBytes := cfg.JSONSchema.MaxPromptBytes
	if maxPromptBytes <= 0 {
		maxPromptBytes = 64 << 10
	}

	return &Provider{
		baseURL:                  baseURL,
		apiKey:                   strings.TrimSpace(cfg.APIKey),
		chatCompletionsPath:      chatPath,
		embeddingsPath:           embPath,
		timeout:                  timeout,
		jsonSchemaMaxRetries:     maxRetries,
		jsonSchemaMaxPromptBytes: maxPromptBytes,
		httpClient:               &http.Client{Transport: tr},
		// Upstream providers commonly throttle at low double-digit RPS; pace
		// outbound calls client-side so a burst of ingestion batches degrades
		// into queueing instead of a wave of 429s.
		limiter: rate.NewLimiter(rate.Limit(20), 20),
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using
// a custom RoundTripper.
func NewWithHTTPClient(cfg config.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		e.httpClient = httpClient
	}
	return e, nil
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *Provider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := embeddingsRequest{Model: model, Input: inputs}

	var resp embeddingsResponse
	if err := p.doJSON(ctx, p.timeout, "POST", p.embeddingsPath, reqBody, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = toFloat32(d.Embedding)
	}
	// Best-effort recovery: some servers omit indices but keep ordering.
	for i := range out {
		if out[i] == nil && i < len(resp.Data) {
			out[i] = toFloat32(resp.Data[i].Embedding)
		}
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("embeddings missing index=%d (model=%s)", i, model)
		}
	}
	return out, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`

	ResponseFormat map[string]any `json:"response_format,omitempty"`
	GuidedJSON     any            `json:"guided_json,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
}

func (p *Provider) GenerateText(ctx context.Context, model string, messages []provider.Message, opts provider.GenerateOptions) (string, error) {
	chatMsgs := toChatMessages(messages)
	if len(chatMsgs) == 0 {
		return "", errors.New("no messages")
	}

	attempts := 1
	if opts.JSONSchema != nil && opts.JSONSchema.Strict {
		attempts = 1 + p.jsonSchemaMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
		reqBody := p.buildChatRequest(model, chatMsgs, opts, attempt)

		var resp chatCompletionResponse
		if err := p.doJSON(ctx, p.timeout, "POST", p.chatCompletionsPath, reqBody, &resp); err != nil {
			lastErr = err
			continue
		}

		text := extractChatText(resp)
		if strings.TrimSpace(text) == "" {
			lastErr = errors.New("empty upstream completion")
			continue
		}

		if opts.JSONSchema != nil && opts.JSONSchema.Strict {
			clean := sanitizeJSONText(text)
			if err := validateJSON(clean); err != nil {
				lastErr = err
				continue
			}
			return clean, nil
		}

		return text, nil
	}

	if lastErr == nil {
		lastErr = errors.New("generation failed")
	}
	return "", lastErr
}

func (p *Provider) buildChatRequest(model string, messages []chatMessage, opts provider.GenerateOptions, attempt int) chatCompletionRequest {
	req := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
	}
	if opts.JSONSchema == nil {
		return req
	}

	// First attempt asks for guided decoding when the schema is present;
	// repair attempts fall back to a prompt-injected schema instruction,
	// since a server that rejected guided_json once is unlikely to accept
	// it on retry with the same shape.
	if attempt == 0 && opts.JSONSchema.Schema != nil {
		req.ResponseFormat = map[string]any{"type": "json_object"}
		req.GuidedJSON = opts.JSONSchema.Schema
	} else {
		req.Messages = append(req.Messages, chatMessage{
			Role:    "system",
			Content: p.jsonSchemaPrompt(opts.JSONSchema),
		})
	}
	return req
}

func (p *Provider) jsonSchemaPrompt(s *provider.JSONSchema) string {
	if s == nil {
		return "Return ONLY valid JSON. Do not include markdown or commentary."
	}
	var schemaText string
	if s.Schema != nil {
		if b, err := json.Marshal(s.Schema); err == nil && len(b) <= p.jsonSchemaMaxPromptBytes {
			schemaText = string(b)
		}
	}
	var b strings.Builder
	b.WriteString("Return ONLY a valid JSON value that conforms to the provided JSON Schema. Do not include markdown or commentary.\n")
	if name := strings.TrimSpace(s.Name); name != "" {
		b.WriteString("Schema name: " + name + "\n")
	}
	if schemaText != "" {
		b.WriteString("Schema:\n" + schemaText + "\n")
	}
	return strings.TrimSpace(b.String())
}

func toChatMessages(messages []provider.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.TrimSpace(m.Role)
		content := strings.TrimSpace(m.Content)
		if role == "" || content == "" {
			continue
		}
		out = append(out, chatMessage{Role: role, Content: content})
	}
	return out
}

func extractChatText(resp chatCompletionResponse) string {
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content
		}
		if strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}

func sanitizeJSONText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func validateJSON(s string) error {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// doJSON performs the request, retrying once after a fixed backoff if
// the failure looks transient (connection reset, HTTP 5xx/408/429 without an
// explicit Retry-After: 0). This is independent of and sits underneath any
// schema-repair retry loop the caller layers on top.
func (p *Provider) doJSON(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	return httpx.Once(ctx, nil, retryBackoff, func() error {
		return p.doJSONOnce(ctx, timeout, method, path, body, out)
	})
}

func (p *Provider) doJSONOnce(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2 := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx2, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx2, method, p.baseURL+path, &buf)
	if err != nil {
		return err
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				httpErr.RetryAfter = secs
				httpErr.HasRetryAfter = true
			}
		}
		return httpErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
