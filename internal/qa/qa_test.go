package qa

import (
	"context"
	"strings"
	"testing"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore"
	"github.com/studyforge/studyforge/internal/platform/vectorstore/memory"
	"github.com/studyforge/studyforge/internal/provider"
	mockprovider "github.com/studyforge/studyforge/internal/provider/mock"
	"github.com/studyforge/studyforge/internal/retrieval"
)

// scriptedCompleter returns canned answers in call order, letting tests
// assert on the exact grounded vs. fallback prompt flow.
type scriptedCompleter struct {
	responses []string
	calls     []string
}

func (c *scriptedCompleter) GenerateText(ctx context.Context, model string, messages []provider.Message, opts provider.GenerateOptions) (string, error) {
	if len(messages) > 0 {
		c.calls = append(c.calls, messages[len(messages)-1].Content)
	}
	if len(c.responses) == 0 {
		return "mock", nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func newTestSetup(t *testing.T) (*retrieval.Service, vectorstore.VectorStore, *mockprovider.Provider) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store := memory.New()
	embedder := mockprovider.New()
	cfg := &config.Config{
		Provider:  config.ProviderConfig{EmbeddingModel: "mock-embed", CompletionModel: "mock-complete"},
		Retrieval: config.RetrievalConfig{MaxContextTokens: 4000, ResponseReserve: 1000},
	}
	svc := retrieval.New(embedder, store, cfg, log)
	return svc, store, embedder
}

func seedDoc(t *testing.T, embedder *mockprovider.Provider, store vectorstore.VectorStore, namespace string, sentence string, page int) {
	t.Helper()
	embeddings, err := embedder.Embed(context.Background(), "mock-embed", []string{sentence})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	err = store.Upsert(context.Background(), namespace, []vectorstore.Vector{{
		ID:     namespace + "-0",
		Values: embeddings[0],
		Metadata: map[string]any{
			"text":        sentence,
			"filename":    "bio.pdf",
			"page_number": page,
			"chunk_index": 0,
		},
	}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func TestAnswerGroundedFlowReturnsSourcesAndFromDocumentTrue(t *testing.T) {
	retrievalSvc, store, embedder := newTestSetup(t)
	sentence := strings.Repeat("Photosynthesis converts light energy into chemical energy stored in glucose. ", 3)
	seedDoc(t, embedder, store, "doc-1", sentence, 2)

	completer := &scriptedCompleter{responses: []string{
		"Photosynthesis converts light energy into chemical energy stored in glucose.",
	}}
	log, _ := logger.New("test")
	svc := New(retrievalSvc, completer, &config.Config{Provider: config.ProviderConfig{CompletionModel: "mock-complete"}}, log)

	answer, err := svc.Answer(context.Background(), "doc-1", "What does photosynthesis do?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !answer.FromDocument {
		t.Fatalf("expected from_document=true, got answer=%+v", answer)
	}
	if len(answer.Sources) == 0 {
		t.Fatalf("expected at least one source")
	}
	if answer.Sources[0].PageNumber != 2 {
		t.Fatalf("source page = %d, want 2", answer.Sources[0].PageNumber)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("expected exactly one completer call for grounded flow, got %d", len(completer.calls))
	}
}

func TestAnswerFallsBackWhenRetrievalIsEmpty(t *testing.T) {
	retrievalSvc, _, _ := newTestSetup(t)
	completer := &scriptedCompleter{responses: []string{
		"irrelevant grounded-style answer",
		"I'm sorry, this information is not in the uploaded materials. Here is what I know generally.",
	}}
	log, _ := logger.New("test")
	svc := New(retrievalSvc, completer, &config.Config{Provider: config.ProviderConfig{CompletionModel: "mock-complete"}}, log)

	answer, err := svc.Answer(context.Background(), "doc-empty", "Who won the 2024 Olympic 100m final?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer.FromDocument {
		t.Fatalf("expected from_document=false with no retrieved chunks")
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("expected no sources on fallback path")
	}
	if len(completer.calls) != 2 {
		t.Fatalf("expected two completer calls (grounded attempt + fallback), got %d", len(completer.calls))
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	retrievalSvc, _, _ := newTestSetup(t)
	log, _ := logger.New("test")
	svc := New(retrievalSvc, &scriptedCompleter{}, &config.Config{}, log)

	_, err := svc.Answer(context.Background(), "doc-1", "   ")
	if err == nil {
		t.Fatalf("expected error for empty question")
	}
}
