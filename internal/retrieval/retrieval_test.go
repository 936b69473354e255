package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore"
	"github.com/studyforge/studyforge/internal/platform/vectorstore/memory"
	mockprovider "github.com/studyforge/studyforge/internal/provider/mock"
)

func newTestService(t *testing.T, cfg config.RetrievalConfig) (*Service, vectorstore.VectorStore) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store := memory.New()
	svc := New(mockprovider.New(), store, &config.Config{
		Provider:  config.ProviderConfig{EmbeddingModel: "mock-embed"},
		Retrieval: cfg,
	}, log)
	return svc, store
}

func seed(t *testing.T, embedder *mockprovider.Provider, store vectorstore.VectorStore, namespace string, texts []string) {
	t.Helper()
	embeddings, err := embedder.Embed(context.Background(), "mock-embed", texts)
	if err != nil {
		t.Fatalf("embed seed: %v", err)
	}
	vectors := make([]vectorstore.Vector, len(texts))
	for i, text := range texts {
		vectors[i] = vectorstore.Vector{
			ID:     namespace + "-" + string(rune('0'+i)),
			Values: embeddings[i],
			Metadata: map[string]any{
				"text":        text,
				"filename":    "doc.pdf",
				"page_number": i + 1,
				"chunk_index": i,
			},
		}
	}
	if err := store.Upsert(context.Background(), namespace, vectors); err != nil {
		t.Fatalf("upsert seed: %v", err)
	}
}

func TestRetrieveZeroKReturnsEmptyWithoutUpstreamCall(t *testing.T) {
	svc, _ := newTestService(t, config.RetrievalConfig{MaxContextTokens: 4000, ResponseReserve: 1000})
	out, err := svc.Retrieve(context.Background(), "doc-1", "what is this?", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no chunks for k=0, got %d", len(out))
	}
}

func TestRetrieveDropsChunksShorterThanMinChars(t *testing.T) {
	embedder := mockprovider.New()
	svc, store := newTestService(t, config.RetrievalConfig{MaxContextTokens: 4000, ResponseReserve: 1000})
	seed(t, embedder, store, "doc-1", []string{
		"too short",
		strings.Repeat("photosynthesis converts light energy into chemical energy. ", 3),
	})

	out, err := svc.Retrieve(context.Background(), "doc-1", "what does photosynthesis do?", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, c := range out {
		if countNonSpace(c.Text) < minChunkChars {
			t.Fatalf("chunk below min chars survived filtering: %q", c.Text)
		}
	}
}

func TestRetrieveRanksBySimilarityThenLengthThenIndex(t *testing.T) {
	embedder := mockprovider.New()
	svc, store := newTestService(t, config.RetrievalConfig{MaxContextTokens: 4000, ResponseReserve: 1000})
	seed(t, embedder, store, "doc-1", []string{
		strings.Repeat("alpha beta gamma delta epsilon. ", 5),
		strings.Repeat("photosynthesis converts light energy into chemical energy. ", 5),
	})

	out, err := svc.Retrieve(context.Background(), "doc-1", "photosynthesis converts light energy into chemical energy.", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	for i := 1; i < len(out); i++ {
		if out[i].Similarity > out[i-1].Similarity {
			t.Fatalf("chunks not sorted by descending similarity: %v", out)
		}
	}
}

func TestRetrieveTruncatesAtSentenceBoundaryWhenOverBudget(t *testing.T) {
	embedder := mockprovider.New()
	svc, store := newTestService(t, config.RetrievalConfig{MaxContextTokens: 60, ResponseReserve: 10})
	seed(t, embedder, store, "doc-1", []string{
		strings.Repeat("Photosynthesis converts light into chemical energy. ", 20),
	})

	out, err := svc.Retrieve(context.Background(), "doc-1", "photosynthesis", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, c := range out {
		if len(c.Text) > 0 {
			last := c.Text[len(c.Text)-1]
			if !strings.ContainsRune(".!?", rune(last)) {
				t.Fatalf("truncated text does not end at sentence boundary: %q", c.Text)
			}
		}
	}
}
