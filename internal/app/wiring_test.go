package app

import (
	"context"
	"testing"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:         "test",
		Provider:    config.ProviderConfig{Type: "mock", EmbeddingModel: "mock-embed", CompletionModel: "mock-complete"},
		VectorStore: config.VectorStoreConfig{Type: "memory"},
		Retrieval:   config.RetrievalConfig{MaxContextTokens: 4000, ResponseReserve: 1000},
		Adaptive:    config.AdaptiveConfig{QLAlpha: 0.1, QLGamma: 0.9, QLEpsilon: 0.2, BlendWeightQ: 0.7},
	}
}

func TestBuildServicesWithMockAndMemory(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	services, closer, err := BuildServices(context.Background(), testConfig(), log)
	if err != nil {
		t.Fatalf("BuildServices: %v", err)
	}
	defer closer()

	if services.Ingestion == nil || services.Retrieval == nil || services.QA == nil ||
		services.Generate == nil || services.Adaptive == nil {
		t.Fatalf("BuildServices left a nil service: %+v", services)
	}
}

func TestBuildServicesRejectsUnknownProvider(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	cfg := testConfig()
	cfg.Provider.Type = "not-a-real-provider"

	if _, _, err := BuildServices(context.Background(), cfg, log); err == nil {
		t.Fatalf("expected an error for an unknown provider type")
	}
}

func TestBuildServicesRejectsUnknownVectorStore(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	cfg := testConfig()
	cfg.VectorStore.Type = "not-a-real-store"

	if _, _, err := BuildServices(context.Background(), cfg, log); err == nil {
		t.Fatalf("expected an error for an unknown vector store type")
	}
}
