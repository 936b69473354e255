package gemini

import (
	"context"
	"testing"

	"github.com/studyforge/studyforge/internal/config"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), config.ProviderConfig{})
	if err == nil {
		t.Fatalf("expected an error when api_key is empty")
	}
}

func TestNewAppliesDefaultModels(t *testing.T) {
	p, err := New(context.Background(), config.ProviderConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.embeddingModel != "text-embedding-004" {
		t.Fatalf("embeddingModel = %q, want text-embedding-004", p.embeddingModel)
	}
	if p.completionModel != "gemini-2.0-flash" {
		t.Fatalf("completionModel = %q, want gemini-2.0-flash", p.completionModel)
	}
}

func TestNewHonorsConfiguredModels(t *testing.T) {
	p, err := New(context.Background(), config.ProviderConfig{
		APIKey:          "test-key",
		EmbeddingModel:  "custom-embed",
		CompletionModel: "custom-complete",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.embeddingModel != "custom-embed" {
		t.Fatalf("embeddingModel = %q, want custom-embed", p.embeddingModel)
	}
	if p.completionModel != "custom-complete" {
		t.Fatalf("completionModel = %q, want custom-complete", p.completionModel)
	}
}
