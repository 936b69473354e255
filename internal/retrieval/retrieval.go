// Package retrieval turns a raw query into a ranked, token-budgeted set of
// chunks pulled from one document's vector-store namespace.
package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore"
	"github.com/studyforge/studyforge/internal/provider"
)

// minChunkChars below this threshold, a chunk's text is dropped outright
// (never truncated to something shorter) as too thin to carry meaning.
const minChunkChars = 50

// RetrievedChunk is a chunk plus its query similarity, ephemeral to one
// retrieval call.
type RetrievedChunk struct {
	ChunkIndex int
	PageNumber int
	Filename   string
	Text       string
	Similarity float64
}

type Service struct {
	embedder provider.Embedder
	store    vectorstore.VectorStore
	model    string
	cfg      config.RetrievalConfig
	log      *logger.Logger
}

func New(embedder provider.Embedder, store vectorstore.VectorStore, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		model:    cfg.Provider.EmbeddingModel,
		cfg:      cfg.Retrieval,
		log:      log.With("service", "RetrievalService"),
	}
}

// Retrieve embeds query, searches documentID's namespace for 2*k candidates,
// filters and ranks them, then greedily fills a token budget in rank order.
func (s *Service) Retrieve(ctx context.Context, documentID, query string, k int) ([]RetrievedChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	embeddings, err := s.embedder.Embed(ctx, s.model, []string{query})
	if err != nil {
		return nil, apierr.UpstreamErrorf(err, "embedding query failed")
	}
	if len(embeddings) != 1 {
		return nil, apierr.Internalf(nil, "embedder returned %d vectors for 1 query", len(embeddings))
	}

	matches, err := s.store.QueryMatches(ctx, documentID, embeddings[0], 2*k, nil)
	if err != nil {
		return nil, vectorstore.Wrap("query", err)
	}

	candidates := make([]RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		text, _ := m.Metadata["text"].(string)
		if countNonSpace(strings.TrimSpace(text)) < minChunkChars {
			continue
		}
		candidates = append(candidates, RetrievedChunk{
			ChunkIndex: toInt(m.Metadata["chunk_index"]),
			PageNumber: toInt(m.Metadata["page_number"]),
			Filename:   asString(m.Metadata["filename"]),
			Text:       text,
			Similarity: m.Score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if len(candidates[i].Text) != len(candidates[j].Text) {
			return len(candidates[i].Text) > len(candidates[j].Text)
		}
		return candidates[i].ChunkIndex < candidates[j].ChunkIndex
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	maxContextTokens := s.cfg.MaxContextTokens
	if maxContextTokens <= 0 {
		maxContextTokens = 4000
	}
	responseReserve := s.cfg.ResponseReserve
	if responseReserve <= 0 {
		responseReserve = 1000
	}
	budget := maxContextTokens - estimateTokens(query) - responseReserve
	if budget < 0 {
		budget = 0
	}

	out := make([]RetrievedChunk, 0, len(candidates))
	for _, c := range candidates {
		remaining := budget - estimateTokens(joinedTokenCount(out))
		if remaining <= 0 {
			break
		}
		needed := estimateTokens(c.Text)
		if needed <= remaining {
			out = append(out, c)
			continue
		}
		truncated := truncateToTokenBudget(c.Text, remaining)
		if countNonSpace(truncated) < minChunkChars {
			continue
		}
		c.Text = truncated
		out = append(out, c)
	}

	return out, nil
}

// estimateTokens follows the fixed heuristic: one token per four characters,
// rounded up.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

func joinedTokenCount(chunks []RetrievedChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	return b.String()
}

// truncateToTokenBudget cuts text to fit within budget tokens, preferring to
// end at the last sentence boundary that still fits.
func truncateToTokenBudget(text string, budget int) string {
	maxChars := budget * 4
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if idx := strings.LastIndexAny(cut, ".!?"); idx >= minChunkChars {
		return cut[:idx+1]
	}
	return cut
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(" \t\n\r", r) {
			n++
		}
	}
	return n
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
