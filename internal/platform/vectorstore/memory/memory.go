// Package memory is an in-process VectorStore used for local development
// and tests, so the ingestion and retrieval paths can run without a live
// Qdrant instance.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/studyforge/studyforge/internal/platform/vectorstore"
)

var _ vectorstore.VectorStore = (*Store)(nil)

type entry struct {
	values   []float32
	metadata map[string]any
}

// Store keeps every namespace's vectors in a plain map guarded by a single
// RWMutex; brute-force cosine search is fine at the scale a single process
// handles.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]entry // namespace -> vectorID -> entry
}

func New() *Store {
	return &Store{data: make(map[string]map[string]entry)}
}

func (s *Store) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.data[namespace]
	if ns == nil {
		ns = make(map[string]entry, len(vectors))
		s.data[namespace] = ns
	}
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			continue
		}
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		metadata := make(map[string]any, len(v.Metadata))
		for k, mv := range v.Metadata {
			metadata[k] = mv
		}
		ns[id] = entry{values: values, metadata: metadata}
	}
	return nil
}

func (s *Store) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]vectorstore.VectorMatch, error) {
	if topK <= 0 {
		topK = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.data[namespace]
	out := make([]vectorstore.VectorMatch, 0, len(ns))
	for id, e := range ns {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		out = append(out, vectorstore.VectorMatch{
			ID:       id,
			Score:    cosineSimilarity(q, e.values),
			Metadata: e.metadata,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *Store) ListNamespaces(ctx context.Context) ([]vectorstore.NamespaceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vectorstore.NamespaceSummary, 0, len(s.data))
	for ns, entries := range s.data {
		summary := vectorstore.NamespaceSummary{Namespace: ns, VectorCount: len(entries)}
		for _, e := range entries {
			summary.SampleMetadata = e.metadata
			break
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}

// matchesFilter supports only scalar equality and the "$in" operator; it is
// not a general filter engine.
func matchesFilter(metadata map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case map[string]any:
			if inVals, ok := w["$in"].([]any); ok {
				if !containsAny(inVals, got) {
					return false
				}
				continue
			}
			return false
		default:
			if !equalScalar(got, want) {
				return false
			}
		}
	}
	return true
}

func containsAny(vals []any, target any) bool {
	for _, v := range vals {
		if equalScalar(v, target) {
			return true
		}
	}
	return false
}

func equalScalar(a, b any) bool {
	return toComparable(a) == toComparable(b)
}

func toComparable(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
