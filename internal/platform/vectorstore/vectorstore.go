// Package vectorstore defines the namespaced vector index boundary: upsert,
// top-k cosine search, namespace listing, and namespace deletion. Every
// document's chunks live in the store under a namespace equal to the
// document_id; no cross-namespace reads ever occur.
package vectorstore

import "context"

// Vector is a single point to persist: an embedding plus the full chunk
// payload (text and provenance) the store must return unchanged on query.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// VectorMatch is a single search hit: similarity score plus the payload
// recorded at upsert time.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// NamespaceSummary describes one document namespace as seen by the store,
// used to answer list_documents without a side index.
type NamespaceSummary struct {
	Namespace   string
	VectorCount int
	// SampleMetadata is the payload of an arbitrary vector in the namespace,
	// used to recover the display filename.
	SampleMetadata map[string]any
}

type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error)
	ListNamespaces(ctx context.Context) ([]NamespaceSummary, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}
