// Package ingestion turns an uploaded PDF into embedded, page-anchored
// chunks persisted under a per-document namespace in the vector store.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/studyforge/studyforge/internal/chunk"
	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/pdftext"
	"github.com/studyforge/studyforge/internal/platform/apierr"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore"
	"github.com/studyforge/studyforge/internal/provider"
)

// Document describes one ingested PDF as reported by list_documents.
type Document struct {
	ID         string    `json:"document_id"`
	Filename   string    `json:"filename"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

const (
	metaFilename   = "filename"
	metaText       = "text"
	metaPageNumber = "page_number"
	metaChunkIndex = "chunk_index"
	metaTotalPages = "total_pages"
	metaIngestedAt = "ingested_at"
)

type Service struct {
	embedder provider.Embedder
	store    vectorstore.VectorStore
	chunkCfg config.ChunkConfig
	ingCfg   config.IngestionConfig
	retCfg   config.RetrievalConfig
	model    string
	log      *logger.Logger
}

func New(embedder provider.Embedder, store vectorstore.VectorStore, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		chunkCfg: cfg.Chunk,
		ingCfg:   cfg.Ingestion,
		retCfg:   cfg.Retrieval,
		model:    cfg.Provider.EmbeddingModel,
		log:      log.With("service", "IngestionService"),
	}
}

// Ingest extracts, chunks, embeds, and upserts filename's PDF bytes. On any
// failure after chunks begin landing in the store, the partially written
// namespace is deleted so a document is never left half-indexed.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (*Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apierr.BadInputf("filename is required")
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, apierr.BadInputf("only PDF uploads are supported, got %q", filename)
	}

	totalPages, err := pdftext.TotalPages(data)
	if err != nil {
		return nil, err
	}
	if s.ingCfg.MaxPagesTotal > 0 && totalPages > s.ingCfg.MaxPagesTotal {
		return nil, apierr.BadInputf(
			"%q has %d pages, exceeding the %d page limit", filename, totalPages, s.ingCfg.MaxPagesTotal,
		)
	}

	pages, err := pdftext.Extract(filename, data)
	if err != nil {
		return nil, err
	}

	chunks := chunk.Split(pages, s.chunkCfg.ChunkSize, s.chunkCfg.ChunkOverlap, s.retCfg.MinChunkChars)
	if len(chunks) == 0 {
		return nil, apierr.BadInputf("%q produced no usable chunks", filename)
	}

	documentID := uuid.NewString()
	ingestedAt := time.Now().UTC()

	if err := s.embedAndUpsert(ctx, documentID, filename, totalPages, ingestedAt, chunks); err != nil {
		if delErr := s.store.DeleteNamespace(context.Background(), documentID); delErr != nil {
			s.log.Warn("rollback delete failed after ingestion error", "document_id", documentID, "error", delErr)
		}
		return nil, err
	}

	return &Document{
		ID:         documentID,
		Filename:   filename,
		PageCount:  totalPages,
		ChunkCount: len(chunks),
		IngestedAt: ingestedAt,
	}, nil
}

func (s *Service) embedAndUpsert(ctx context.Context, documentID, filename string, totalPages int, ingestedAt time.Time, chunks []chunk.Chunk) error {
	batchSize := s.ingCfg.MaxBatchSize
	if batchSize <= 0 || batchSize > 96 {
		batchSize = 96
	}
	concurrency := s.ingCfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	type batch struct {
		chunks []chunk.Chunk
	}
	var batches []batch
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, batch{chunks: chunks[start:end]})
	}

	vectors := make([][]vectorstore.Vector, len(batches))
	sem := semaphore.NewWeighted(int64(concurrency))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, b := range batches {
		i, b := i, b
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			inputs := make([]string, len(b.chunks))
			for j, c := range b.chunks {
				inputs[j] = c.Text
			}
			embeddings, err := s.embedder.Embed(groupCtx, s.model, inputs)
			if err != nil {
				return apierr.UpstreamErrorf(err, "embedding batch failed for %q", filename)
			}
			if len(embeddings) != len(b.chunks) {
				return apierr.Internalf(nil, "embedder returned %d vectors for %d chunks", len(embeddings), len(b.chunks))
			}

			batchVectors := make([]vectorstore.Vector, len(b.chunks))
			for j, c := range b.chunks {
				batchVectors[j] = vectorstore.Vector{
					ID:     fmt.Sprintf("%s-%d", documentID, c.ChunkIndex),
					Values: embeddings[j],
					Metadata: map[string]any{
						metaFilename:   filename,
						metaText:       c.Text,
						metaPageNumber: c.PageNumber,
						metaChunkIndex: c.ChunkIndex,
						metaTotalPages: totalPages,
						metaIngestedAt: ingestedAt.Format(time.RFC3339),
					},
				}
			}
			vectors[i] = batchVectors
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	all := make([]vectorstore.Vector, 0, len(chunks))
	for _, v := range vectors {
		all = append(all, v...)
	}
	if err := s.store.Upsert(ctx, documentID, all); err != nil {
		return vectorstore.Wrap("upsert", err)
	}
	return nil
}

// ListDocuments recovers document summaries from the vector store's
// namespace listing; there is no separate document index to fall out of
// sync with what was actually ingested.
func (s *Service) ListDocuments(ctx context.Context) ([]Document, error) {
	summaries, err := s.store.ListNamespaces(ctx)
	if err != nil {
		return nil, vectorstore.Wrap("list_namespaces", err)
	}

	docs := make([]Document, 0, len(summaries))
	for _, summary := range summaries {
		filename, _ := summary.SampleMetadata[metaFilename].(string)
		totalPages := toInt(summary.SampleMetadata[metaTotalPages])
		ingestedAt := time.Time{}
		if raw, ok := summary.SampleMetadata[metaIngestedAt].(string); ok {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				ingestedAt = t
			}
		}
		docs = append(docs, Document{
			ID:         summary.Namespace,
			Filename:   filename,
			PageCount:  totalPages,
			ChunkCount: summary.VectorCount,
			IngestedAt: ingestedAt,
		})
	}
	return docs, nil
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
