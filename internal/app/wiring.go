package app

import (
	"context"
	"fmt"

	"github.com/studyforge/studyforge/internal/adaptive"
	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/generate"
	"github.com/studyforge/studyforge/internal/ingestion"
	"github.com/studyforge/studyforge/internal/platform/bankstore/redis"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/vectorstore"
	"github.com/studyforge/studyforge/internal/platform/vectorstore/memory"
	"github.com/studyforge/studyforge/internal/platform/vectorstore/qdrant"
	"github.com/studyforge/studyforge/internal/provider"
	"github.com/studyforge/studyforge/internal/provider/gemini"
	"github.com/studyforge/studyforge/internal/provider/mock"
	"github.com/studyforge/studyforge/internal/provider/oaihttp"
	"github.com/studyforge/studyforge/internal/qa"
	"github.com/studyforge/studyforge/internal/retrieval"
)

// Services bundles every service the API and CLI layers drive; building it
// once keeps cmd/server and cmd/studyforgectl on the same wiring path.
type Services struct {
	Ingestion *ingestion.Service
	Retrieval *retrieval.Service
	QA        *qa.Service
	Generate  *generate.Service
	Adaptive  *adaptive.Service
}

// BuildServices constructs the provider, vector store, and optional Redis
// bank-persistence adapter named by cfg, then wires every domain service on
// top of them. The returned closer releases any network resources.
func BuildServices(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Services, func(), error) {
	prov, err := buildProvider(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("build provider: %w", err)
	}

	store, closeStore, err := buildVectorStore(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("build vector store: %w", err)
	}

	ingestionSvc := ingestion.New(prov, store, cfg, log)
	retrievalSvc := retrieval.New(prov, store, cfg, log)
	qaSvc := qa.New(retrievalSvc, prov, cfg, log)
	generateSvc := generate.New(retrievalSvc, prov, cfg, log)
	adaptiveSvc := adaptive.New(cfg, log)

	closeBank := func() {}
	if cfg.Redis.Enabled {
		bankStore, err := redis.New(cfg.Redis, log)
		if err != nil {
			log.Warn("redis bank persistence disabled", "error", err)
		} else {
			adaptiveSvc.SetBankStore(bankStore)
			closeBank = func() { _ = bankStore.Close() }
		}
	}

	closer := func() {
		closeStore()
		closeBank()
	}

	return &Services{
		Ingestion: ingestionSvc,
		Retrieval: retrievalSvc,
		QA:        qaSvc,
		Generate:  generateSvc,
		Adaptive:  adaptiveSvc,
	}, closer, nil
}

func buildProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (provider.Provider, error) {
	switch cfg.Provider.Type {
	case "mock":
		return mock.New(), nil
	case "oai_http":
		return oaihttp.New(cfg.Provider)
	case "gemini":
		return gemini.New(ctx, cfg.Provider)
	default:
		return nil, fmt.Errorf("unknown provider.type %q", cfg.Provider.Type)
	}
}

func buildVectorStore(cfg *config.Config, log *logger.Logger) (vectorstore.VectorStore, func(), error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.New(), func() {}, nil
	case "qdrant":
		qcfg, err := qdrant.FromStoreConfig(cfg.VectorStore.BaseURL, cfg.VectorStore.Collection, cfg.VectorStore.NamespacePrefix, cfg.Retrieval.EmbeddingDim)
		if err != nil {
			return nil, nil, err
		}
		store, err := qdrant.NewVectorStore(log, qcfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector_store.type %q", cfg.VectorStore.Type)
	}
}
