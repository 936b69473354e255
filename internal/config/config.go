// Package config loads studyforge's process configuration: HTTP server
// tunables, the embedder/completer provider, the vector store backend, the
// optional Redis question-bank adapter, and every numeric default enumerated by
// the external interfaces contract.
package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`
}

// JSONSchemaConfig controls the structured-output repair-retry loop used by
// the content generators when calling the Completer.
type JSONSchemaConfig struct {
	MaxRetries     int `json:"max_retries,omitempty"`
	MaxPromptBytes int `json:"max_prompt_bytes,omitempty"`
}

// ProviderConfig configures the single Embedder/Completer backend. Type
// selects the implementation: "mock" (deterministic, offline), "oai_http"
// (any OpenAI chat-completions/embeddings compatible HTTP server), or
// "gemini" (Google generative AI).
type ProviderConfig struct {
	Type string `json:"type"`

	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`

	ChatCompletionsPath string `json:"chat_completions_path,omitempty"`
	EmbeddingsPath      string `json:"embeddings_path,omitempty"`

	EmbeddingModel  string `json:"embedding_model,omitempty"`
	CompletionModel string `json:"completion_model,omitempty"`

	Timeout Duration `json:"timeout,omitempty"`

	JSONSchema JSONSchemaConfig `json:"json_schema,omitempty"`
}

// VectorStoreConfig configures the namespaced vector index. Type selects
// the implementation: "qdrant" (HTTP-backed) or "memory" (in-process, for
// tests and local development).
type VectorStoreConfig struct {
	Type            string `json:"type"`
	BaseURL         string `json:"base_url,omitempty"`
	APIKey          string `json:"api_key,omitempty"`
	Collection      string `json:"collection,omitempty"`
	NamespacePrefix string `json:"namespace_prefix,omitempty"`
	DistanceMetric  string `json:"distance_metric,omitempty"`
}

// RedisConfig configures the optional question-bank persistence adapter.
// The core does not require it; when Enabled is false, banks live only in
// process memory. Quiz sessions are always held in process memory.
type RedisConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// RetrievalConfig mirrors §6's configuration table for the retrieval core.
type RetrievalConfig struct {
	EmbeddingDim                int     `json:"embedding_dim"`
	MaxContextTokens            int     `json:"max_context_tokens"`
	ResponseReserve             int     `json:"response_reserve"`
	MinChunkChars               int     `json:"min_chunk_chars"`
	SimilarityFallbackThreshold float64 `json:"similarity_fallback_threshold"`
}

// ChunkConfig mirrors §6's configuration table for the chunker.
type ChunkConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

// IngestionConfig bounds document size and embedding batch concurrency.
type IngestionConfig struct {
	MaxPagesTotal  int `json:"max_pages_total"`
	MaxBatchSize   int `json:"max_batch_size"`
	MaxConcurrency int `json:"max_concurrency"`
}

// AdaptiveConfig mirrors §6's Q-learning / Thompson-sampling hyperparameters.
type AdaptiveConfig struct {
	QLAlpha      float64 `json:"ql_alpha"`
	QLGamma      float64 `json:"ql_gamma"`
	QLEpsilon    float64 `json:"ql_epsilon"`
	BlendWeightQ float64 `json:"blend_weight_q"`
}

// UpstreamConfig bounds every external call (embedder, completer, vector
// store) to a single enforced deadline.
type UpstreamConfig struct {
	TimeoutMS int `json:"timeout_ms"`
}

type Config struct {
	Env string `json:"env"`

	HTTP        HTTPConfig        `json:"http"`
	Provider    ProviderConfig    `json:"provider"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	Redis       RedisConfig       `json:"redis"`
	Retrieval   RetrievalConfig   `json:"retrieval"`
	Chunk       ChunkConfig       `json:"chunk"`
	Ingestion   IngestionConfig   `json:"ingestion"`
	Adaptive    AdaptiveConfig    `json:"adaptive"`
	Upstream    UpstreamConfig    `json:"upstream"`
}

func (c *Config) UpstreamTimeout() time.Duration {
	if c.Upstream.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Upstream.TimeoutMS) * time.Millisecond
}
