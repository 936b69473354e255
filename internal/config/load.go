package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.TrimSpace(u) == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(u)
		if err != nil {
			return err
		}
		d.Duration = dd
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   25 << 20,
		},
		Provider: ProviderConfig{
			Type:            "mock",
			EmbeddingModel:  "text-embedding-3-small",
			CompletionModel: "gpt-4o-mini",
			Timeout:         Duration{Duration: 30 * time.Second},
			JSONSchema: JSONSchemaConfig{
				MaxRetries:     1,
				MaxPromptBytes: 64 << 10,
			},
		},
		VectorStore: VectorStoreConfig{
			Type:            "memory",
			DistanceMetric:  "cosine",
			Collection:      "studyforge_chunks",
			NamespacePrefix: "sf",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
		},
		Retrieval: RetrievalConfig{
			EmbeddingDim:                1536,
			MaxContextTokens:            4000,
			ResponseReserve:             1000,
			MinChunkChars:               50,
			SimilarityFallbackThreshold: 0.3,
		},
		Chunk: ChunkConfig{
			ChunkSize:    1024,
			ChunkOverlap: 200,
		},
		Ingestion: IngestionConfig{
			MaxPagesTotal:  300,
			MaxBatchSize:   96,
			MaxConcurrency: 4,
		},
		Adaptive: AdaptiveConfig{
			QLAlpha:      0.1,
			QLGamma:      0.9,
			QLEpsilon:    0.2,
			BlendWeightQ: 0.7,
		},
		Upstream: UpstreamConfig{
			TimeoutMS: 30000,
		},
	}
}

// Load builds the process configuration: defaults, optionally overlaid by a
// JSON file at STUDYFORGE_CONFIG_PATH (or ./config/config.json if present),
// then overlaid by environment variables (loading a local .env file first,
// best-effort, via godotenv).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("STUDYFORGE_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.json")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	overlayEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}

	if v := strings.TrimSpace(os.Getenv("PROVIDER_TYPE")); v != "" {
		cfg.Provider.Type = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_EMBEDDING_MODEL")); v != "" {
		cfg.Provider.EmbeddingModel = v
	}
	if v := strings.TrimSpace(os.Getenv("PROVIDER_COMPLETION_MODEL")); v != "" {
		cfg.Provider.CompletionModel = v
	}

	if v := strings.TrimSpace(os.Getenv("VECTOR_STORE_TYPE")); v != "" {
		cfg.VectorStore.Type = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_URL")); v != "" {
		cfg.VectorStore.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_API_KEY")); v != "" {
		cfg.VectorStore.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")); v != "" {
		cfg.VectorStore.Collection = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_NAMESPACE_PREFIX")); v != "" {
		cfg.VectorStore.NamespacePrefix = v
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ENABLED")); v != "" {
		cfg.Redis.Enabled = parseBool(v)
	}

	if v, ok := envInt("EMBEDDING_DIM"); ok {
		cfg.Retrieval.EmbeddingDim = v
	}
	if v, ok := envInt("MAX_CONTEXT_TOKENS"); ok {
		cfg.Retrieval.MaxContextTokens = v
	}
	if v, ok := envInt("RESPONSE_RESERVE"); ok {
		cfg.Retrieval.ResponseReserve = v
	}
	if v, ok := envInt("MIN_CHUNK_CHARS"); ok {
		cfg.Retrieval.MinChunkChars = v
	}
	if v, ok := envFloat("SIMILARITY_FALLBACK_THRESHOLD"); ok {
		cfg.Retrieval.SimilarityFallbackThreshold = v
	}
	if v, ok := envInt("CHUNK_SIZE"); ok {
		cfg.Chunk.ChunkSize = v
	}
	if v, ok := envInt("CHUNK_OVERLAP"); ok {
		cfg.Chunk.ChunkOverlap = v
	}
	if v, ok := envInt("MAX_PAGES_TOTAL"); ok {
		cfg.Ingestion.MaxPagesTotal = v
	}
	if v, ok := envFloat("QL_ALPHA"); ok {
		cfg.Adaptive.QLAlpha = v
	}
	if v, ok := envFloat("QL_GAMMA"); ok {
		cfg.Adaptive.QLGamma = v
	}
	if v, ok := envFloat("QL_EPSILON"); ok {
		cfg.Adaptive.QLEpsilon = v
	}
	if v, ok := envFloat("BLEND_WEIGHT_Q"); ok {
		cfg.Adaptive.BlendWeightQ = v
	}
	if v, ok := envInt("UPSTREAM_TIMEOUT_MS"); ok {
		cfg.Upstream.TimeoutMS = v
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr is required")
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 25 << 20
	}
	switch cfg.Provider.Type {
	case "mock", "oai_http", "gemini":
	default:
		return fmt.Errorf("provider.type must be one of mock|oai_http|gemini, got %q", cfg.Provider.Type)
	}
	if cfg.Provider.Type == "oai_http" && cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required for provider.type=oai_http")
	}
	if cfg.Provider.ChatCompletionsPath == "" {
		cfg.Provider.ChatCompletionsPath = "/v1/chat/completions"
	}
	if cfg.Provider.EmbeddingsPath == "" {
		cfg.Provider.EmbeddingsPath = "/v1/embeddings"
	}
	switch cfg.VectorStore.Type {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("vector_store.type must be one of memory|qdrant, got %q", cfg.VectorStore.Type)
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.BaseURL == "" {
		return fmt.Errorf("vector_store.base_url is required for vector_store.type=qdrant")
	}
	if cfg.Ingestion.MaxBatchSize <= 0 || cfg.Ingestion.MaxBatchSize > 96 {
		cfg.Ingestion.MaxBatchSize = 96
	}
	if cfg.Ingestion.MaxConcurrency <= 0 {
		cfg.Ingestion.MaxConcurrency = 4
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
