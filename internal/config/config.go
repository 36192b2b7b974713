package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log        LogConfig        `mapstructure:"log"        validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Chunker    ChunkerConfig    `mapstructure:"chunker"    validate:"required"`
	Classify   ClassifyConfig   `mapstructure:"classify"   validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Dedup      DedupConfig      `mapstructure:"dedup"      validate:"required"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains the Gemini integration settings. The API key is
// optional: without it the pipeline runs with generation collaborators
// disabled.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	EmbeddingModel    string `mapstructure:"embedding_model" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// QdrantConfig contains vector-store settings. Host may be empty when
// semantic classification is disabled.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port" validate:"omitempty,gt=0,lt=65536"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// RedisConfig contains embedding-cache settings. Addr may be empty when
// caching is disabled.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// ChunkerConfig contains text segmentation settings. TokenEncoding names
// a tiktoken encoding ("cl100k_base" etc.) used for exact token counting;
// when empty, counting falls back to the built-in heuristic.
type ChunkerConfig struct {
	MaxTokens     int    `mapstructure:"max_tokens"     validate:"required,gt=0"`
	OverlapTokens int    `mapstructure:"overlap_tokens" validate:"gte=0"`
	TokenEncoding string `mapstructure:"token_encoding"`
}

// ClassifyConfig contains hybrid classification scoring settings.
type ClassifyConfig struct {
	Alpha             float64 `mapstructure:"alpha"              validate:"gte=0,lte=1"`
	BaseThreshold     float64 `mapstructure:"base_threshold"     validate:"required,gt=0,lte=1"`
	RelativeThreshold float64 `mapstructure:"relative_threshold" validate:"required,gt=0,lte=1"`
	TopK              uint64  `mapstructure:"top_k"              validate:"required,gt=0"`
}

// GenerationConfig contains per-chunk generation caps.
type GenerationConfig struct {
	MaxClozePerChunk    int `mapstructure:"max_cloze_per_chunk"    validate:"gte=0"`
	MaxVignettePerChunk int `mapstructure:"max_vignette_per_chunk" validate:"gte=0"`
}

// DedupConfig contains deduplication settings.
type DedupConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"required,gt=0,lte=1"`
}
