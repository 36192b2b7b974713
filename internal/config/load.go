package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables, e.g.
// CARDGEN_DATABASE_URL.
const envPrefix = "CARDGEN"

// Load reads configuration from environment variables and an optional
// config file in the working directory. Environment variables take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	return loadWithFile("")
}

// LoadFromFile is Load with an explicit config file path, bypassing the
// working-directory search.
func LoadFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	return loadWithFile(configPath)
}

func loadWithFile(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind critical environment variables so they resolve even
	// when the key is absent from any config file.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"log.level", "CARDGEN_LOG_LEVEL"},
		{"database.url", "CARDGEN_DATABASE_URL"},
		{"llm.gemini_api_key", "CARDGEN_LLM_GEMINI_API_KEY"},
		{"llm.model_name", "CARDGEN_LLM_MODEL_NAME"},
		{"qdrant.host", "CARDGEN_QDRANT_HOST"},
		{"qdrant.api_key", "CARDGEN_QDRANT_API_KEY"},
		{"qdrant.collection", "CARDGEN_QDRANT_COLLECTION"},
		{"redis.addr", "CARDGEN_REDIS_ADDR"},
		{"redis.password", "CARDGEN_REDIS_PASSWORD"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors the pipeline packages' own defaults so a bare
// environment still yields a valid configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.embedding_model", "text-embedding-004")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "taxonomy_topics")
	v.SetDefault("redis.db", 0)
	v.SetDefault("chunker.max_tokens", 512)
	v.SetDefault("chunker.overlap_tokens", 75)
	v.SetDefault("chunker.token_encoding", "cl100k_base")
	v.SetDefault("classify.alpha", 0.5)
	v.SetDefault("classify.base_threshold", 0.65)
	v.SetDefault("classify.relative_threshold", 0.80)
	v.SetDefault("classify.top_k", 10)
	v.SetDefault("generation.max_cloze_per_chunk", 3)
	v.SetDefault("generation.max_vignette_per_chunk", 1)
	v.SetDefault("dedup.similarity_threshold", 0.9)
}
