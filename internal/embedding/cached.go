package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// DefaultCacheTTL is how long cached embeddings live by default.
const DefaultCacheTTL = 24 * time.Hour

// CachedEmbedder wraps an Embedder with an opportunistic cache. Cache
// failures are logged and treated as misses so a broken or absent cache
// only costs latency.
type CachedEmbedder struct {
	inner  Embedder
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedEmbedder wraps inner with cache. A nil cache yields a
// pass-through embedder. If logger is nil, a default logger is used.
func NewCachedEmbedder(inner Embedder, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cached_embedder")),
	}
}

// Ensure CachedEmbedder implements the Embedder interface
var _ Embedder = (*CachedEmbedder)(nil)

// cacheKey derives a stable key from the text content.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// Embed implements Embedder.Embed.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	key := cacheKey(text)
	if e.cache != nil {
		raw, err := e.cache.Get(ctx, key)
		switch {
		case err == nil:
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil {
				return vec, nil
			}
			e.logger.Warn("discarding undecodable cached embedding", "key", key)
		case !errors.Is(err, ErrCacheMiss):
			e.logger.Warn("embedding cache read failed", "error", err)
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if raw, err := json.Marshal(vec); err == nil {
			if err := e.cache.Set(ctx, key, raw, e.ttl); err != nil {
				e.logger.Warn("failed to cache embedding", "error", err)
			}
		}
	}
	return vec, nil
}

// EmbedBatch implements Embedder.EmbedBatch. Each text goes through the
// single-text cache path so partial cache hits are still served locally.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}
