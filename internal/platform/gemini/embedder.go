package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/medforge/cardgen/internal/config"
	"github.com/medforge/cardgen/internal/embedding"
	"github.com/medforge/cardgen/internal/generation"
)

// Embedder implements embedding.Embedder using the Gemini embedding
// models.
type Embedder struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates a Gemini-backed embedder from LLM configuration.
func NewEmbedder(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Embedder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Embedder{
		logger: logger.With(slog.String("component", "gemini_embedder")),
		client: client,
		model:  cfg.EmbeddingModel,
	}, nil
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyText
	}

	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements embedding.Embedder.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, embedding.ErrEmptyText
		}
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings",
			embedding.ErrDimensionMismatch, len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d",
				embedding.ErrDimensionMismatch, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
