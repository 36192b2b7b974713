// Package embedding defines the text-embedding collaborator boundary and
// an opportunistic cache wrapper around it. The pipeline depends only on
// the Embedder interface; concrete clients live under internal/platform.
package embedding

import (
	"context"
	"errors"
)

// Common embedding errors
var (
	// ErrEmptyText is returned when an empty string is submitted for
	// embedding.
	ErrEmptyText = errors.New("cannot embed empty text")

	// ErrDimensionMismatch is returned when an embedding does not have the
	// expected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder converts text into dense vectors of a fixed dimension.
type Embedder interface {
	// Embed returns the embedding for a single text. It returns
	// ErrEmptyText for empty input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
