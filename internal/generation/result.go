package generation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/medforge/cardgen/internal/domain"
)

// GenerationError records a chunk whose processing failed. The batch
// continues past it.
type GenerationError struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Message string    `json:"message"`
}

func (e GenerationError) Error() string {
	return fmt.Sprintf("chunk %s: %s", e.ChunkID, e.Message)
}

// Stats aggregates a generation batch. Card counts are computed from the
// deduplicated set; chunk counts from the raw per-chunk outcomes.
type Stats struct {
	TotalCards      int     `json:"total_cards"`
	ClozeCount      int     `json:"cloze_count"`
	VignetteCount   int     `json:"vignette_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	ChunksProcessed int     `json:"chunks_processed"`
	ChunksFailed    int     `json:"chunks_failed"`
}

// Result is the outcome of one generation batch: the deduplicated card
// list, the per-chunk errors, and aggregate statistics.
type Result struct {
	Cards  []domain.Card     `json:"cards"`
	Errors []GenerationError `json:"errors,omitempty"`
	Stats  Stats             `json:"stats"`
}
