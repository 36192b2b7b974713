// Package domain defines the core business entities of the card
// generation pipeline: documents and their sections, text chunks with
// provenance offsets, taxonomy nodes and topic matches, and the two
// flashcard formats (cloze deletions and clinical vignettes).
//
// Entities are created through factory functions (NewChunk, NewClozeCard,
// NewVignetteCard, ...) that validate invariants at construction time and
// fail fast with sentinel errors. Once constructed, entities are treated
// as immutable by the rest of the pipeline.
package domain
