package domain

import "github.com/google/uuid"

// Card is the common surface of the two flashcard formats. The validator
// and deduplicator operate on this interface so the orchestrator can carry
// cloze and vignette cards through the same accumulator.
type Card interface {
	// CardID returns the card's unique identifier.
	CardID() uuid.UUID

	// SourceChunk returns the ID of the chunk the card was generated from.
	SourceChunk() uuid.UUID

	// Topic returns the taxonomy topic the card was tagged with, or an
	// empty string when the card is untagged.
	Topic() string

	// CanonicalText returns the text used for duplicate detection. Two
	// cards with the same canonical text are content-identical regardless
	// of unrelated metadata such as their source chunk.
	CanonicalText() string
}
