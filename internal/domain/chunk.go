package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Chunk-specific validation errors
var (
	// ErrChunkTextEmpty is returned when a chunk's text is empty.
	ErrChunkTextEmpty = errors.New("chunk text cannot be empty")

	// ErrChunkSpanInvalid is returned when a chunk's character span is
	// empty or inverted (end_char must be greater than start_char).
	ErrChunkSpanInvalid = errors.New("chunk end_char must be greater than start_char")

	// ErrChunkTokenCount is returned when a chunk's token count is not positive.
	ErrChunkTokenCount = errors.New("chunk token count must be positive")
)

// Chunk is a bounded, token-sized slice of a document's text with
// provenance offsets into the original text. Chunks are produced by the
// chunker and are immutable; generated cards reference their chunk via
// SourceChunkID for provenance.
type Chunk struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"document_id"`
	Text        string    `json:"text"`
	StartChar   int       `json:"start_char"`
	EndChar     int       `json:"end_char"`
	TokenCount  int       `json:"token_count"`
	SectionPath []string  `json:"section_path,omitempty"`
	Entities    []string  `json:"entities,omitempty"`
}

// NewChunk creates a new Chunk with a generated ID. Returns an error if
// validation fails.
func NewChunk(documentID uuid.UUID, text string, startChar, endChar, tokenCount int, sectionPath []string) (*Chunk, error) {
	chunk := &Chunk{
		ID:          uuid.New(),
		DocumentID:  documentID,
		Text:        text,
		StartChar:   startChar,
		EndChar:     endChar,
		TokenCount:  tokenCount,
		SectionPath: sectionPath,
	}

	if err := chunk.Validate(); err != nil {
		return nil, err
	}

	return chunk, nil
}

// Validate checks the chunk invariants: non-empty text, a non-empty
// character span and a positive token count.
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return ErrChunkTextEmpty
	}
	if c.EndChar <= c.StartChar {
		return ErrChunkSpanInvalid
	}
	if c.TokenCount <= 0 {
		return ErrChunkTokenCount
	}
	return nil
}
