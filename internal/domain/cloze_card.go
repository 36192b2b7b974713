package domain

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cloze-specific validation errors
var (
	// ErrClozeTextEmpty is returned when a cloze card's text is empty.
	ErrClozeTextEmpty = errors.New("cloze text cannot be empty")

	// ErrClozeNoDeletions is returned when the text contains no
	// {{cN::answer}} spans.
	ErrClozeNoDeletions = errors.New("cloze text must contain at least one {{cN::answer}} span")

	// ErrClozeIndexSequence is returned when cloze indices are not
	// sequential starting at 1, or contain gaps or duplicates.
	ErrClozeIndexSequence = errors.New("cloze indices must be sequential starting at 1 with no gaps or duplicates")

	// ErrClozeAnswerLength is returned when a cloze answer is not between
	// one and four words.
	ErrClozeAnswerLength = errors.New("cloze answers must be between 1 and 4 words")

	// ErrClozeChunkIDEmpty is returned when a cloze card's source chunk ID is nil.
	ErrClozeChunkIDEmpty = errors.New("cloze source chunk ID cannot be empty")
)

// clozePattern matches well-formed cloze deletion spans of the form
// {{c1::answer}}.
var clozePattern = regexp.MustCompile(`\{\{c(\d+)::([^}]+)\}\}`)

// ClozeCard is a cloze-deletion flashcard: a passage of text with one or
// more short answer spans hidden behind {{cN::answer}} markers.
type ClozeCard struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	SourceChunkID uuid.UUID `json:"source_chunk_id"`
	TopicID       string    `json:"topic_id,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewClozeCard creates a new ClozeCard with a generated ID. The cloze
// invariants are checked at construction and invalid cards are rejected
// rather than coerced.
func NewClozeCard(text string, sourceChunkID uuid.UUID, topicID string, tags []string) (*ClozeCard, error) {
	card := &ClozeCard{
		ID:            uuid.New(),
		Text:          text,
		SourceChunkID: sourceChunkID,
		TopicID:       topicID,
		Tags:          tags,
		CreatedAt:     time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks the cloze invariants: at least one {{cN::answer}} span,
// indices sequential starting at 1 with no gaps or duplicates, and each
// answer between 1 and 4 words.
func (c *ClozeCard) Validate() error {
	if c.Text == "" {
		return ErrClozeTextEmpty
	}
	if c.SourceChunkID == uuid.Nil {
		return ErrClozeChunkIDEmpty
	}

	matches := clozePattern.FindAllStringSubmatch(c.Text, -1)
	if len(matches) == 0 {
		return ErrClozeNoDeletions
	}

	seen := make(map[int]bool, len(matches))
	maxIndex := 0
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 {
			return ErrClozeIndexSequence
		}
		if seen[idx] {
			return ErrClozeIndexSequence
		}
		seen[idx] = true
		if idx > maxIndex {
			maxIndex = idx
		}

		words := len(strings.Fields(m[2]))
		if words < 1 || words > 4 {
			return ErrClozeAnswerLength
		}
	}

	// Sequential from 1 with no gaps: every index in 1..max must be present.
	if maxIndex != len(matches) {
		return ErrClozeIndexSequence
	}

	return nil
}

// CardID implements Card.
func (c *ClozeCard) CardID() uuid.UUID { return c.ID }

// SourceChunk implements Card.
func (c *ClozeCard) SourceChunk() uuid.UUID { return c.SourceChunkID }

// Topic implements Card.
func (c *ClozeCard) Topic() string { return c.TopicID }

// CanonicalText implements Card. For cloze cards the canonical text is the
// cloze text itself.
func (c *ClozeCard) CanonicalText() string { return c.Text }

// Ensure ClozeCard implements the Card interface
var _ Card = (*ClozeCard)(nil)
