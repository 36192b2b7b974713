package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vignette-specific validation errors
var (
	// ErrVignetteStemEmpty is returned when a vignette's stem is empty.
	ErrVignetteStemEmpty = errors.New("vignette stem cannot be empty")

	// ErrVignetteQuestionEmpty is returned when a vignette's question is empty.
	ErrVignetteQuestionEmpty = errors.New("vignette question cannot be empty")

	// ErrVignetteExplanationEmpty is returned when a vignette's explanation is empty.
	ErrVignetteExplanationEmpty = errors.New("vignette explanation cannot be empty")

	// ErrVignetteOptionCount is returned when a vignette does not have
	// between 2 and 5 options.
	ErrVignetteOptionCount = errors.New("vignette must have between 2 and 5 options")

	// ErrVignetteOptionLetters is returned when option letters are not a
	// contiguous run starting at A.
	ErrVignetteOptionLetters = errors.New("vignette option letters must be a contiguous run starting at A")

	// ErrVignetteAnswerLetter is returned when the answer is not one of the
	// option letters.
	ErrVignetteAnswerLetter = errors.New("vignette answer must be one of the option letters")

	// ErrVignetteAnswerLength is returned when the correct option's text is
	// not between one and four words.
	ErrVignetteAnswerLength = errors.New("vignette correct option text must be between 1 and 4 words")

	// ErrVignetteChunkIDEmpty is returned when a vignette's source chunk ID is nil.
	ErrVignetteChunkIDEmpty = errors.New("vignette source chunk ID cannot be empty")
)

// VignetteOption is one lettered answer choice of a vignette card.
type VignetteOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// VignetteCard is a multiple-choice clinical-scenario flashcard: a patient
// stem, a question, lettered options and a single correct answer with an
// explanation.
type VignetteCard struct {
	ID            uuid.UUID        `json:"id"`
	Stem          string           `json:"stem"`
	Question      string           `json:"question"`
	Options       []VignetteOption `json:"options"`
	Answer        string           `json:"answer"`
	Explanation   string           `json:"explanation"`
	SourceChunkID uuid.UUID        `json:"source_chunk_id"`
	TopicID       string           `json:"topic_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NewVignetteCard creates a new VignetteCard with a generated ID. The
// vignette invariants are checked at construction and invalid cards are
// rejected rather than coerced.
func NewVignetteCard(stem, question string, options []VignetteOption, answer, explanation string, sourceChunkID uuid.UUID, topicID string) (*VignetteCard, error) {
	card := &VignetteCard{
		ID:            uuid.New(),
		Stem:          stem,
		Question:      question,
		Options:       options,
		Answer:        answer,
		Explanation:   explanation,
		SourceChunkID: sourceChunkID,
		TopicID:       topicID,
		CreatedAt:     time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks the vignette invariants: non-empty stem, question and
// explanation; 2 to 5 options lettered contiguously from A; the answer is
// one of the option letters; and the correct option's text is 1 to 4 words.
func (v *VignetteCard) Validate() error {
	if v.Stem == "" {
		return ErrVignetteStemEmpty
	}
	if v.Question == "" {
		return ErrVignetteQuestionEmpty
	}
	if v.Explanation == "" {
		return ErrVignetteExplanationEmpty
	}
	if v.SourceChunkID == uuid.Nil {
		return ErrVignetteChunkIDEmpty
	}
	if len(v.Options) < 2 || len(v.Options) > 5 {
		return ErrVignetteOptionCount
	}

	answerText := ""
	answerFound := false
	for i, opt := range v.Options {
		want := string(rune('A' + i))
		if opt.Letter != want {
			return ErrVignetteOptionLetters
		}
		if opt.Letter == v.Answer {
			answerText = opt.Text
			answerFound = true
		}
	}
	if !answerFound {
		return ErrVignetteAnswerLetter
	}

	words := len(strings.Fields(answerText))
	if words < 1 || words > 4 {
		return ErrVignetteAnswerLength
	}

	return nil
}

// CardID implements Card.
func (v *VignetteCard) CardID() uuid.UUID { return v.ID }

// SourceChunk implements Card.
func (v *VignetteCard) SourceChunk() uuid.UUID { return v.SourceChunkID }

// Topic implements Card.
func (v *VignetteCard) Topic() string { return v.TopicID }

// CanonicalText implements Card. The canonical text is the stem followed
// by the option texts and the answer letter; the question and explanation
// carry no additional identity.
func (v *VignetteCard) CanonicalText() string {
	var b strings.Builder
	b.WriteString(v.Stem)
	for _, opt := range v.Options {
		b.WriteString(" ")
		b.WriteString(opt.Text)
	}
	b.WriteString(" ")
	b.WriteString(v.Answer)
	return b.String()
}

// Ensure VignetteCard implements the Card interface
var _ Card = (*VignetteCard)(nil)
