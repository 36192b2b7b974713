package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Document and Section
var (
	ErrSectionTitleEmpty   = errors.New("section title cannot be empty")
	ErrSectionLevelInvalid = errors.New("section level must be between 1 and 6")
)

// Section is a hierarchical heading node within a document. Level follows
// HTML-style heading depth (1 is the outermost heading, 6 the deepest).
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Level   int    `json:"level"`
	Pages   []int  `json:"pages,omitempty"`
}

// Validate checks if the Section has valid data.
func (s *Section) Validate() error {
	if s.Title == "" {
		return ErrSectionTitleEmpty
	}
	if s.Level < 1 || s.Level > 6 {
		return ErrSectionLevelInvalid
	}
	return nil
}

// Document is the ingested text of a single medical document together with
// its ordered section headings and arbitrary source metadata. A Document is
// immutable once ingested; the pipeline only ever reads from it.
type Document struct {
	ID        uuid.UUID         `json:"id"`
	Text      string            `json:"text"`
	Sections  []Section         `json:"sections,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewDocument creates a new Document with the given text, sections and
// metadata. It generates a new UUID for the document ID. Sections are
// validated individually; a document with no sections is valid (the
// chunker degrades to pure token-based splitting).
func NewDocument(text string, sections []Section, metadata map[string]string) (*Document, error) {
	doc := &Document{
		ID:        uuid.New(),
		Text:      text,
		Sections:  sections,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Validate checks if the Document has valid data.
func (d *Document) Validate() error {
	if d.ID == uuid.Nil {
		return ErrInvalidID
	}
	for i := range d.Sections {
		if err := d.Sections[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
