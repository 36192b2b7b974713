package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewChunk(t *testing.T) {
	t.Parallel()
	docID := uuid.New()

	chunk, err := NewChunk(docID, "Serum potassium was 5.2 mEq/L.", 0, 30, 8, []string{"Electrolytes"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if chunk.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if chunk.DocumentID != docID {
		t.Errorf("Expected document ID %s, got %s", docID, chunk.DocumentID)
	}

	// Empty text
	if _, err := NewChunk(docID, "", 0, 10, 3, nil); !errors.Is(err, ErrChunkTextEmpty) {
		t.Errorf("Expected error %v, got %v", ErrChunkTextEmpty, err)
	}

	// Inverted span
	if _, err := NewChunk(docID, "text", 10, 10, 3, nil); !errors.Is(err, ErrChunkSpanInvalid) {
		t.Errorf("Expected error %v, got %v", ErrChunkSpanInvalid, err)
	}

	// Non-positive token count
	if _, err := NewChunk(docID, "text", 0, 4, 0, nil); !errors.Is(err, ErrChunkTokenCount) {
		t.Errorf("Expected error %v, got %v", ErrChunkTokenCount, err)
	}
}

func TestClassifiedChunkTopTopic(t *testing.T) {
	t.Parallel()

	cc := ClassifiedChunk{}
	if _, ok := cc.TopTopic(); ok {
		t.Error("Expected no top topic for empty match list")
	}

	cc.Matches = []TopicMatch{
		{TopicID: "a", Confidence: 0.7, MatchType: MatchTypeHybrid},
		{TopicID: "b", Confidence: 0.9, MatchType: MatchTypeSemantic},
		{TopicID: "c", Confidence: 0.9, MatchType: MatchTypeKeyword},
	}
	top, ok := cc.TopTopic()
	if !ok {
		t.Fatal("Expected a top topic")
	}
	// Ties break by first-seen order: "b" comes before "c".
	if top.TopicID != "b" {
		t.Errorf("Expected top topic b, got %s", top.TopicID)
	}
}
