package domain

import "errors"

// MatchType identifies which scoring path produced a topic match.
type MatchType string

// Possible match type values
const (
	MatchTypeSemantic MatchType = "semantic"
	MatchTypeKeyword  MatchType = "keyword"
	MatchTypeHybrid   MatchType = "hybrid"
)

// Common validation errors for TopicMatch
var (
	ErrTopicIDEmpty     = errors.New("topic ID cannot be empty")
	ErrConfidenceRange  = errors.New("confidence must be between 0 and 1")
	ErrInvalidMatchType = errors.New("invalid match type")
)

// TopicMatch associates a chunk with a taxonomy topic at a given
// confidence level.
type TopicMatch struct {
	TopicID    string    `json:"topic_id"`
	TopicPath  []string  `json:"topic_path,omitempty"`
	Confidence float64   `json:"confidence"`
	MatchType  MatchType `json:"match_type"`
}

// Validate checks if the TopicMatch has valid data.
func (m *TopicMatch) Validate() error {
	if m.TopicID == "" {
		return ErrTopicIDEmpty
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return ErrConfidenceRange
	}
	switch m.MatchType {
	case MatchTypeSemantic, MatchTypeKeyword, MatchTypeHybrid:
	default:
		return ErrInvalidMatchType
	}
	return nil
}

// ClassifiedChunk is a Chunk together with its ordered topic matches and
// an optional primary exam identifier. Matches are not required to be
// unique.
type ClassifiedChunk struct {
	Chunk   Chunk        `json:"chunk"`
	Matches []TopicMatch `json:"matches,omitempty"`
	ExamID  string       `json:"exam_id,omitempty"`
}

// TopTopic returns the match with the highest confidence. Ties are broken
// by first-seen order. The second return value is false when the chunk has
// no matches.
func (c *ClassifiedChunk) TopTopic() (TopicMatch, bool) {
	if len(c.Matches) == 0 {
		return TopicMatch{}, false
	}
	top := c.Matches[0]
	for _, m := range c.Matches[1:] {
		if m.Confidence > top.Confidence {
			top = m
		}
	}
	return top, true
}
