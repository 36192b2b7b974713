package generation

import (
	"context"

	"github.com/medforge/cardgen/internal/domain"
)

// RawCloze is the unvalidated cloze content returned by an LLM
// collaborator. The orchestrator turns it into a domain.ClozeCard and
// validates it before accumulation.
type RawCloze struct {
	Text string
	Tags []string
}

// RawVignette is the unvalidated clinical-vignette content returned by an
// LLM collaborator.
type RawVignette struct {
	Stem        string
	Question    string
	Options     []domain.VignetteOption
	Answer      string
	Explanation string
}

// ClozeGenerator generates cloze deletion cards from chunk text. This
// interface is the boundary to the external LLM service; implementations
// return at most limit cards.
type ClozeGenerator interface {
	GenerateCloze(ctx context.Context, chunkText string, topicPath []string, limit int) ([]RawCloze, error)
}

// VignetteGenerator generates clinical vignette cards from chunk text.
type VignetteGenerator interface {
	GenerateVignettes(ctx context.Context, chunkText string, topicPath []string, limit int) ([]RawVignette, error)
}

// Classifier maps a chunk to taxonomy topics. Classification is best
// effort: an empty match list is a normal outcome.
type Classifier interface {
	Classify(ctx context.Context, chunk *domain.Chunk) ([]domain.TopicMatch, error)
}

// Validator performs schema validation of generated cards. Only cards that
// pass are accumulated into the result.
type Validator interface {
	ValidateCloze(card *domain.ClozeCard) (bool, []string)
	ValidateVignette(card *domain.VignetteCard) (bool, []string)
}

// Deduplicator removes duplicate cards from the accumulated batch,
// preserving first-seen order.
type Deduplicator interface {
	Deduplicate(cards []domain.Card) []domain.Card
}

// ProgressFunc is invoked after every chunk, successful or not, with the
// number of chunks handled so far and the batch total. It is fire and
// forget: panics inside it are swallowed by the orchestrator.
type ProgressFunc func(done, total int)
