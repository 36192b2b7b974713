// Package dedup removes duplicate flashcards from a generation run. Exact
// duplicates are found by content hashing; semantic duplicates by
// embedding cosine similarity. The batch pass used by the orchestrator is
// exact-hash only; semantic comparison is a separate opt-in entry point.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/embedding"
)

// DefaultSimilarityThreshold is the cosine similarity at or above which a
// card counts as a semantic duplicate.
const DefaultSimilarityThreshold = 0.9

// Status classifies a dedup decision.
type Status string

// Possible status values
const (
	StatusExact    Status = "exact"
	StatusSemantic Status = "semantic"
	StatusUnique   Status = "unique"
)

// Action tells HandleDuplicate what to do with a duplicate card.
type Action string

// Possible actions
const (
	// ActionMark keeps the card but flags it as a duplicate.
	ActionMark Action = "mark"

	// ActionRemove drops the card entirely.
	ActionRemove Action = "remove"
)

// Common dedup errors
var (
	// ErrNoEmbedder is returned when a semantic check runs without an
	// embedding collaborator configured.
	ErrNoEmbedder = errors.New("semantic dedup requires an embedder")

	// ErrUnknownAction is returned for an unrecognized duplicate action.
	ErrUnknownAction = errors.New("unknown duplicate action")
)

// Result describes the outcome of a duplicate check for one card.
type Result struct {
	IsDuplicate     bool      `json:"is_duplicate"`
	Status          Status    `json:"status"`
	SimilarityScore float64   `json:"similarity_score"`
	DuplicateOf     uuid.UUID `json:"duplicate_of,omitempty"`
}

// MarkedCard wraps a card that was kept despite being a duplicate. It
// still satisfies domain.Card so it can travel through the same result
// list.
type MarkedCard struct {
	domain.Card
	Duplicate Result
}

// Deduplicator detects and removes duplicate cards.
type Deduplicator struct {
	embedder  embedding.Embedder
	threshold float64
	logger    *slog.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithEmbedder enables semantic duplicate checks.
func WithEmbedder(e embedding.Embedder) Option {
	return func(d *Deduplicator) { d.embedder = e }
}

// WithSimilarityThreshold overrides the semantic similarity threshold.
func WithSimilarityThreshold(threshold float64) Option {
	return func(d *Deduplicator) {
		if threshold > 0 && threshold <= 1 {
			d.threshold = threshold
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deduplicator) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Deduplicator. Without WithEmbedder only exact-hash
// detection is available.
func New(opts ...Option) *Deduplicator {
	d := &Deduplicator{
		threshold: DefaultSimilarityThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "deduplicator"))
	return d
}

// normalize lowercases the text and collapses runs of whitespace so
// formatting differences do not defeat the hash.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// ComputeContentHash returns the SHA-256 hex digest of the card's
// normalized canonical text. Cards with identical canonical text hash
// identically regardless of unrelated metadata.
func ComputeContentHash(card domain.Card) string {
	sum := sha256.Sum256([]byte(normalize(card.CanonicalText())))
	return hex.EncodeToString(sum[:])
}

// Deduplicate is the batch entry point used by the orchestrator: a single
// exact-hash pass that keeps the first-seen card for every hash and drops
// later collisions. Order among unique cards is preserved. Semantic
// comparison is not part of this pass; use CheckSemantic explicitly.
func (d *Deduplicator) Deduplicate(cards []domain.Card) []domain.Card {
	if len(cards) == 0 {
		return nil
	}

	seen := make(map[string]uuid.UUID, len(cards))
	unique := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		hash := ComputeContentHash(card)
		if first, ok := seen[hash]; ok {
			d.logger.Debug("dropping exact duplicate",
				"card_id", card.CardID(), "duplicate_of", first)
			continue
		}
		seen[hash] = card.CardID()
		unique = append(unique, card)
	}
	return unique
}

// CheckExact compares one card against previously seen hashes. The seen
// map is owned by the caller and updated in place.
func (d *Deduplicator) CheckExact(card domain.Card, seen map[string]uuid.UUID) Result {
	hash := ComputeContentHash(card)
	if first, ok := seen[hash]; ok {
		return Result{IsDuplicate: true, Status: StatusExact, SimilarityScore: 1.0, DuplicateOf: first}
	}
	seen[hash] = card.CardID()
	return Result{Status: StatusUnique}
}

// CheckSemantic compares the card's canonical-text embedding against every
// existing card. The card is a semantic duplicate when the maximum cosine
// similarity reaches the configured threshold.
func (d *Deduplicator) CheckSemantic(ctx context.Context, card domain.Card, existing []domain.Card) (Result, error) {
	if d.embedder == nil {
		return Result{}, ErrNoEmbedder
	}
	if len(existing) == 0 {
		return Result{Status: StatusUnique}, nil
	}

	vec, err := d.embedder.Embed(ctx, normalize(card.CanonicalText()))
	if err != nil {
		return Result{}, err
	}

	best := Result{Status: StatusUnique}
	for _, other := range existing {
		otherVec, err := d.embedder.Embed(ctx, normalize(other.CanonicalText()))
		if err != nil {
			return Result{}, err
		}
		sim := CosineSimilarity(vec, otherVec)
		if sim > best.SimilarityScore {
			best.SimilarityScore = sim
			best.DuplicateOf = other.CardID()
		}
	}

	if best.SimilarityScore >= d.threshold {
		best.IsDuplicate = true
		best.Status = StatusSemantic
	} else {
		best.DuplicateOf = uuid.Nil
	}
	return best, nil
}

// HandleDuplicate applies the caller's duplicate policy. ActionMark keeps
// the card wrapped in a MarkedCard; ActionRemove relinquishes ownership
// and returns nil.
func (d *Deduplicator) HandleDuplicate(card domain.Card, result Result, action Action) (domain.Card, error) {
	switch action {
	case ActionMark:
		return &MarkedCard{Card: card, Duplicate: result}, nil
	case ActionRemove:
		return nil, nil
	default:
		return nil, ErrUnknownAction
	}
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths compare over the shorter prefix; a zero vector has
// similarity 0 with everything.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
