// Package classify maps chunks of medical text to taxonomy topics using a
// hybrid of lexical keyword overlap and semantic vector search. Scores are
// filtered by an absolute confidence floor and a relative floor against the
// best-scoring topic, so a strong primary match suppresses a long tail of
// weak ones.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/embedding"
	"github.com/medforge/cardgen/internal/taxonomy"
)

// Default scoring parameters.
const (
	// DefaultAlpha weights semantic similarity against keyword overlap in
	// the hybrid score: score = alpha*semantic + (1-alpha)*keyword.
	DefaultAlpha = 0.5

	// DefaultBaseThreshold is the absolute score floor a topic must reach
	// to be retained.
	DefaultBaseThreshold = 0.65

	// DefaultRelativeThreshold is the fraction of the best score a topic
	// must reach to be retained alongside it.
	DefaultRelativeThreshold = 0.80

	// DefaultTopK bounds how many semantic hits are requested from the
	// vector-search collaborator per chunk.
	DefaultTopK = 10
)

// ErrNilChunk is returned when Classify is called with a nil chunk.
var ErrNilChunk = errors.New("cannot classify a nil chunk")

// SearchHit is a single topic returned by the vector-search collaborator,
// scored in [0,1].
type SearchHit struct {
	TopicID string
	Score   float64
}

// HybridSearcher is the vector-store collaborator. Implementations fuse
// dense-vector and lexical retrieval internally; the service treats the
// returned score as the semantic similarity of the chunk to each topic.
// An empty examID means no exam filter.
type HybridSearcher interface {
	HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK uint64, alpha float64, examID string) ([]SearchHit, error)
}

// Service classifies chunks against a taxonomy.
type Service struct {
	repo              taxonomy.Repository
	searcher          HybridSearcher
	embedder          embedding.Embedder
	examID            string
	alpha             float64
	baseThreshold     float64
	relativeThreshold float64
	topK              uint64
	logger            *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSearcher sets the semantic search collaborator. Without one the
// service classifies on keyword overlap alone.
func WithSearcher(searcher HybridSearcher) Option {
	return func(s *Service) { s.searcher = searcher }
}

// WithEmbedder sets the embedder used to build the query vector handed to
// the searcher.
func WithEmbedder(embedder embedding.Embedder) Option {
	return func(s *Service) { s.embedder = embedder }
}

// WithExamID restricts semantic search to a single exam's topics.
func WithExamID(examID string) Option {
	return func(s *Service) { s.examID = examID }
}

// WithAlpha sets the semantic weight of the hybrid score.
func WithAlpha(alpha float64) Option {
	return func(s *Service) {
		if alpha >= 0 && alpha <= 1 {
			s.alpha = alpha
		}
	}
}

// WithBaseThreshold sets the absolute score floor.
func WithBaseThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.baseThreshold = threshold
		}
	}
}

// WithRelativeThreshold sets the floor relative to the best score.
func WithRelativeThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 1 {
			s.relativeThreshold = threshold
		}
	}
}

// WithTopK bounds the number of semantic hits requested per chunk.
func WithTopK(topK uint64) Option {
	return func(s *Service) {
		if topK > 0 {
			s.topK = topK
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a classification service over the given taxonomy
// repository.
func NewService(repo taxonomy.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("taxonomy repository cannot be nil")
	}

	s := &Service{
		repo:              repo,
		alpha:             DefaultAlpha,
		baseThreshold:     DefaultBaseThreshold,
		relativeThreshold: DefaultRelativeThreshold,
		topK:              DefaultTopK,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "classification_service"))

	return s, nil
}

// candidate is a scored topic before threshold filtering.
type candidate struct {
	match     domain.TopicMatch
	score     float64
	sortOrder int
}

// Classify scores every taxonomy node against the chunk and returns the
// matches that clear both the absolute and relative thresholds, ordered by
// descending score with ties broken by taxonomy sort order. An empty result
// means the chunk is unclassifiable, which is not an error. Collaborator
// failures during semantic search degrade the call to keyword-only scoring
// rather than failing it.
func (s *Service) Classify(ctx context.Context, chunk *domain.Chunk) ([]domain.TopicMatch, error) {
	if chunk == nil {
		return nil, ErrNilChunk
	}
	text := strings.TrimSpace(chunk.Text)
	if text == "" {
		return nil, nil
	}

	semantic := s.semanticScores(ctx, text)

	nodes, err := s.repo.AllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy nodes: %w", err)
	}

	lowered := strings.ToLower(text)
	candidates := make([]candidate, 0, len(nodes))
	maxScore := 0.0
	for _, node := range nodes {
		sem := semantic[node.ID]
		kw := keywordOverlap(lowered, node.Keywords)

		var score float64
		if semantic == nil {
			// No semantic collaborator (or it failed): the keyword
			// score stands alone instead of being halved by the
			// blend.
			score = kw
		} else {
			score = s.alpha*sem + (1-s.alpha)*kw
		}
		if score <= 0 {
			continue
		}
		if score > maxScore {
			maxScore = score
		}

		matchType := domain.MatchTypeHybrid
		if sem == 0 {
			matchType = domain.MatchTypeKeyword
		} else if kw == 0 {
			matchType = domain.MatchTypeSemantic
		}

		candidates = append(candidates, candidate{
			match: domain.TopicMatch{
				TopicID:    node.ID,
				Confidence: score,
				MatchType:  matchType,
			},
			score:     score,
			sortOrder: node.SortOrder,
		})
	}

	relativeFloor := s.relativeThreshold * maxScore
	kept := candidates[:0]
	for _, c := range candidates {
		if c.score >= s.baseThreshold && c.score >= relativeFloor {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].sortOrder < kept[j].sortOrder
	})

	matches := make([]domain.TopicMatch, 0, len(kept))
	for _, c := range kept {
		path, err := s.repo.TopicPath(ctx, c.match.TopicID)
		if err != nil {
			s.logger.Warn("failed to resolve topic path",
				slog.String("topic_id", c.match.TopicID),
				slog.String("error", err.Error()))
		} else {
			c.match.TopicPath = path
		}
		matches = append(matches, c.match)
	}

	s.logger.Debug("classified chunk",
		slog.String("chunk_id", chunk.ID.String()),
		slog.Int("matches", len(matches)),
		slog.Float64("max_score", maxScore))

	return matches, nil
}

// ClassifyChunk wraps Classify and pairs the chunk with its matches.
func (s *Service) ClassifyChunk(ctx context.Context, chunk *domain.Chunk) (*domain.ClassifiedChunk, error) {
	matches, err := s.Classify(ctx, chunk)
	if err != nil {
		return nil, err
	}
	return &domain.ClassifiedChunk{
		Chunk:   *chunk,
		Matches: matches,
		ExamID:  s.examID,
	}, nil
}

// semanticScores queries the search collaborator and returns per-topic
// similarity scores. Any failure is logged and yields an empty map so the
// caller can proceed with keyword scoring.
func (s *Service) semanticScores(ctx context.Context, text string) map[string]float64 {
	if s.searcher == nil {
		return nil
	}

	var vector []float32
	if s.embedder != nil {
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("embedding failed, searching by text only",
				slog.String("error", err.Error()))
		} else {
			vector = v
		}
	}

	hits, err := s.searcher.HybridSearch(ctx, text, vector, s.topK, s.alpha, s.examID)
	if err != nil {
		s.logger.Warn("semantic search failed, falling back to keyword scoring",
			slog.String("error", err.Error()))
		return nil
	}

	scores := make(map[string]float64, len(hits))
	for _, hit := range hits {
		if hit.Score > scores[hit.TopicID] {
			scores[hit.TopicID] = hit.Score
		}
	}
	return scores
}

// keywordOverlap returns the fraction of the node's keywords found in the
// lowercased chunk text. Multiword keywords match as phrases.
func keywordOverlap(loweredText string, keywords []string) float64 {
	total := 0
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		total++
		if strings.Contains(loweredText, kw) {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}
