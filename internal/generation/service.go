package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medforge/cardgen/internal/domain"
)

// Default per-chunk generation caps.
const (
	DefaultMaxClozePerChunk    = 3
	DefaultMaxVignettePerChunk = 1
)

// Constructor errors
var (
	ErrNilValidator    = errors.New("validator cannot be nil")
	ErrNilDeduplicator = errors.New("deduplicator cannot be nil")
)

// Config controls one generation batch.
type Config struct {
	// MaxClozePerChunk caps how many cloze cards are requested per chunk.
	// Zero disables cloze generation for the batch.
	MaxClozePerChunk int

	// MaxVignettePerChunk caps how many vignette cards are requested per
	// chunk. Zero disables vignette generation for the batch.
	MaxVignettePerChunk int

	// TopicID pins every generated card to a fixed topic. When empty the
	// chunk's top classification match is used instead.
	TopicID string
}

// DefaultConfig returns a Config with the default per-chunk caps.
func DefaultConfig() Config {
	return Config{
		MaxClozePerChunk:    DefaultMaxClozePerChunk,
		MaxVignettePerChunk: DefaultMaxVignettePerChunk,
	}
}

// Service drives the chunk → classify → generate → validate → deduplicate
// pipeline. Chunks are processed sequentially in input order; shared state
// is a single accumulator owned by the call, so no locking is needed.
type Service struct {
	validator   Validator
	deduper     Deduplicator
	classifier  Classifier
	clozeGen    ClozeGenerator
	vignetteGen VignetteGenerator
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClassifier sets the optional classification collaborator.
func WithClassifier(classifier Classifier) Option {
	return func(s *Service) { s.classifier = classifier }
}

// WithClozeGenerator sets the optional cloze generation collaborator.
func WithClozeGenerator(gen ClozeGenerator) Option {
	return func(s *Service) { s.clozeGen = gen }
}

// WithVignetteGenerator sets the optional vignette generation collaborator.
func WithVignetteGenerator(gen VignetteGenerator) Option {
	return func(s *Service) { s.vignetteGen = gen }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a generation service. The validator and deduplicator
// are required; classification and the generators are optional
// collaborators configured through options.
func NewService(validator Validator, deduper Deduplicator, opts ...Option) (*Service, error) {
	if validator == nil {
		return nil, ErrNilValidator
	}
	if deduper == nil {
		return nil, ErrNilDeduplicator
	}

	s := &Service{
		validator: validator,
		deduper:   deduper,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "generation_service"))

	return s, nil
}

// GenerateCards runs the pipeline over the chunks in input order and never
// returns an error: per-chunk failures are recorded in Result.Errors and
// the batch continues. onProgress (optional) fires after every chunk.
// Cards in the result are grouped by chunk-processing order.
func (s *Service) GenerateCards(ctx context.Context, chunks []domain.Chunk, cfg Config, onProgress ProgressFunc) *Result {
	start := time.Now()
	total := len(chunks)

	var accumulated []domain.Card
	var genErrors []GenerationError
	failed := 0

	for i := range chunks {
		chunk := &chunks[i]

		cards, err := s.processChunk(ctx, chunk, cfg)
		if err != nil {
			failed++
			genErrors = append(genErrors, GenerationError{
				ChunkID: chunk.ID,
				Message: err.Error(),
			})
			s.logger.Warn("chunk processing failed",
				slog.String("chunk_id", chunk.ID.String()),
				slog.String("error", err.Error()))
		} else {
			accumulated = append(accumulated, cards...)
		}

		s.reportProgress(onProgress, i+1, total)
	}

	deduped := s.deduper.Deduplicate(accumulated)

	stats := Stats{
		TotalCards:      len(deduped),
		DurationSeconds: time.Since(start).Seconds(),
		ChunksProcessed: total,
		ChunksFailed:    failed,
	}
	for _, card := range deduped {
		switch card.(type) {
		case *domain.ClozeCard:
			stats.ClozeCount++
		case *domain.VignetteCard:
			stats.VignetteCount++
		}
	}

	s.logger.Info("generation batch complete",
		slog.Int("chunks", total),
		slog.Int("chunks_failed", failed),
		slog.Int("cards", stats.TotalCards),
		slog.Int("raw_cards", len(accumulated)),
		slog.Float64("duration_seconds", stats.DurationSeconds))

	return &Result{Cards: deduped, Errors: genErrors, Stats: stats}
}

// processChunk runs classification, generation, and validation for one
// chunk. A panic anywhere inside is converted to an error so that one bad
// chunk cannot abort the batch.
func (s *Service) processChunk(ctx context.Context, chunk *domain.Chunk, cfg Config) (cards []domain.Card, err error) {
	defer func() {
		if r := recover(); r != nil {
			cards = nil
			err = fmt.Errorf("panic while processing chunk: %v", r)
		}
	}()

	topicID := cfg.TopicID
	var topicPath []string
	if s.classifier != nil {
		matches, cerr := s.classifier.Classify(ctx, chunk)
		if cerr != nil {
			return nil, fmt.Errorf("classification: %w", cerr)
		}
		if len(matches) > 0 {
			if topicID == "" {
				topicID = matches[0].TopicID
			}
			topicPath = matches[0].TopicPath
		}
	}

	if s.clozeGen != nil && cfg.MaxClozePerChunk > 0 {
		raws, gerr := s.clozeGen.GenerateCloze(ctx, chunk.Text, topicPath, cfg.MaxClozePerChunk)
		if gerr != nil {
			return nil, fmt.Errorf("cloze generation: %w", gerr)
		}
		if len(raws) > cfg.MaxClozePerChunk {
			raws = raws[:cfg.MaxClozePerChunk]
		}
		for _, raw := range raws {
			card, berr := domain.NewClozeCard(raw.Text, chunk.ID, topicID, raw.Tags)
			if berr != nil {
				s.logDropped(chunk, "cloze", berr.Error())
				continue
			}
			if ok, issues := s.validator.ValidateCloze(card); !ok {
				s.logDropped(chunk, "cloze", fmt.Sprintf("%v", issues))
				continue
			}
			cards = append(cards, card)
		}
	}

	if s.vignetteGen != nil && cfg.MaxVignettePerChunk > 0 {
		raws, gerr := s.vignetteGen.GenerateVignettes(ctx, chunk.Text, topicPath, cfg.MaxVignettePerChunk)
		if gerr != nil {
			return nil, fmt.Errorf("vignette generation: %w", gerr)
		}
		if len(raws) > cfg.MaxVignettePerChunk {
			raws = raws[:cfg.MaxVignettePerChunk]
		}
		for _, raw := range raws {
			card, berr := domain.NewVignetteCard(raw.Stem, raw.Question, raw.Options, raw.Answer, raw.Explanation, chunk.ID, topicID)
			if berr != nil {
				s.logDropped(chunk, "vignette", berr.Error())
				continue
			}
			if ok, issues := s.validator.ValidateVignette(card); !ok {
				s.logDropped(chunk, "vignette", fmt.Sprintf("%v", issues))
				continue
			}
			cards = append(cards, card)
		}
	}

	return cards, nil
}

// logDropped records a card that failed construction or validation. A bad
// card is dropped, not escalated to a chunk failure.
func (s *Service) logDropped(chunk *domain.Chunk, kind, reason string) {
	s.logger.Debug("dropping invalid generated card",
		slog.String("chunk_id", chunk.ID.String()),
		slog.String("card_type", kind),
		slog.String("reason", reason))
}

// reportProgress invokes the callback, swallowing any panic it raises.
func (s *Service) reportProgress(onProgress ProgressFunc, done, total int) {
	if onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("progress callback panicked",
				slog.Any("panic", r))
		}
	}()
	onProgress(done, total)
}
