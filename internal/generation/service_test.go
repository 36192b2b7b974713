package generation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforge/cardgen/internal/dedup"
	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/generation"
	"github.com/medforge/cardgen/internal/validation"
)

func makeChunk(t *testing.T, text string) domain.Chunk {
	t.Helper()
	chunk, err := domain.NewChunk(uuid.New(), text, 0, len(text), 10, nil)
	require.NoError(t, err)
	return *chunk
}

// scriptedClozeGen maps a substring of the chunk text to a canned outcome.
type scriptedClozeGen struct {
	byMarker map[string][]generation.RawCloze
	failOn   string
	panicOn  string
}

func (g *scriptedClozeGen) GenerateCloze(_ context.Context, chunkText string, _ []string, _ int) ([]generation.RawCloze, error) {
	if g.panicOn != "" && strings.Contains(chunkText, g.panicOn) {
		panic("generator blew up")
	}
	if g.failOn != "" && strings.Contains(chunkText, g.failOn) {
		return nil, generation.ErrTransientFailure
	}
	for marker, raws := range g.byMarker {
		if strings.Contains(chunkText, marker) {
			return raws, nil
		}
	}
	return nil, nil
}

type staticVignetteGen struct {
	raws []generation.RawVignette
}

func (g *staticVignetteGen) GenerateVignettes(context.Context, string, []string, int) ([]generation.RawVignette, error) {
	return g.raws, nil
}

type staticClassifier struct {
	matches []domain.TopicMatch
	err     error
}

func (c *staticClassifier) Classify(context.Context, *domain.Chunk) ([]domain.TopicMatch, error) {
	return c.matches, c.err
}

func newService(t *testing.T, opts ...generation.Option) *generation.Service {
	t.Helper()
	svc, err := generation.NewService(validation.New(), dedup.New(), opts...)
	require.NoError(t, err)
	return svc
}

func fiveOptions() []domain.VignetteOption {
	return []domain.VignetteOption{
		{Letter: "A", Text: "Lisinopril"},
		{Letter: "B", Text: "Metoprolol"},
		{Letter: "C", Text: "Amlodipine"},
		{Letter: "D", Text: "Furosemide"},
		{Letter: "E", Text: "Spironolactone"},
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := generation.NewService(nil, dedup.New())
	assert.ErrorIs(t, err, generation.ErrNilValidator)

	_, err = generation.NewService(validation.New(), nil)
	assert.ErrorIs(t, err, generation.ErrNilDeduplicator)
}

func TestGenerateCardsHappyPath(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{byMarker: map[string][]generation.RawCloze{
		"aspirin":   {{Text: "Aspirin irreversibly inhibits {{c1::cyclooxygenase}}."}},
		"metformin": {{Text: "Metformin activates {{c1::AMP kinase}}."}},
	}}
	vignetteGen := &staticVignetteGen{raws: []generation.RawVignette{{
		Stem:        "A 58-year-old man with diabetes presents with hypertension.",
		Question:    "Which agent is first line?",
		Options:     fiveOptions(),
		Answer:      "A",
		Explanation: "ACE inhibitors protect the diabetic kidney.",
	}}}
	classifier := &staticClassifier{matches: []domain.TopicMatch{{
		TopicID: "topic_pharm", Confidence: 0.9, MatchType: domain.MatchTypeHybrid,
	}}}

	svc := newService(t,
		generation.WithClassifier(classifier),
		generation.WithClozeGenerator(clozeGen),
		generation.WithVignetteGenerator(vignetteGen))

	chunks := []domain.Chunk{
		makeChunk(t, "aspirin pharmacology text"),
		makeChunk(t, "metformin pharmacology text"),
	}

	result := svc.GenerateCards(context.Background(), chunks, generation.DefaultConfig(), nil)

	assert.Empty(t, result.Errors)
	// Two cloze cards plus a vignette per chunk; the two vignettes are
	// identical and deduplicate to one.
	assert.Equal(t, 3, result.Stats.TotalCards)
	assert.Equal(t, 2, result.Stats.ClozeCount)
	assert.Equal(t, 1, result.Stats.VignetteCount)
	assert.Equal(t, 2, result.Stats.ChunksProcessed)
	assert.Equal(t, 0, result.Stats.ChunksFailed)
	assert.GreaterOrEqual(t, result.Stats.DurationSeconds, 0.0)
	require.Len(t, result.Cards, 3)

	// Classification feeds the topic of every generated card.
	assert.Equal(t, "topic_pharm", result.Cards[0].Topic())
}

func TestGenerateCardsIsolatesChunkFailures(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{
		byMarker: map[string][]generation.RawCloze{
			"first": {{Text: "First fact about {{c1::insulin}}."}},
			"third": {{Text: "Third fact about {{c1::glucagon}}."}},
		},
		failOn: "second",
	}
	svc := newService(t, generation.WithClozeGenerator(clozeGen))

	chunks := []domain.Chunk{
		makeChunk(t, "first chunk"),
		makeChunk(t, "second chunk"),
		makeChunk(t, "third chunk"),
	}

	var progress [][2]int
	result := svc.GenerateCards(context.Background(), chunks, generation.DefaultConfig(), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, chunks[1].ID, result.Errors[0].ChunkID)
	assert.Contains(t, result.Errors[0].Message, "cloze generation")

	require.Len(t, result.Cards, 2)
	assert.Equal(t, chunks[0].ID, result.Cards[0].SourceChunk(), "cards stay in chunk order")
	assert.Equal(t, chunks[2].ID, result.Cards[1].SourceChunk())

	assert.Equal(t, 3, result.Stats.ChunksProcessed)
	assert.Equal(t, 1, result.Stats.ChunksFailed)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress,
		"progress fires after every chunk, failed ones included")
}

func TestGenerateCardsRecoversGeneratorPanic(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{
		byMarker: map[string][]generation.RawCloze{
			"good": {{Text: "A fact about {{c1::heparin}}."}},
		},
		panicOn: "toxic",
	}
	svc := newService(t, generation.WithClozeGenerator(clozeGen))

	chunks := []domain.Chunk{
		makeChunk(t, "toxic chunk"),
		makeChunk(t, "good chunk"),
	}
	result := svc.GenerateCards(context.Background(), chunks, generation.DefaultConfig(), nil)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, chunks[0].ID, result.Errors[0].ChunkID)
	assert.Contains(t, result.Errors[0].Message, "panic")
	require.Len(t, result.Cards, 1)
}

func TestGenerateCardsSwallowsProgressPanic(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{byMarker: map[string][]generation.RawCloze{
		"chunk": {{Text: "A fact about {{c1::warfarin}}."}},
	}}
	svc := newService(t, generation.WithClozeGenerator(clozeGen))

	chunks := []domain.Chunk{makeChunk(t, "chunk one"), makeChunk(t, "chunk two")}

	calls := 0
	result := svc.GenerateCards(context.Background(), chunks, generation.DefaultConfig(), func(done, total int) {
		calls++
		panic("observer bug")
	})

	assert.Equal(t, 2, calls, "a panicking callback is still called for every chunk")
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Cards, 2)
}

func TestGenerateCardsDropsInvalidCardsWithoutFailingChunk(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{byMarker: map[string][]generation.RawCloze{
		"chunk": {
			{Text: "no cloze spans at all"},
			{Text: "Valid span on {{c1::digoxin}}."},
		},
	}}
	svc := newService(t, generation.WithClozeGenerator(clozeGen))

	result := svc.GenerateCards(context.Background(),
		[]domain.Chunk{makeChunk(t, "chunk")}, generation.DefaultConfig(), nil)

	assert.Empty(t, result.Errors, "an invalid card is dropped, not a chunk failure")
	require.Len(t, result.Cards, 1)
	assert.Equal(t, 1, result.Stats.ClozeCount)
}

func TestGenerateCardsRespectsPerChunkCaps(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{byMarker: map[string][]generation.RawCloze{
		"chunk": {
			{Text: "Fact one about {{c1::sodium}}."},
			{Text: "Fact two about {{c1::potassium}}."},
			{Text: "Fact three about {{c1::calcium}}."},
		},
	}}
	svc := newService(t, generation.WithClozeGenerator(clozeGen))

	cfg := generation.Config{MaxClozePerChunk: 2}
	result := svc.GenerateCards(context.Background(),
		[]domain.Chunk{makeChunk(t, "chunk")}, cfg, nil)

	assert.Len(t, result.Cards, 2, "generator overflow is truncated to the cap")
}

func TestGenerateCardsClassificationFailureIsChunkFailure(t *testing.T) {
	t.Parallel()

	clozeGen := &scriptedClozeGen{byMarker: map[string][]generation.RawCloze{
		"chunk": {{Text: "A fact about {{c1::lidocaine}}."}},
	}}
	classifier := &staticClassifier{err: generation.ErrTransientFailure}
	svc := newService(t,
		generation.WithClassifier(classifier),
		generation.WithClozeGenerator(clozeGen))

	result := svc.GenerateCards(context.Background(),
		[]domain.Chunk{makeChunk(t, "chunk")}, generation.DefaultConfig(), nil)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "classification")
	assert.Empty(t, result.Cards)
}

func TestGenerateCardsEmptyBatch(t *testing.T) {
	t.Parallel()
	svc := newService(t)

	result := svc.GenerateCards(context.Background(), nil, generation.DefaultConfig(), nil)

	assert.Empty(t, result.Cards)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Stats.ChunksProcessed)
}
