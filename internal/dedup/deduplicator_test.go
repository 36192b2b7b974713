package dedup

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/embedding"
)

func mustCloze(t *testing.T, text string) *domain.ClozeCard {
	t.Helper()
	card, err := domain.NewClozeCard(text, uuid.New(), "", nil)
	require.NoError(t, err)
	return card
}

func TestComputeContentHashIgnoresMetadata(t *testing.T) {
	t.Parallel()
	// Same canonical text, different IDs and source chunks.
	a := mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}.")
	b := mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}.")
	require.NotEqual(t, a.CardID(), b.CardID())
	require.NotEqual(t, a.SourceChunk(), b.SourceChunk())

	assert.Equal(t, ComputeContentHash(a), ComputeContentHash(b))
}

func TestComputeContentHashNormalizes(t *testing.T) {
	t.Parallel()
	a := mustCloze(t, "Aspirin   inhibits {{c1::cyclooxygenase}}.")
	b := mustCloze(t, "aspirin inhibits {{c1::cyclooxygenase}}.")

	assert.Equal(t, ComputeContentHash(a), ComputeContentHash(b),
		"case and whitespace differences must not defeat the hash")
}

func TestDeduplicateKeepsFirstSeen(t *testing.T) {
	t.Parallel()
	d := New()
	first := mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}.")
	other := mustCloze(t, "Heparin activates {{c1::antithrombin III}}.")
	dupe := mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}.")

	unique := d.Deduplicate([]domain.Card{first, other, dupe})
	require.Len(t, unique, 2)
	assert.Equal(t, first.CardID(), unique[0].CardID(), "first-seen card wins")
	assert.Equal(t, other.CardID(), unique[1].CardID(), "order is preserved")
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	t.Parallel()
	d := New()
	cards := []domain.Card{
		mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}."),
		mustCloze(t, "Heparin activates {{c1::antithrombin III}}."),
		mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}."),
	}

	once := d.Deduplicate(cards)
	twice := d.Deduplicate(once)
	assert.Equal(t, once, twice, "deduplicate must be idempotent on its own output")
}

func TestDeduplicateEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, New().Deduplicate(nil))
}

// directionEmbedder returns a fixed vector per text.
type directionEmbedder struct {
	vectors map[string][]float32
}

func (e *directionEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyText
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (e *directionEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func TestCheckSemantic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	near := mustCloze(t, "Aspirin blocks {{c1::cyclooxygenase}} irreversibly.")
	existing := mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}.")
	far := mustCloze(t, "The kidney reabsorbs {{c1::glucose}} proximally.")

	emb := &directionEmbedder{vectors: map[string][]float32{
		normalize(near.CanonicalText()):     {1, 0, 0},
		normalize(existing.CanonicalText()): {0.98, 0.2, 0},
		normalize(far.CanonicalText()):      {0, 1, 0},
	}}
	d := New(WithEmbedder(emb), WithSimilarityThreshold(0.9))

	res, err := d.CheckSemantic(ctx, near, []domain.Card{existing, far})
	require.NoError(t, err)
	assert.True(t, res.IsDuplicate)
	assert.Equal(t, StatusSemantic, res.Status)
	assert.Equal(t, existing.CardID(), res.DuplicateOf)
	assert.GreaterOrEqual(t, res.SimilarityScore, 0.9)

	res, err = d.CheckSemantic(ctx, far, []domain.Card{near})
	require.NoError(t, err)
	assert.False(t, res.IsDuplicate)
	assert.Equal(t, StatusUnique, res.Status)
}

func TestCheckSemanticRequiresEmbedder(t *testing.T) {
	t.Parallel()
	d := New()
	_, err := d.CheckSemantic(context.Background(), mustCloze(t, "{{c1::x}} y."), nil)
	assert.ErrorIs(t, err, ErrNoEmbedder)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
}

func TestHandleDuplicate(t *testing.T) {
	t.Parallel()
	d := New()
	card := mustCloze(t, "Aspirin inhibits {{c1::cyclooxygenase}}.")
	res := Result{IsDuplicate: true, Status: StatusExact, SimilarityScore: 1.0}

	kept, err := d.HandleDuplicate(card, res, ActionMark)
	require.NoError(t, err)
	marked, ok := kept.(*MarkedCard)
	require.True(t, ok)
	assert.Equal(t, card.CardID(), marked.CardID())
	assert.True(t, marked.Duplicate.IsDuplicate)

	removed, err := d.HandleDuplicate(card, res, ActionRemove)
	require.NoError(t, err)
	assert.Nil(t, removed)

	_, err = d.HandleDuplicate(card, res, Action("archive"))
	assert.ErrorIs(t, err, ErrUnknownAction)
}
