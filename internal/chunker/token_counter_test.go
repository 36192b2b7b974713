package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforge/cardgen/internal/config"
)

func TestHeuristicTokenCounter(t *testing.T) {
	t.Parallel()

	counter := HeuristicTokenCounter{}
	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 0, counter.Count("   "))

	// Short words: word count dominates the chars/4 estimate.
	assert.Equal(t, 3, counter.Count("a b c"))

	// Long words: the character estimate dominates.
	long := "electrocardiography echocardiography pheochromocytoma"
	assert.Greater(t, counter.Count(long), 3)
}

func TestNewTikTokenCounterUnknownEncoding(t *testing.T) {
	t.Parallel()

	_, err := NewTikTokenCounter("no_such_encoding")
	assert.Error(t, err)
}

func TestTikTokenCounterCount(t *testing.T) {
	t.Parallel()

	counter, err := NewTikTokenCounter("cl100k_base")
	if err != nil {
		t.Skipf("skipping: cl100k_base encoding unavailable: %v", err)
	}

	assert.Equal(t, 0, counter.Count(""))

	n := counter.Count("Aspirin inhibits cyclooxygenase irreversibly.")
	assert.Greater(t, n, 3)

	// Token counts grow with text length under the same encoding.
	assert.Greater(t, counter.Count(repeatedSentences(4)), counter.Count(repeatedSentences(1)))
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty encoding keeps the heuristic counter", func(t *testing.T) {
		t.Parallel()

		c, err := NewFromConfig(config.ChunkerConfig{MaxTokens: 128, OverlapTokens: 16})
		require.NoError(t, err)
		assert.Equal(t, 128, c.maxTokens)
		assert.Equal(t, 16, c.overlapTokens)
		assert.IsType(t, HeuristicTokenCounter{}, c.counter)
	})

	t.Run("unknown encoding fails", func(t *testing.T) {
		t.Parallel()

		_, err := NewFromConfig(config.ChunkerConfig{
			MaxTokens:     128,
			TokenEncoding: "no_such_encoding",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no_such_encoding")
	})

	t.Run("tiktoken encoding selects the exact counter", func(t *testing.T) {
		t.Parallel()

		c, err := NewFromConfig(config.ChunkerConfig{
			MaxTokens:     128,
			TokenEncoding: "cl100k_base",
		})
		if err != nil {
			t.Skipf("skipping: cl100k_base encoding unavailable: %v", err)
		}
		assert.IsType(t, &TikTokenCounter{}, c.counter)
	})
}
