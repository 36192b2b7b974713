package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter defines the interface for counting tokens in a string.
// This abstraction allows for different tokenization strategies (e.g.,
// heuristic estimation or model-specific subword tokenization).
type TokenCounter interface {
	// Count returns the number of tokens in the given text according to
	// the implementation's tokenization strategy.
	Count(text string) int
}

// HeuristicTokenCounter estimates token counts without a model vocabulary.
// It takes the larger of the word count and a characters/4 estimate, which
// tracks subword tokenizers closely enough for chunk sizing.
type HeuristicTokenCounter struct{}

// Count returns the estimated number of tokens in the text.
func (HeuristicTokenCounter) Count(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	est := utf8.RuneCountInString(text) / 4
	if est < words {
		est = words
	}
	return est
}

// TikTokenCounter provides exact token counting using the tiktoken
// library, which implements the tokenization schemes used by OpenAI
// models.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter creates a new TikTokenCounter using the specified
// encoding, e.g. "cl100k_base".
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

// Count returns the exact number of tokens in the text according to the
// configured tiktoken encoding.
func (ttc *TikTokenCounter) Count(text string) int {
	return len(ttc.tke.Encode(text, nil, nil))
}
