// Package chunker splits ingested document text into overlapping,
// sentence-aligned chunks that honor section boundaries and never cut
// through protected medical spans (lab values, drug doses, multi-word
// anatomical phrases).
package chunker

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/medforge/cardgen/internal/config"
	"github.com/medforge/cardgen/internal/domain"
)

// Default chunking parameters.
const (
	DefaultMaxTokens     = 512
	DefaultOverlapTokens = 75
)

// sentenceTerminals are the characters a sentence may end with. A break
// point is the position immediately after a terminal that is followed by
// whitespace, or the position after a paragraph break.
const sentenceTerminals = `.!?:;"'`

// SectionAwareChunker produces ordered chunks from a document. It is safe
// for concurrent use once constructed.
type SectionAwareChunker struct {
	maxTokens     int
	overlapTokens int
	counter       TokenCounter
	protector     *MedicalTermProtector
	logger        *slog.Logger
}

// Option configures a SectionAwareChunker.
type Option func(*SectionAwareChunker)

// WithMaxTokens sets the target chunk size in tokens.
func WithMaxTokens(n int) Option {
	return func(c *SectionAwareChunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlapTokens sets the number of tokens adjacent chunks share.
func WithOverlapTokens(n int) Option {
	return func(c *SectionAwareChunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// WithTokenCounter sets a custom token counter implementation.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *SectionAwareChunker) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// WithProtector sets a custom medical-term protector. Passing nil disables
// span protection.
func WithProtector(p *MedicalTermProtector) Option {
	return func(c *SectionAwareChunker) {
		c.protector = p
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SectionAwareChunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a SectionAwareChunker with 512/75 token defaults, the
// heuristic token counter and the default medical-term protector.
func New(opts ...Option) *SectionAwareChunker {
	c := &SectionAwareChunker{
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
		counter:       HeuristicTokenCounter{},
		protector:     NewMedicalTermProtector(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a chunker from configuration. A non-empty
// TokenEncoding selects the tiktoken counter for that encoding; an empty
// one keeps the heuristic counter. Extra options are applied after the
// configured ones.
func NewFromConfig(cfg config.ChunkerConfig, opts ...Option) (*SectionAwareChunker, error) {
	configured := []Option{
		WithMaxTokens(cfg.MaxTokens),
		WithOverlapTokens(cfg.OverlapTokens),
	}
	if cfg.TokenEncoding != "" {
		counter, err := NewTikTokenCounter(cfg.TokenEncoding)
		if err != nil {
			return nil, fmt.Errorf("chunker token encoding %q: %w", cfg.TokenEncoding, err)
		}
		configured = append(configured, WithTokenCounter(counter))
	}
	return New(append(configured, opts...)...), nil
}

// sectionMark is a located section heading within the document text.
type sectionMark struct {
	offset int
	level  int
	title  string
}

// Chunk splits the document into an ordered sequence of chunks. It never
// returns an error: an empty document yields an empty sequence, a document
// whose total token count fits the budget yields exactly one chunk, and
// malformed inputs (no sections, headings that cannot be located) degrade
// to pure token-based splitting.
func (c *SectionAwareChunker) Chunk(doc *domain.Document) []domain.Chunk {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	text := doc.Text

	var spans []Span
	if c.protector != nil {
		spans = c.protector.Spans(text)
	}
	marks := locateSections(text, doc.Sections)

	if c.counter.Count(text) <= c.maxTokens {
		return c.emit(nil, doc, marks, 0, len(text))
	}

	breaks := sentenceBreaks(text, spans)
	headers := headerOffsets(marks, spans)

	var chunks []domain.Chunk
	start := 0
	prevEnd := 0
	for start < len(text) {
		end := c.findEnd(text, start, breaks, headers, spans)
		if end <= prevEnd {
			// The overlap tail swallowed the whole budget; restart past
			// the covered text instead of re-emitting it.
			start = skipSpace(text, prevEnd)
			if start >= len(text) {
				break
			}
			continue
		}
		prevEnd = end
		chunks = c.emit(chunks, doc, marks, start, end)
		if end >= len(text) {
			break
		}
		next := skipSpace(text, c.overlapStart(text, end, breaks))
		if next <= start {
			// No usable overlap point behind this boundary; continue
			// without overlap rather than stalling.
			next = skipSpace(text, end)
		}
		if next >= len(text) {
			break
		}
		start = next
	}
	return chunks
}

// emit appends the chunk covering text[start:end) to chunks, attaching the
// section path in effect at the chunk start. Invalid spans are logged and
// dropped rather than aborting the run.
func (c *SectionAwareChunker) emit(chunks []domain.Chunk, doc *domain.Document, marks []sectionMark, start, end int) []domain.Chunk {
	segment := doc.Text[start:end]
	tokens := c.counter.Count(segment)
	if tokens < 1 {
		tokens = 1
	}
	chunk, err := domain.NewChunk(doc.ID, segment, start, end, tokens, sectionPathAt(marks, start))
	if err != nil {
		c.logger.Warn("dropping invalid chunk span",
			"error", err, "start_char", start, "end_char", end)
		return chunks
	}
	return append(chunks, *chunk)
}

// findEnd picks the end of the chunk starting at start: the farthest
// sentence break within the token budget, pulled back to a section header
// when one lies within overlapTokens of the break. Falls back to a
// token-bounded word split when no sentence break fits.
func (c *SectionAwareChunker) findEnd(text string, start int, breaks, headers []int, spans []Span) int {
	if c.counter.Count(text[start:]) <= c.maxTokens {
		return len(text)
	}

	end := -1
	for _, b := range breaks {
		if b <= start {
			continue
		}
		if b >= len(text) {
			break
		}
		if c.counter.Count(text[start:b]) > c.maxTokens {
			break
		}
		end = b
	}
	if end < 0 {
		return c.hardSplit(text, start, spans)
	}

	// Prefer breaking exactly at a section header when one falls within
	// overlapTokens of the chosen break.
	for i := len(headers) - 1; i >= 0; i-- {
		h := headers[i]
		if h >= end {
			continue
		}
		if h <= start {
			break
		}
		if c.counter.Count(text[h:end]) <= c.overlapTokens {
			return h
		}
		break
	}
	return end
}

// hardSplit advances word by word (jumping over protected spans) until the
// token budget is reached. Used when a single sentence exceeds maxTokens.
func (c *SectionAwareChunker) hardSplit(text string, start int, spans []Span) int {
	pos := start
	for pos < len(text) {
		j := nextWordEnd(text, pos)
		if j <= pos {
			j = pos + 1
		}
		if splitsSpan(spans, j) {
			j = spanEnd(spans, j)
		}
		if c.counter.Count(text[start:j]) > c.maxTokens && pos > start {
			return pos
		}
		pos = j
	}
	return len(text)
}

// overlapStart returns the earliest sentence break before end whose tail
// text[b:end] still fits in overlapTokens. The tail is repeated verbatim
// at the head of the next chunk.
func (c *SectionAwareChunker) overlapStart(text string, end int, breaks []int) int {
	if c.overlapTokens <= 0 {
		return end
	}
	best := end
	for i := len(breaks) - 1; i >= 0; i-- {
		b := breaks[i]
		if b >= end {
			continue
		}
		if c.counter.Count(text[b:end]) > c.overlapTokens {
			break
		}
		best = b
	}
	return best
}

// sentenceBreaks returns the sorted candidate break positions: positions
// after a sentence terminal followed by whitespace, and positions after a
// paragraph break. Positions strictly inside a protected span are
// excluded.
func sentenceBreaks(text string, spans []Span) []int {
	var breaks []int

	for i, r := range text {
		if !strings.ContainsRune(sentenceTerminals, r) {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			continue
		}
		nr, _ := utf8.DecodeRuneInString(text[next:])
		if !unicode.IsSpace(nr) {
			continue
		}
		if !splitsSpan(spans, next) {
			breaks = append(breaks, next)
		}
	}

	from := 0
	for {
		j := strings.Index(text[from:], "\n\n")
		if j < 0 {
			break
		}
		pos := from + j + 2
		if pos < len(text) && !splitsSpan(spans, pos) {
			breaks = append(breaks, pos)
		}
		from = pos
	}

	sort.Ints(breaks)
	return dedupeInts(breaks)
}

// headerOffsets extracts the located section offsets usable as break
// points.
func headerOffsets(marks []sectionMark, spans []Span) []int {
	var offsets []int
	for _, m := range marks {
		if m.offset > 0 && !splitsSpan(spans, m.offset) {
			offsets = append(offsets, m.offset)
		}
	}
	sort.Ints(offsets)
	return offsets
}

// locateSections finds the byte offset of each section title within the
// document text. Titles are searched in section order; a title that cannot
// be located is skipped.
func locateSections(text string, sections []domain.Section) []sectionMark {
	var marks []sectionMark
	from := 0
	for _, s := range sections {
		if s.Title == "" {
			continue
		}
		idx := strings.Index(text[from:], s.Title)
		if idx < 0 {
			continue
		}
		off := from + idx
		marks = append(marks, sectionMark{offset: off, level: s.Level, title: s.Title})
		from = off + len(s.Title)
	}
	return marks
}

// sectionPathAt returns the ordered ancestor section titles covering the
// given position, derived from heading levels the way a document outline
// nests.
func sectionPathAt(marks []sectionMark, pos int) []string {
	type frame struct {
		level int
		title string
	}
	var stack []frame
	for _, m := range marks {
		if m.offset > pos {
			break
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= m.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, frame{level: m.level, title: m.title})
	}
	if len(stack) == 0 {
		return nil
	}
	path := make([]string, len(stack))
	for i, f := range stack {
		path[i] = f.title
	}
	return path
}

// nextWordEnd returns the position after the next whitespace-delimited
// word at or after pos.
func nextWordEnd(text string, pos int) int {
	i := pos
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// skipSpace returns the position of the first non-space rune at or after
// pos.
func skipSpace(text string, pos int) int {
	i := pos
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// spanEnd returns the end of the protected span containing pos, or pos
// itself when pos is not inside a span.
func spanEnd(spans []Span, pos int) int {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > pos })
	if i < len(spans) && spans[i].Start < pos {
		return spans[i].End
	}
	return pos
}

func dedupeInts(vals []int) []int {
	if len(vals) < 2 {
		return vals
	}
	out := vals[:1]
	for _, v := range vals[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
