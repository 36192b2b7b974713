package chunker

import (
	"regexp"
	"sort"
	"strings"
)

// Span is a half-open [Start, End) byte range within a text that must not
// be split across chunk boundaries.
type Span struct {
	Start int
	End   int
}

// Default regex sources for protected medical spans.
const (
	// labValueSource matches numeric lab values with their units,
	// e.g. "5.2 mg/dL", "140 mEq/L", "98%".
	labValueSource = `(?i)\d+(?:\.\d+)?\s*(?:mg/dL|mmol/L|mEq/L|g/dL|ng/mL|pg/mL|mcg/dL|IU/L|U/L|mIU/mL|mmHg|cells/mm3|bpm|%)`

	// drugDoseSource matches drug dose amounts with an optional route or
	// frequency suffix, e.g. "500 mg PO", "40 units SC", "2 g IV q8h".
	drugDoseSource = `(?i)\d+(?:\.\d+)?\s*(?:mg|mcg|g|mL|units?|mEq)(?:\s+(?:PO|IV|IM|SC|SL|PR|BID|TID|QID|q\d+h|daily|weekly))?`
)

// defaultAnatomicalPhrases lists multi-word anatomical terms that read as
// a single concept and must survive chunking intact.
var defaultAnatomicalPhrases = []string{
	"left anterior descending artery",
	"right coronary artery",
	"internal carotid artery",
	"middle cerebral artery",
	"superior mesenteric artery",
	"inferior vena cava",
	"superior vena cava",
	"left ventricular ejection fraction",
	"anterior cruciate ligament",
	"posterior cruciate ligament",
	"basal ganglia",
	"loop of Henle",
	"circle of Willis",
	"islets of Langerhans",
	"sinoatrial node",
	"atrioventricular node",
}

// MedicalTermProtector detects spans of text that chunking must never
// split: lab values with units, drug doses, and known multi-word
// anatomical phrases.
type MedicalTermProtector struct {
	patterns []*regexp.Regexp
}

// NewMedicalTermProtector creates a protector with the built-in lab-value
// and drug-dose patterns plus the default anatomical phrase list. Extra
// phrases may be supplied to extend the protected vocabulary.
func NewMedicalTermProtector(extraPhrases ...string) *MedicalTermProtector {
	phrases := make([]string, 0, len(defaultAnatomicalPhrases)+len(extraPhrases))
	phrases = append(phrases, defaultAnatomicalPhrases...)
	phrases = append(phrases, extraPhrases...)

	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(p))
	}

	patterns := []*regexp.Regexp{
		regexp.MustCompile(labValueSource),
		regexp.MustCompile(drugDoseSource),
	}
	if len(quoted) > 0 {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b(?:`+strings.Join(quoted, "|")+`)\b`))
	}

	return &MedicalTermProtector{patterns: patterns}
}

// Spans returns the merged, sorted protected spans found in the text.
// Overlapping matches (a drug-dose prefix inside a lab value, for
// instance) collapse into a single span.
func (p *MedicalTermProtector) Spans(text string) []Span {
	var spans []Span
	for _, re := range p.patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, Span{Start: loc[0], End: loc[1]})
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// splitsSpan reports whether a cut at pos would fall strictly inside one
// of the spans. Cutting exactly at a span edge is allowed.
func splitsSpan(spans []Span, pos int) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > pos })
	return i < len(spans) && spans[i].Start < pos && pos < spans[i].End
}
