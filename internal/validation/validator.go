// Package validation checks generated flashcards in two independent
// layers: local schema validation (cloze syntax, vignette option
// structure) and optional LLM-backed accuracy and grounding checks. The
// validator never mutates a card; accept/reject policy stays with the
// caller.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/medforge/cardgen/internal/domain"
)

// DefaultConfidenceThreshold is the minimum checker confidence below
// which an LLM verdict degrades to NeedsReview.
const DefaultConfidenceThreshold = 0.7

// GeneratedVignetteOptions is the option count a generated vignette must
// carry to be exam-complete. This is stricter than the card model, which
// accepts 2 to 5 options.
const GeneratedVignetteOptions = 5

// Verdict is the outcome of an LLM-backed accuracy/grounding check.
type Verdict string

// Possible verdicts
const (
	// VerdictValid means the card passed accuracy and grounding checks
	// with sufficient confidence.
	VerdictValid Verdict = "valid"

	// VerdictNeedsReview means the checks were inconclusive (low
	// confidence, or no checker configured). Never a hard failure.
	VerdictNeedsReview Verdict = "needs_review"

	// VerdictInvalid means the checker explicitly found the card
	// inaccurate or ungrounded.
	VerdictInvalid Verdict = "invalid"
)

// malformedClozePattern catches single-colon cloze spans like
// {{c1:answer}}, a common LLM output defect.
var malformedClozePattern = regexp.MustCompile(`\{\{c\d+:[^:{}][^}]*\}\}`)

// wellFormedClozePattern matches a correct {{cN::answer}} span.
var wellFormedClozePattern = regexp.MustCompile(`\{\{c\d+::[^}]+\}\}`)

// CheckResult carries an accuracy or grounding decision from the LLM
// collaborator: whether the claim held and how confident the model was.
type CheckResult struct {
	Passed     bool
	Confidence float64
}

// AccuracyChecker is the optional LLM collaborator for factual checks.
type AccuracyChecker interface {
	// CheckAccuracy judges whether the claim is medically accurate.
	CheckAccuracy(ctx context.Context, claim string) (CheckResult, error)

	// CheckGrounding judges whether the claim is supported by the source
	// text it was generated from.
	CheckGrounding(ctx context.Context, claim, source string) (CheckResult, error)
}

// CardValidator validates generated cards. The zero checker configuration
// is valid: schema checks still run and LLM checks return
// VerdictNeedsReview.
type CardValidator struct {
	checker   AccuracyChecker
	threshold float64
	logger    *slog.Logger
}

// Option configures a CardValidator.
type Option func(*CardValidator)

// WithAccuracyChecker wires the optional LLM collaborator.
func WithAccuracyChecker(checker AccuracyChecker) Option {
	return func(v *CardValidator) { v.checker = checker }
}

// WithConfidenceThreshold overrides the verdict confidence threshold.
func WithConfidenceThreshold(threshold float64) Option {
	return func(v *CardValidator) {
		if threshold > 0 && threshold <= 1 {
			v.threshold = threshold
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *CardValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a CardValidator.
func New(opts ...Option) *CardValidator {
	v := &CardValidator{
		threshold: DefaultConfidenceThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(slog.String("component", "card_validator"))
	return v
}

// ValidateCloze runs local schema validation on a cloze card. It returns
// whether the card is acceptable and the list of issues found.
func (v *CardValidator) ValidateCloze(card *domain.ClozeCard) (bool, []string) {
	var issues []string
	if card == nil {
		return false, []string{"card is nil"}
	}

	if err := card.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	if !wellFormedClozePattern.MatchString(card.Text) {
		issues = append(issues, "no well-formed {{cN::answer}} span")
	}
	if malformedClozePattern.MatchString(card.Text) {
		issues = append(issues, "malformed single-colon cloze span")
	}
	return len(issues) == 0, issues
}

// ValidateVignette runs local schema validation on a vignette card.
// Generated vignettes must be exam-complete: exactly five options lettered
// A through E with the answer among them.
func (v *CardValidator) ValidateVignette(card *domain.VignetteCard) (bool, []string) {
	var issues []string
	if card == nil {
		return false, []string{"card is nil"}
	}

	if err := card.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	if len(card.Options) < GeneratedVignetteOptions {
		issues = append(issues, fmt.Sprintf("generated vignette needs %d options, has %d",
			GeneratedVignetteOptions, len(card.Options)))
	}
	if len(card.Answer) != 1 || card.Answer[0] < 'A' || card.Answer[0] > 'E' {
		issues = append(issues, "answer letter must be A through E")
	}
	return len(issues) == 0, issues
}

// VerifyCard runs the optional LLM-backed accuracy and grounding checks
// against the card's canonical text and its source text. Without a
// checker the verdict is always NeedsReview; a low-confidence result also
// yields NeedsReview. Only an explicit failed check yields Invalid.
func (v *CardValidator) VerifyCard(ctx context.Context, card domain.Card, sourceText string) (Verdict, error) {
	if v.checker == nil {
		return VerdictNeedsReview, nil
	}

	claim := strings.TrimSpace(card.CanonicalText())

	accuracy, err := v.checker.CheckAccuracy(ctx, claim)
	if err != nil {
		return VerdictNeedsReview, fmt.Errorf("accuracy check: %w", err)
	}
	if accuracy.Confidence >= v.threshold && !accuracy.Passed {
		return VerdictInvalid, nil
	}

	grounding, err := v.checker.CheckGrounding(ctx, claim, sourceText)
	if err != nil {
		return VerdictNeedsReview, fmt.Errorf("grounding check: %w", err)
	}
	if grounding.Confidence >= v.threshold && !grounding.Passed {
		return VerdictInvalid, nil
	}

	if accuracy.Confidence < v.threshold || grounding.Confidence < v.threshold {
		return VerdictNeedsReview, nil
	}
	return VerdictValid, nil
}
