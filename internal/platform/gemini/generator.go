package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/medforge/cardgen/internal/config"
	"github.com/medforge/cardgen/internal/generation"
	"github.com/medforge/cardgen/internal/validation"
)

// Default retry settings used when the configuration carries zero values.
const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// Generator implements the generation.ClozeGenerator,
// generation.VignetteGenerator, and validation.AccuracyChecker interfaces
// using Google's Gemini API.
type Generator struct {
	logger     *slog.Logger
	client     *genai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
}

// Interface assertions
var (
	_ generation.ClozeGenerator    = (*Generator)(nil)
	_ generation.VignetteGenerator = (*Generator)(nil)
	_ validation.AccuracyChecker   = (*Generator)(nil)
)

// NewGenerator creates a Gemini-backed generator from LLM configuration.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = defaultRetryDelay
	}

	return &Generator{
		logger:     logger.With(slog.String("component", "gemini_generator")),
		client:     client,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}, nil
}

// GenerateCloze implements generation.ClozeGenerator.
func (g *Generator) GenerateCloze(ctx context.Context, chunkText string, topicPath []string, limit int) ([]generation.RawCloze, error) {
	prompt, err := clozePrompt(chunkText, topicPath, limit)
	if err != nil {
		return nil, err
	}

	raw, err := callWithRetry(ctx, g.logger, g.maxRetries, g.baseDelay, g.jsonCall(prompt))
	if err != nil {
		return nil, err
	}
	return parseClozeResponse(raw)
}

// GenerateVignettes implements generation.VignetteGenerator.
func (g *Generator) GenerateVignettes(ctx context.Context, chunkText string, topicPath []string, limit int) ([]generation.RawVignette, error) {
	prompt, err := vignettePrompt(chunkText, topicPath, limit)
	if err != nil {
		return nil, err
	}

	raw, err := callWithRetry(ctx, g.logger, g.maxRetries, g.baseDelay, g.jsonCall(prompt))
	if err != nil {
		return nil, err
	}
	return parseVignetteResponse(raw)
}

// CheckAccuracy implements validation.AccuracyChecker.
func (g *Generator) CheckAccuracy(ctx context.Context, claim string) (validation.CheckResult, error) {
	prompt, err := renderPrompt(accuracyPromptTemplate, checkPromptData{Claim: claim})
	if err != nil {
		return validation.CheckResult{}, err
	}
	return g.runCheck(ctx, prompt)
}

// CheckGrounding implements validation.AccuracyChecker.
func (g *Generator) CheckGrounding(ctx context.Context, claim, source string) (validation.CheckResult, error) {
	prompt, err := renderPrompt(groundingPromptTemplate, checkPromptData{Claim: claim, Source: source})
	if err != nil {
		return validation.CheckResult{}, err
	}
	return g.runCheck(ctx, prompt)
}

func (g *Generator) runCheck(ctx context.Context, prompt string) (validation.CheckResult, error) {
	raw, err := callWithRetry(ctx, g.logger, g.maxRetries, g.baseDelay, g.jsonCall(prompt))
	if err != nil {
		return validation.CheckResult{}, err
	}
	resp, err := parseCheckResponse(raw)
	if err != nil {
		return validation.CheckResult{}, err
	}
	return validation.CheckResult{Passed: resp.Passed, Confidence: resp.Confidence}, nil
}

// jsonCall builds one structured-output attempt against the model.
func (g *Generator) jsonCall(prompt string) apiCall {
	return func(ctx context.Context) (string, error) {
		resp, err := g.client.Models.GenerateContent(ctx, g.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
		if err != nil {
			return "", err
		}
		return extractText(resp)
	}
}

// extractText pulls the text payload out of a response, classifying empty
// and safety-blocked responses as permanent errors.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("%w: response carried no text parts", generation.ErrInvalidResponse)
	}
	return text, nil
}
