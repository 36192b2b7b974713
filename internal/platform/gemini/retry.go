package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/medforge/cardgen/internal/generation"
)

// apiCall performs one attempt against the model and returns the raw
// response text.
type apiCall func(ctx context.Context) (string, error)

// callWithRetry runs the call with exponential backoff and jitter.
// Transient errors (network failures, 429/5xx API errors) are retried up
// to maxRetries times; permanent errors (blocked content, malformed
// responses) return immediately.
func callWithRetry(ctx context.Context, logger *slog.Logger, maxRetries int, baseDelay time.Duration, call apiCall) (string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		raw, err := call(ctx)
		if err == nil {
			return raw, nil
		}

		logger.WarnContext(ctx, "gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1),
			slog.String("error", err.Error()))

		if !isTransient(err) {
			return "", err
		}
		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		logger.InfoContext(ctx, "retrying gemini API call",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("gemini call cancelled during retry delay: %w", ctx.Err())
		}
	}
}

// isTransient reports whether the error is worth retrying. Rate limits and
// server-side failures are transient; everything classified as a generation
// sentinel (blocked content, malformed response) is permanent.
func isTransient(err error) bool {
	if errors.Is(err, generation.ErrContentBlocked) ||
		errors.Is(err, generation.ErrInvalidResponse) {
		return false
	}
	if errors.Is(err, generation.ErrRateLimited) || errors.Is(err, generation.ErrTransientFailure) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return true
		case apiErr.Code >= 500:
			return true
		default:
			return false
		}
	}

	// Unclassified errors (network level) are assumed transient, as the
	// upstream client does not wrap them consistently.
	return true
}
