package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextRoundTrip(t *testing.T) {
	t.Parallel()

	log := slog.Default().With("component", "test")
	ctx := WithContext(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))
	assert.Same(t, log, FromContextOrDefault(ctx, nil))
}

func TestFromContextFallsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx))

	fallback := slog.Default().With("component", "fallback")
	assert.Same(t, fallback, FromContextOrDefault(ctx, fallback))
}
