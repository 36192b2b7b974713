package rediscache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medforge/cardgen/internal/config"
)

func TestNewRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.RedisConfig{}, nil)
	assert.Error(t, err)
}
