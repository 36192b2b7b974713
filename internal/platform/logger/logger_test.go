package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforge/cardgen/internal/config"
)

// decodeLines parses each JSON log line from the buffer.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestSetupEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := setupWithWriter(config.LogConfig{Level: "info"}, &buf)

	log.Info("pipeline started", "chunks", 4)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "pipeline started", records[0]["msg"])
	assert.Equal(t, "INFO", records[0]["level"])
	assert.Equal(t, float64(4), records[0]["chunks"])
}

func TestSetupRespectsLevel(t *testing.T) {
	tests := []struct {
		level   string
		debugIn bool
		warnIn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := setupWithWriter(config.LogConfig{Level: tt.level}, &buf)

			log.Debug("debug message")
			log.Warn("warn message")

			out := buf.String()
			assert.Equal(t, tt.debugIn, strings.Contains(out, "debug message"))
			assert.Equal(t, tt.warnIn, strings.Contains(out, "warn message"))
		})
	}
}

func TestSetupDefaultsInvalidLevelToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := setupWithWriter(config.LogConfig{Level: "chatty"}, &buf)

	log.Debug("hidden")
	log.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestSetupReturnsUsableLogger(t *testing.T) {
	log, err := Setup(config.LogConfig{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, log)

	// Component loggers hang attributes off the returned logger.
	component := log.With("component", "chunker")
	assert.NotNil(t, component)
}
