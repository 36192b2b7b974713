package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequiresFlags(t *testing.T) {
	t.Parallel()

	err := run("", "usmle-step1")
	assert.ErrorContains(t, err, "-file")

	err = run("taxonomy.json", "")
	assert.ErrorContains(t, err, "-exam")
}

func TestParseSourceFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := parseSourceFile(filepath.Join(t.TempDir(), "absent.json"), "usmle-step1")
		assert.ErrorContains(t, err, "failed to open taxonomy source")
	})

	t.Run("valid outline", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "taxonomy.json")
		outline := `{
			"systems": [
				{
					"id": "sys_cardio",
					"title": "Cardiovascular",
					"keywords": ["heart"],
					"children": [
						{"id": "topic_mi", "title": "Myocardial Infarction", "keywords": ["stemi"]}
					]
				}
			]
		}`
		require.NoError(t, os.WriteFile(path, []byte(outline), 0o600))

		nodes, err := parseSourceFile(path, "usmle-step1")
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		assert.Equal(t, "sys_cardio", nodes[0].ID)
		assert.Equal(t, "usmle-step1", nodes[0].ExamID)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		_, err := parseSourceFile(path, "usmle-step1")
		assert.ErrorContains(t, err, "failed to parse taxonomy source")
	})
}
