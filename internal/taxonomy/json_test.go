package taxonomy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforge/cardgen/internal/domain"
)

const sampleSource = `{
  "systems": [
    {
      "id": "sys_cardio",
      "title": "Cardiovascular System",
      "keywords": ["heart", "cardiac"],
      "children": [
        {"id": "topic_chd", "title": "Congenital Heart Disease", "keywords": ["vsd", "asd"]},
        {"id": "topic_ihd", "title": "Ischemic Heart Disease", "keywords": ["angina", "mi"]}
      ]
    }
  ],
  "foundational_concepts": [
    {
      "id": "fc_biochem",
      "title": "Biochemistry",
      "keywords": ["enzyme", "metabolism"]
    }
  ]
}`

func TestParseSource(t *testing.T) {
	t.Parallel()

	nodes, err := ParseSource(strings.NewReader(sampleSource), "usmle1")
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.Equal(t, "sys_cardio", nodes[0].ID)
	assert.Equal(t, domain.NodeTypeSystem, nodes[0].NodeType)
	assert.True(t, nodes[0].IsRoot())

	assert.Equal(t, "topic_chd", nodes[1].ID)
	assert.Equal(t, domain.NodeTypeTopic, nodes[1].NodeType)
	require.NotNil(t, nodes[1].ParentID)
	assert.Equal(t, "sys_cardio", *nodes[1].ParentID)

	assert.Equal(t, "fc_biochem", nodes[3].ID)
	assert.Equal(t, domain.NodeTypeConcept, nodes[3].NodeType)
	assert.True(t, nodes[3].IsRoot())

	// Sort order follows document order.
	for i := 1; i < len(nodes); i++ {
		assert.Greater(t, nodes[i].SortOrder, nodes[i-1].SortOrder)
	}

	// The parsed nodes load cleanly.
	repo := NewMemoryRepository()
	require.NoError(t, repo.BulkLoad(context.Background(), nodes))
	children, err := repo.GetChildren(context.Background(), "sys_cardio")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestParseSourceErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseSource(strings.NewReader(`{}`), "usmle1")
	assert.ErrorIs(t, err, ErrNoTopLevelGroups)

	_, err = ParseSource(strings.NewReader(sampleSource), "")
	assert.ErrorIs(t, err, domain.ErrNodeExamIDEmpty)

	_, err = ParseSource(strings.NewReader(`{"systems": [{"id": "", "title": "x"}]}`), "usmle1")
	assert.ErrorIs(t, err, domain.ErrNodeIDEmpty)

	_, err = ParseSource(strings.NewReader(`not json`), "usmle1")
	assert.Error(t, err)
}
