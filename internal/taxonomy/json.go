package taxonomy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/medforge/cardgen/internal/domain"
)

// ErrNoTopLevelGroups is returned when a taxonomy source file contains
// neither systems nor foundational concepts.
var ErrNoTopLevelGroups = errors.New("taxonomy source has no top-level groups")

// sourceTopic is one topic entry in the taxonomy source format. Children
// share the same shape as their parents.
type sourceTopic struct {
	ID          string        `json:"id"`
	Code        string        `json:"code,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Keywords    []string      `json:"keywords,omitempty"`
	Children    []sourceTopic `json:"children,omitempty"`
}

// sourceFile is the bulk-load input format: an array of top-level groups
// under "systems" and/or "foundational_concepts", each with nested child
// topics.
type sourceFile struct {
	Systems              []sourceTopic `json:"systems,omitempty"`
	FoundationalConcepts []sourceTopic `json:"foundational_concepts,omitempty"`
}

// ParseSource reads the taxonomy JSON source format and flattens it into
// TaxonomyNode values for the given exam, ready for Repository.BulkLoad.
// Sort order follows document order across both groups.
func ParseSource(r io.Reader, examID string) ([]domain.TaxonomyNode, error) {
	if examID == "" {
		return nil, domain.ErrNodeExamIDEmpty
	}

	var src sourceFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("decoding taxonomy source: %w", err)
	}
	if len(src.Systems) == 0 && len(src.FoundationalConcepts) == 0 {
		return nil, ErrNoTopLevelGroups
	}

	var nodes []domain.TaxonomyNode
	sortOrder := 0
	for _, top := range src.Systems {
		var err error
		nodes, sortOrder, err = flatten(nodes, top, examID, domain.NodeTypeSystem, nil, sortOrder)
		if err != nil {
			return nil, err
		}
	}
	for _, top := range src.FoundationalConcepts {
		var err error
		nodes, sortOrder, err = flatten(nodes, top, examID, domain.NodeTypeConcept, nil, sortOrder)
		if err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// flatten converts one source topic and its children into nodes,
// depth-first so children always follow their parent.
func flatten(nodes []domain.TaxonomyNode, topic sourceTopic, examID string, rootType domain.NodeType, parentID *string, sortOrder int) ([]domain.TaxonomyNode, int, error) {
	nodeType := rootType
	if parentID != nil {
		nodeType = domain.NodeTypeTopic
	}

	node := domain.TaxonomyNode{
		ID:          topic.ID,
		ExamID:      examID,
		NodeType:    nodeType,
		Code:        topic.Code,
		Title:       topic.Title,
		Description: topic.Description,
		ParentID:    parentID,
		SortOrder:   sortOrder,
		Keywords:    topic.Keywords,
	}
	if err := node.Validate(); err != nil {
		return nil, 0, fmt.Errorf("topic %q: %w", topic.ID, err)
	}

	nodes = append(nodes, node)
	sortOrder++

	id := node.ID
	for _, child := range topic.Children {
		var err error
		nodes, sortOrder, err = flatten(nodes, child, examID, rootType, &id, sortOrder)
		if err != nil {
			return nil, 0, err
		}
	}
	return nodes, sortOrder, nil
}
