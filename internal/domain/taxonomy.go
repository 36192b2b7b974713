package domain

import "errors"

// NodeType identifies the kind of taxonomy node.
type NodeType string

// Possible node type values
const (
	NodeTypeSystem  NodeType = "system"
	NodeTypeConcept NodeType = "concept"
	NodeTypeTopic   NodeType = "topic"
)

// Common validation errors for TaxonomyNode
var (
	ErrNodeIDEmpty     = errors.New("taxonomy node ID cannot be empty")
	ErrNodeExamIDEmpty = errors.New("taxonomy node exam ID cannot be empty")
	ErrNodeTitleEmpty  = errors.New("taxonomy node title cannot be empty")
)

// TaxonomyNode is one node in an exam's topic hierarchy. Nodes form a
// forest per exam; root nodes have a nil ParentID. Hierarchy queries go
// through a closure table rather than walking ParentID chains at query
// time.
type TaxonomyNode struct {
	ID            string   `json:"id"`
	ExamID        string   `json:"exam_id"`
	NodeType      NodeType `json:"node_type"`
	Code          string   `json:"code,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	PercentageMin *float64 `json:"percentage_min,omitempty"`
	PercentageMax *float64 `json:"percentage_max,omitempty"`
	ParentID      *string  `json:"parent_id,omitempty"`
	SortOrder     int      `json:"sort_order"`
	Keywords      []string `json:"keywords,omitempty"`
	Depth         int      `json:"depth,omitempty"`
}

// Validate checks if the TaxonomyNode has valid data.
func (n *TaxonomyNode) Validate() error {
	if n.ID == "" {
		return ErrNodeIDEmpty
	}
	if n.ExamID == "" {
		return ErrNodeExamIDEmpty
	}
	if n.Title == "" {
		return ErrNodeTitleEmpty
	}
	return nil
}

// IsRoot reports whether the node is a root of its exam's forest.
func (n *TaxonomyNode) IsRoot() bool {
	return n.ParentID == nil
}
