// Package taxonomy provides hierarchical topic storage for exam
// taxonomies. Hierarchy queries run against a closure table holding a
// flattened materialization of every ancestor/descendant pair, so
// ancestor and descendant lookups are single-table reads rather than
// recursive traversals.
package taxonomy

import (
	"context"
	"errors"

	"github.com/medforge/cardgen/internal/domain"
)

// Common taxonomy errors
var (
	// ErrNodeNotFound is returned when a node ID does not exist.
	ErrNodeNotFound = errors.New("taxonomy node not found")

	// ErrCycle is returned when a bulk load contains a parent cycle.
	ErrCycle = errors.New("taxonomy contains a parent cycle")

	// ErrUnknownParent is returned when a node references a parent that is
	// not part of the load.
	ErrUnknownParent = errors.New("taxonomy node references an unknown parent")
)

// Relation pairs a node with its closure-table distance from the queried
// node.
type Relation struct {
	Node     domain.TaxonomyNode
	Distance int
}

// Repository defines hierarchical topic storage. Implementations must keep
// the closure table consistent with the node set: BulkLoad replaces an
// exam's nodes wholesale and rebuilds the closure table; there is no
// incremental maintenance.
type Repository interface {
	// BulkLoad replaces all nodes for the nodes' exam and rebuilds the
	// closure table. Nodes must form a forest: every non-root parent ID
	// must be present in the load.
	BulkLoad(ctx context.Context, nodes []domain.TaxonomyNode) error

	// BuildClosureTable rebuilds the closure table from the current node
	// set. Re-running it is idempotent: rows are replaced, not appended.
	BuildClosureTable(ctx context.Context) error

	// GetNode returns the node with the given ID, or ErrNodeNotFound.
	GetNode(ctx context.Context, id string) (*domain.TaxonomyNode, error)

	// GetAncestors returns the proper ancestors of the node, ordered by
	// ascending distance (parent first). The node itself is excluded.
	GetAncestors(ctx context.Context, id string) ([]Relation, error)

	// GetDescendants returns the proper descendants of the node, ordered
	// by ascending distance then sort order. The node itself is excluded.
	GetDescendants(ctx context.Context, id string) ([]Relation, error)

	// GetChildren returns the direct children of the node ordered by sort
	// order.
	GetChildren(ctx context.Context, id string) ([]domain.TaxonomyNode, error)

	// GetRootNodes returns all root nodes ordered by sort order.
	GetRootNodes(ctx context.Context) ([]domain.TaxonomyNode, error)

	// SearchByKeyword returns all nodes carrying the given keyword
	// (case-insensitive), ordered by sort order.
	SearchByKeyword(ctx context.Context, keyword string) ([]domain.TaxonomyNode, error)

	// AllNodes returns every stored node ordered by sort order.
	AllNodes(ctx context.Context) ([]domain.TaxonomyNode, error)

	// TopicPath returns the node titles from root to the given node.
	TopicPath(ctx context.Context, id string) ([]string, error)
}
