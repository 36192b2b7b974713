package taxonomy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/medforge/cardgen/internal/domain"
)

// closureRow is one materialized (ancestor, descendant, distance) triple.
type closureRow struct {
	ancestor   string
	descendant string
	distance   int
}

// MemoryRepository is an in-memory Repository. It backs the classifier in
// tests and in single-process deployments that load the taxonomy at
// startup.
type MemoryRepository struct {
	mu      sync.RWMutex
	nodes   map[string]domain.TaxonomyNode
	order   []string // node IDs in load order
	closure []closureRow
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nodes: make(map[string]domain.TaxonomyNode),
	}
}

// Ensure MemoryRepository implements the Repository interface
var _ Repository = (*MemoryRepository)(nil)

// BulkLoad implements Repository.BulkLoad. Nodes of the exams present in
// the load are replaced; nodes of other exams are left untouched, matching
// the Postgres implementation.
func (r *MemoryRepository) BulkLoad(ctx context.Context, nodes []domain.TaxonomyNode) error {
	loaded := make(map[string]domain.TaxonomyNode, len(nodes))
	order := make([]string, 0, len(nodes))
	exams := make(map[string]struct{})
	for i := range nodes {
		n := nodes[i]
		if err := n.Validate(); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		loaded[n.ID] = n
		order = append(order, n.ID)
		exams[n.ExamID] = struct{}{}
	}
	for _, n := range loaded {
		if n.ParentID != nil {
			if _, ok := loaded[*n.ParentID]; !ok {
				return fmt.Errorf("node %q: %w: %q", n.ID, ErrUnknownParent, *n.ParentID)
			}
		}
	}

	r.mu.Lock()
	merged := make(map[string]domain.TaxonomyNode, len(r.nodes)+len(loaded))
	mergedOrder := make([]string, 0, len(r.order)+len(order))
	for _, id := range r.order {
		n := r.nodes[id]
		if _, replaced := exams[n.ExamID]; replaced {
			continue
		}
		merged[id] = n
		mergedOrder = append(mergedOrder, id)
	}
	for _, id := range order {
		merged[id] = loaded[id]
		mergedOrder = append(mergedOrder, id)
	}
	r.nodes = merged
	r.order = mergedOrder
	r.mu.Unlock()

	return r.BuildClosureTable(ctx)
}

// BuildClosureTable implements Repository.BuildClosureTable. For every
// node it inserts (node, node, 0) and (ancestor, node, d) for each
// ancestor at distance d. The table is replaced wholesale, so re-running
// is idempotent.
func (r *MemoryRepository) BuildClosureTable(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]closureRow, 0, len(r.nodes)*2)
	for _, id := range r.order {
		node := r.nodes[id]
		rows = append(rows, closureRow{ancestor: id, descendant: id, distance: 0})

		depth := 0
		cur := node
		for cur.ParentID != nil {
			parent, ok := r.nodes[*cur.ParentID]
			if !ok {
				return fmt.Errorf("node %q: %w: %q", cur.ID, ErrUnknownParent, *cur.ParentID)
			}
			depth++
			if depth > len(r.nodes) {
				return fmt.Errorf("node %q: %w", id, ErrCycle)
			}
			rows = append(rows, closureRow{ancestor: parent.ID, descendant: id, distance: depth})
			cur = parent
		}

		node.Depth = depth
		r.nodes[id] = node
	}

	r.closure = rows
	return nil
}

// GetNode implements Repository.GetNode.
func (r *MemoryRepository) GetNode(_ context.Context, id string) (*domain.TaxonomyNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	return &node, nil
}

// GetAncestors implements Repository.GetAncestors.
func (r *MemoryRepository) GetAncestors(_ context.Context, id string) ([]Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	var rels []Relation
	for _, row := range r.closure {
		if row.descendant == id && row.distance > 0 {
			rels = append(rels, Relation{Node: r.nodes[row.ancestor], Distance: row.distance})
		}
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].Distance < rels[j].Distance })
	return rels, nil
}

// GetDescendants implements Repository.GetDescendants.
func (r *MemoryRepository) GetDescendants(_ context.Context, id string) ([]Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	var rels []Relation
	for _, row := range r.closure {
		if row.ancestor == id && row.distance > 0 {
			rels = append(rels, Relation{Node: r.nodes[row.descendant], Distance: row.distance})
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Distance != rels[j].Distance {
			return rels[i].Distance < rels[j].Distance
		}
		return rels[i].Node.SortOrder < rels[j].Node.SortOrder
	})
	return rels, nil
}

// GetChildren implements Repository.GetChildren.
func (r *MemoryRepository) GetChildren(ctx context.Context, id string) ([]domain.TaxonomyNode, error) {
	rels, err := r.GetDescendants(ctx, id)
	if err != nil {
		return nil, err
	}
	var children []domain.TaxonomyNode
	for _, rel := range rels {
		if rel.Distance == 1 {
			children = append(children, rel.Node)
		}
	}
	return children, nil
}

// GetRootNodes implements Repository.GetRootNodes.
func (r *MemoryRepository) GetRootNodes(_ context.Context) ([]domain.TaxonomyNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var roots []domain.TaxonomyNode
	for _, id := range r.order {
		if n := r.nodes[id]; n.IsRoot() {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].SortOrder < roots[j].SortOrder })
	return roots, nil
}

// SearchByKeyword implements Repository.SearchByKeyword.
func (r *MemoryRepository) SearchByKeyword(_ context.Context, keyword string) ([]domain.TaxonomyNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return nil, nil
	}

	var matched []domain.TaxonomyNode
	for _, id := range r.order {
		node := r.nodes[id]
		for _, kw := range node.Keywords {
			if strings.ToLower(kw) == needle {
				matched = append(matched, node)
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SortOrder < matched[j].SortOrder })
	return matched, nil
}

// AllNodes implements Repository.AllNodes.
func (r *MemoryRepository) AllNodes(_ context.Context) ([]domain.TaxonomyNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.TaxonomyNode, 0, len(r.nodes))
	for _, id := range r.order {
		all = append(all, r.nodes[id])
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].SortOrder < all[j].SortOrder })
	return all, nil
}

// TopicPath implements Repository.TopicPath.
func (r *MemoryRepository) TopicPath(ctx context.Context, id string) ([]string, error) {
	node, err := r.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	ancestors, err := r.GetAncestors(ctx, id)
	if err != nil {
		return nil, err
	}

	path := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i].Node.Title)
	}
	path = append(path, node.Title)
	return path, nil
}
