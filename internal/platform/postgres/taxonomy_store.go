package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/platform/logger"
	"github.com/medforge/cardgen/internal/store"
	"github.com/medforge/cardgen/internal/taxonomy"
)

// nodeColumns is the select list shared by every node query.
const nodeColumns = `id, exam_id, node_type, code, title, description,
	percentage_min, percentage_max, parent_id, sort_order, depth`

// TaxonomyStore implements the taxonomy.Repository interface using a
// PostgreSQL database as the storage backend. Hierarchy reads are
// single-table lookups against the taxonomy_closure table; the only
// recursive query runs at closure-build time.
type TaxonomyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaxonomyStore creates a new PostgreSQL implementation of the taxonomy
// repository. It accepts a database connection or transaction that should
// be initialized and managed by the caller. If logger is nil, a default
// logger will be used.
func NewTaxonomyStore(db store.DBTX, logger *slog.Logger) *TaxonomyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaxonomyStore{
		db:     db,
		logger: logger.With(slog.String("component", "taxonomy_store")),
	}
}

// Ensure TaxonomyStore implements taxonomy.Repository
var _ taxonomy.Repository = (*TaxonomyStore)(nil)

// WithTx returns a store bound to the given transaction, for callers
// running BulkLoad atomically via store.RunInTransaction.
func (s *TaxonomyStore) WithTx(tx *sql.Tx) *TaxonomyStore {
	return &TaxonomyStore{db: tx, logger: s.logger}
}

// BulkLoad replaces all nodes for the exams present in the load and
// rebuilds the closure table. Nodes must form a forest: every non-root
// parent ID must be present in the load. Run it inside a transaction when
// atomicity matters.
func (s *TaxonomyStore) BulkLoad(ctx context.Context, nodes []domain.TaxonomyNode) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	byID := make(map[string]domain.TaxonomyNode, len(nodes))
	exams := make(map[string]struct{})
	for i := range nodes {
		node := &nodes[i]
		if err := node.Validate(); err != nil {
			return fmt.Errorf("%w: node %q: %v", store.ErrInvalidEntity, node.ID, err)
		}
		byID[node.ID] = *node
		exams[node.ExamID] = struct{}{}
	}
	for _, node := range nodes {
		if node.ParentID != nil {
			if _, ok := byID[*node.ParentID]; !ok {
				return fmt.Errorf("%w: node %q references %q",
					taxonomy.ErrUnknownParent, node.ID, *node.ParentID)
			}
		}
	}

	for examID := range exams {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM taxonomy_nodes WHERE exam_id = $1`, examID); err != nil {
			return MapError(err)
		}
	}

	// Insert parents before children so the parent foreign key holds.
	// The pass count is bounded by the tree height; exceeding the node
	// count means the load contains a cycle.
	inserted := make(map[string]bool, len(nodes))
	remaining := nodes
	for pass := 0; len(remaining) > 0; pass++ {
		if pass > len(nodes) {
			return taxonomy.ErrCycle
		}
		var deferred []domain.TaxonomyNode
		for _, node := range remaining {
			if node.ParentID != nil && !inserted[*node.ParentID] {
				deferred = append(deferred, node)
				continue
			}
			if err := s.insertNode(ctx, node); err != nil {
				return err
			}
			inserted[node.ID] = true
		}
		remaining = deferred
	}

	if err := s.BuildClosureTable(ctx); err != nil {
		return err
	}

	log.Info("taxonomy bulk load complete",
		slog.Int("nodes", len(nodes)),
		slog.Int("exams", len(exams)))
	return nil
}

func (s *TaxonomyStore) insertNode(ctx context.Context, node domain.TaxonomyNode) error {
	query := `
		INSERT INTO taxonomy_nodes
			(id, exam_id, node_type, code, title, description,
			 percentage_min, percentage_max, parent_id, sort_order, depth)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)
	`
	_, err := s.db.ExecContext(ctx, query,
		node.ID,
		node.ExamID,
		string(node.NodeType),
		nullString(node.Code),
		node.Title,
		nullString(node.Description),
		node.PercentageMin,
		node.PercentageMax,
		node.ParentID,
		node.SortOrder,
	)
	if err != nil {
		return MapError(err)
	}

	for _, keyword := range node.Keywords {
		if keyword == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO taxonomy_keywords (node_id, keyword) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			node.ID, keyword)
		if err != nil {
			return MapError(err)
		}
	}
	return nil
}

// BuildClosureTable rebuilds the closure table from the current node set:
// a self row (node, node, 0) for every node and one row per proper
// ancestor. Rows are replaced wholesale, so re-running it is idempotent.
// Node depth is refreshed from the rebuilt closure.
func (s *TaxonomyStore) BuildClosureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM taxonomy_closure`); err != nil {
		return MapError(err)
	}

	build := `
		INSERT INTO taxonomy_closure (ancestor_id, descendant_id, distance)
		WITH RECURSIVE tree AS (
			SELECT id AS ancestor_id, id AS descendant_id, 0 AS distance
			FROM taxonomy_nodes
			UNION ALL
			SELECT t.ancestor_id, n.id, t.distance + 1
			FROM tree t
			JOIN taxonomy_nodes n ON n.parent_id = t.descendant_id
		)
		SELECT ancestor_id, descendant_id, distance FROM tree
	`
	if _, err := s.db.ExecContext(ctx, build); err != nil {
		return MapError(err)
	}

	depth := `
		UPDATE taxonomy_nodes AS n
		SET depth = c.distance
		FROM taxonomy_closure AS c
		JOIN taxonomy_nodes AS r ON r.id = c.ancestor_id
		WHERE c.descendant_id = n.id AND r.parent_id IS NULL
	`
	if _, err := s.db.ExecContext(ctx, depth); err != nil {
		return MapError(err)
	}
	return nil
}

// GetNode returns the node with the given ID, or taxonomy.ErrNodeNotFound.
func (s *TaxonomyStore) GetNode(ctx context.Context, id string) (*domain.TaxonomyNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM taxonomy_nodes WHERE id = $1`
	node, err := s.scanNode(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", taxonomy.ErrNodeNotFound, id)
		}
		return nil, MapError(err)
	}

	keywords, err := s.loadKeywords(ctx, []string{node.ID})
	if err != nil {
		return nil, err
	}
	node.Keywords = keywords[node.ID]
	return node, nil
}

// GetAncestors returns the proper ancestors of the node ordered by
// ascending distance (parent first).
func (s *TaxonomyStore) GetAncestors(ctx context.Context, id string) ([]taxonomy.Relation, error) {
	if err := s.requireNode(ctx, id); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + qualifiedNodeColumns("n") + `, c.distance
		FROM taxonomy_closure c
		JOIN taxonomy_nodes n ON n.id = c.ancestor_id
		WHERE c.descendant_id = $1 AND c.distance > 0
		ORDER BY c.distance
	`
	return s.queryRelations(ctx, query, id)
}

// GetDescendants returns the proper descendants of the node ordered by
// ascending distance then sort order.
func (s *TaxonomyStore) GetDescendants(ctx context.Context, id string) ([]taxonomy.Relation, error) {
	if err := s.requireNode(ctx, id); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + qualifiedNodeColumns("n") + `, c.distance
		FROM taxonomy_closure c
		JOIN taxonomy_nodes n ON n.id = c.descendant_id
		WHERE c.ancestor_id = $1 AND c.distance > 0
		ORDER BY c.distance, n.sort_order
	`
	return s.queryRelations(ctx, query, id)
}

// GetChildren returns the direct children of the node ordered by sort
// order.
func (s *TaxonomyStore) GetChildren(ctx context.Context, id string) ([]domain.TaxonomyNode, error) {
	if err := s.requireNode(ctx, id); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + qualifiedNodeColumns("n") + `
		FROM taxonomy_closure c
		JOIN taxonomy_nodes n ON n.id = c.descendant_id
		WHERE c.ancestor_id = $1 AND c.distance = 1
		ORDER BY n.sort_order
	`
	return s.queryNodes(ctx, query, id)
}

// GetRootNodes returns all root nodes ordered by sort order.
func (s *TaxonomyStore) GetRootNodes(ctx context.Context) ([]domain.TaxonomyNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM taxonomy_nodes
		WHERE parent_id IS NULL ORDER BY sort_order`
	return s.queryNodes(ctx, query)
}

// SearchByKeyword returns all nodes carrying the given keyword
// (case-insensitive), ordered by sort order.
func (s *TaxonomyStore) SearchByKeyword(ctx context.Context, keyword string) ([]domain.TaxonomyNode, error) {
	query := `
		SELECT ` + qualifiedNodeColumns("n") + `
		FROM taxonomy_nodes n
		JOIN taxonomy_keywords k ON k.node_id = n.id
		WHERE lower(k.keyword) = lower($1)
		ORDER BY n.sort_order
	`
	return s.queryNodes(ctx, query, keyword)
}

// AllNodes returns every stored node ordered by sort order.
func (s *TaxonomyStore) AllNodes(ctx context.Context) ([]domain.TaxonomyNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM taxonomy_nodes ORDER BY sort_order`
	return s.queryNodes(ctx, query)
}

// TopicPath returns the node titles from root to the given node.
func (s *TaxonomyStore) TopicPath(ctx context.Context, id string) ([]string, error) {
	if err := s.requireNode(ctx, id); err != nil {
		return nil, err
	}
	query := `
		SELECT n.title
		FROM taxonomy_closure c
		JOIN taxonomy_nodes n ON n.id = c.ancestor_id
		WHERE c.descendant_id = $1
		ORDER BY c.distance DESC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var path []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, MapError(err)
		}
		path = append(path, title)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return path, nil
}

// requireNode returns taxonomy.ErrNodeNotFound when the ID is absent.
func (s *TaxonomyStore) requireNode(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM taxonomy_nodes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return MapError(err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", taxonomy.ErrNodeNotFound, id)
	}
	return nil
}

func (s *TaxonomyStore) queryNodes(ctx context.Context, query string, args ...any) ([]domain.TaxonomyNode, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []domain.TaxonomyNode
	var ids []string
	for rows.Next() {
		node, err := s.scanNode(rows)
		if err != nil {
			return nil, MapError(err)
		}
		nodes = append(nodes, *node)
		ids = append(ids, node.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if err := s.attachKeywords(ctx, nodes, ids); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *TaxonomyStore) queryRelations(ctx context.Context, query string, args ...any) ([]taxonomy.Relation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var relations []taxonomy.Relation
	var nodes []domain.TaxonomyNode
	var ids []string
	for rows.Next() {
		var node domain.TaxonomyNode
		var distance int
		if err := scanNodeFields(rows, &node, &distance); err != nil {
			return nil, MapError(err)
		}
		relations = append(relations, taxonomy.Relation{Node: node, Distance: distance})
		nodes = append(nodes, node)
		ids = append(ids, node.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if err := s.attachKeywords(ctx, nodes, ids); err != nil {
		return nil, err
	}
	for i := range relations {
		relations[i].Node = nodes[i]
	}
	return relations, nil
}

// attachKeywords loads keywords for the given node IDs and assigns them in
// place.
func (s *TaxonomyStore) attachKeywords(ctx context.Context, nodes []domain.TaxonomyNode, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keywords, err := s.loadKeywords(ctx, ids)
	if err != nil {
		return err
	}
	for i := range nodes {
		nodes[i].Keywords = keywords[nodes[i].ID]
	}
	return nil
}

func (s *TaxonomyStore) loadKeywords(ctx context.Context, ids []string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, keyword FROM taxonomy_keywords WHERE node_id = ANY($1)
		 ORDER BY node_id, keyword`, ids)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	keywords := make(map[string][]string)
	for rows.Next() {
		var nodeID, keyword string
		if err := rows.Scan(&nodeID, &keyword); err != nil {
			return nil, MapError(err)
		}
		keywords[nodeID] = append(keywords[nodeID], keyword)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return keywords, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *TaxonomyStore) scanNode(row rowScanner) (*domain.TaxonomyNode, error) {
	var node domain.TaxonomyNode
	if err := scanNodeFields(row, &node, nil); err != nil {
		return nil, err
	}
	return &node, nil
}

// scanNodeFields scans the nodeColumns select list into node, plus an
// optional trailing distance column.
func scanNodeFields(row rowScanner, node *domain.TaxonomyNode, distance *int) error {
	var (
		code        sql.NullString
		description sql.NullString
		nodeType    string
	)
	dest := []any{
		&node.ID,
		&node.ExamID,
		&nodeType,
		&code,
		&node.Title,
		&description,
		&node.PercentageMin,
		&node.PercentageMax,
		&node.ParentID,
		&node.SortOrder,
		&node.Depth,
	}
	if distance != nil {
		dest = append(dest, distance)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}
	node.NodeType = domain.NodeType(nodeType)
	node.Code = code.String
	node.Description = description.String
	return nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// qualifiedNodeColumns prefixes every node column with the given table
// alias.
func qualifiedNodeColumns(alias string) string {
	return alias + `.id, ` + alias + `.exam_id, ` + alias + `.node_type, ` +
		alias + `.code, ` + alias + `.title, ` + alias + `.description, ` +
		alias + `.percentage_min, ` + alias + `.percentage_max, ` +
		alias + `.parent_id, ` + alias + `.sort_order, ` + alias + `.depth`
}
