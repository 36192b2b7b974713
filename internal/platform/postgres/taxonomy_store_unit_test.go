package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/store"
	"github.com/medforge/cardgen/internal/taxonomy"
)

// nopDB satisfies store.DBTX for tests that never reach the database.
type nopDB struct{}

func (nopDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("unexpected database call")
}
func (nopDB) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errors.New("unexpected database call")
}
func (nopDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("unexpected database call")
}
func (nopDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func TestNewTaxonomyStorePanicsOnNilDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewTaxonomyStore(nil, nil) })
}

func TestBulkLoadRejectsInvalidNodesBeforeTouchingDB(t *testing.T) {
	t.Parallel()
	s := NewTaxonomyStore(nopDB{}, nil)

	// Missing title fails domain validation.
	err := s.BulkLoad(context.Background(), []domain.TaxonomyNode{
		{ID: "sys_cardio", ExamID: "usmle1", NodeType: domain.NodeTypeSystem},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestBulkLoadRejectsUnknownParentBeforeTouchingDB(t *testing.T) {
	t.Parallel()
	s := NewTaxonomyStore(nopDB{}, nil)

	parent := "missing"
	err := s.BulkLoad(context.Background(), []domain.TaxonomyNode{
		{ID: "topic_mi", ExamID: "usmle1", NodeType: domain.NodeTypeTopic,
			Title: "Myocardial Infarction", ParentID: &parent},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, taxonomy.ErrUnknownParent)
}

func TestMapErrorTranslatesPostgresCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: uniqueViolationCode}, store.ErrDuplicate},
		{"foreign key violation", &pgconn.PgError{Code: foreignKeyViolationCode}, store.ErrForeignKey},
		{"check violation", &pgconn.PgError{Code: checkViolationCode}, store.ErrInvalidEntity},
		{"not null violation", &pgconn.PgError{Code: notNullViolationCode}, store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tt.in), tt.want)
		})
	}

	assert.NoError(t, MapError(nil))

	unmapped := errors.New("connection refused")
	assert.Equal(t, unmapped, MapError(unmapped))
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(MapError(sql.ErrNoRows)))
}
