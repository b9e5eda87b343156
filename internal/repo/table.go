package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// Filter narrows a table listing. OwnerID is always applied.
type Filter struct {
	OwnerID uuid.UUID
	// ProjectScoped restricts rows to ProjectID, or to rows without a project
	// when ProjectID is nil.
	ProjectScoped bool
	ProjectID     *uuid.UUID
	Where         map[string]any
	Clauses       []Clause
	Limit         int
	Cursor        *pagination.Cursor
}

// Clause is a raw condition ANDed into a query.
type Clause struct {
	Query string
	Args  []any
}

// ContainsFold matches rows whose column contains term, ignoring case.
func ContainsFold(column, term string) Clause {
	return Clause{Query: "LOWER(" + column + ") LIKE ?", Args: []any{"%" + strings.ToLower(term) + "%"}}
}

// Table is the typed CRUD surface every entity repository builds on. All
// queries are owner scoped and listed newest first.
type Table[T any] struct {
	entity   string
	cursorOf func(T) pagination.Cursor
}

// NewTable binds a model type to its entity name (used in error messages)
// and the cursor extractor for keyset pagination.
func NewTable[T any](entity string, cursorOf func(T) pagination.Cursor) Table[T] {
	return Table[T]{entity: entity, cursorOf: cursorOf}
}

// Scope applies the owner, project and equality filters of f to q.
func (t Table[T]) Scope(q *gorm.DB, f Filter) *gorm.DB {
	q = q.Where("owner_id = ?", f.OwnerID)
	if f.ProjectScoped {
		if f.ProjectID == nil {
			q = q.Where("project_id IS NULL")
		} else {
			q = q.Where("project_id = ?", *f.ProjectID)
		}
	}
	if len(f.Where) > 0 {
		q = q.Where(f.Where)
	}
	for _, c := range f.Clauses {
		q = q.Where(c.Query, c.Args...)
	}
	return q
}

func (t Table[T]) List(ctx context.Context, tx *gorm.DB, f Filter) ([]T, *pagination.Cursor, error) {
	if f.OwnerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	query := t.Scope(tx.WithContext(ctx).Model(new(T)), f)
	if f.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", f.Cursor.CreatedAt, f.Cursor.ID)
	}

	var rows []T
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(f.Limit)).Find(&rows).Error; err != nil {
		return nil, nil, t.fail("list", err)
	}

	rows, next := pagination.Page(rows, f.Limit, t.cursorOf)
	return rows, next, nil
}

func (t Table[T]) Get(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) (*T, error) {
	var row T
	err := tx.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&row).Error
	if err != nil {
		return nil, t.fail("get", err)
	}
	return &row, nil
}

func (t Table[T]) Create(ctx context.Context, tx *gorm.DB, row *T) error {
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return t.fail("create", err)
	}
	return nil
}

// Update applies patch to one owned row and returns the stored result.
func (t Table[T]) Update(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID, patch map[string]any) (*T, error) {
	if len(patch) > 0 {
		result := tx.WithContext(ctx).
			Model(new(T)).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(patch)
		if result.Error != nil {
			return nil, t.fail("update", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, t.notFound()
		}
	}
	return t.Get(ctx, tx, ownerID, id)
}

func (t Table[T]) Delete(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error {
	result := tx.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(new(T))
	if result.Error != nil {
		return t.fail("delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return t.notFound()
	}
	return nil
}

// Count returns how many rows match f, ignoring its cursor and limit.
func (t Table[T]) Count(ctx context.Context, tx *gorm.DB, f Filter) (int64, error) {
	var count int64
	if err := t.Scope(tx.WithContext(ctx).Model(new(T)), f).Count(&count).Error; err != nil {
		return 0, t.fail("count", err)
	}
	return count, nil
}

func (t Table[T]) notFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, t.entity+" not found")
}

// fail maps a gorm error onto the API error codes.
func (t Table[T]) fail(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return t.notFound()
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, t.entity+" already exists")
	case db.IsForeignKeyViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, t.entity+" references a missing record")
	case pkgerrors.PGClass(err) == pkgerrors.ClassTransactionRollback:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s aborted, retry", op, t.entity))
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("%s %s", op, t.entity))
	}
}

// MapError exposes the table error mapping to hand-written queries.
func (t Table[T]) MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return t.fail(op, err)
}
