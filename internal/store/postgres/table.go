package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// table describes how one entity maps onto its table. columns, values and
// scan share one column order; the first column is the primary key.
type table[T any] struct {
	schema  *query.Schema[T]
	columns []string
	// fixed columns are written on insert and never updated.
	fixed  map[string]bool
	values func(*T) []any
	scan   func(scannable) (*T, error)
	id     func(*T) *uuid.UUID
	// stamp sets the timestamps; created is true on insert.
	stamp func(v *T, now time.Time, created bool)

	cols      string
	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
	updateIdx []int
}

func newTable[T any](t table[T]) *table[T] {
	name := t.schema.Table()
	cols := strings.Join(t.columns, ", ")

	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var sets []string
	for i, c := range t.columns[1:] {
		if t.fixed[c] {
			continue
		}
		t.updateIdx = append(t.updateIdx, i+1)
		sets = append(sets, fmt.Sprintf("%s = $%d", c, len(sets)+2))
	}

	t.cols = cols
	t.selectSQL = `SELECT ` + cols + ` FROM ` + name
	t.insertSQL = `INSERT INTO ` + name + ` (` + cols + `) VALUES (` + strings.Join(placeholders, ", ") + `)`
	t.updateSQL = `UPDATE ` + name + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	t.deleteSQL = `DELETE FROM ` + name + ` WHERE id = $1`
	return &t
}

// repo implements store.Repository for one table on an executor.
type repo[T any] struct {
	db executor
	t  *table[T]
}

var _ store.Repository[struct{}] = (*repo[struct{}])(nil)

func (r *repo[T]) Create(ctx context.Context, v *T) error {
	return queryInsert(ctx, r.db, r.t, v)
}

func (r *repo[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return queryGet(ctx, r.db, r.t, id)
}

func (r *repo[T]) Update(ctx context.Context, v *T) error {
	r.t.stamp(v, time.Now().UTC(), false)
	all := r.t.values(v)
	args := make([]any, 0, len(r.t.updateIdx)+1)
	args = append(args, *r.t.id(v))
	for _, i := range r.t.updateIdx {
		args = append(args, all[i])
	}
	res, err := r.db.ExecContext(ctx, r.t.updateSQL, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.t.schema.Table(), err)
	}
	return expectRow(res, r.t.schema.Entity(), *r.t.id(v))
}

func (r *repo[T]) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.t.deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.t.schema.Table(), err)
	}
	return expectRow(res, r.t.schema.Entity(), id)
}

func (r *repo[T]) Query() query.Query[T] {
	return query.New(r.t.schema, r.source())
}

func (r *repo[T]) source() *sqlSource[T] {
	return &sqlSource[T]{
		db:      r.db,
		table:   r.t.schema.Table(),
		columns: r.t.cols,
		scan:    r.t.scan,
	}
}

func queryInsert[T any](ctx context.Context, db executor, t *table[T], v *T) error {
	if id := t.id(v); *id == uuid.Nil {
		*id = uuid.New()
	}
	t.stamp(v, time.Now().UTC(), true)
	if _, err := db.ExecContext(ctx, t.insertSQL, t.values(v)...); err != nil {
		return fmt.Errorf("insert %s: %w", t.schema.Table(), err)
	}
	return nil
}

func queryGet[T any](ctx context.Context, db executor, t *table[T], id uuid.UUID) (*T, error) {
	v, err := t.scan(db.QueryRowContext(ctx, t.selectSQL+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", t.schema.Entity(), id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.schema.Table(), err)
	}
	return v, nil
}

// queryGetBy fetches the single row whose column equals value.
func queryGetBy[T any](ctx context.Context, db executor, t *table[T], column string, value any) (*T, error) {
	v, err := t.scan(db.QueryRowContext(ctx, t.selectSQL+` WHERE `+column+` = $1`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s=%v: %w", t.schema.Entity(), column, value, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.schema.Table(), err)
	}
	return v, nil
}

func expectRow(res sql.Result, entity string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, store.ErrNotFound)
	}
	return nil
}
