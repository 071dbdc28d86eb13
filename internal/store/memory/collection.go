package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// collection holds the rows of one entity in insertion order.
type collection[T any] struct {
	schema  *query.Schema[T]
	rows    map[uuid.UUID]T
	order   []uuid.UUID
	id      func(*T) *uuid.UUID
	created func(*T) *time.Time
	updated func(*T) *time.Time // nil for append-only entities

	// keys returns the unique keys of a row; empty keys are ignored.
	keys func(*T) []string
	// inserted completes child rows once the ID is assigned.
	inserted func(*T)
	// keep copies the fields an update may not change from stored to v.
	keep func(stored, v *T)
	// copy deep-copies slices so callers cannot alias stored rows.
	copy func(T) T
	// listed adjusts rows returned by queries.
	listed func(T) T
}

func (c *collection[T]) clone() *collection[T] {
	cp := *c
	cp.rows = make(map[uuid.UUID]T, len(c.rows))
	for k, v := range c.rows {
		cp.rows[k] = v
	}
	cp.order = append([]uuid.UUID(nil), c.order...)
	return &cp
}

func (c *collection[T]) dup(v T) T {
	if c.copy == nil {
		return v
	}
	return c.copy(v)
}

func (c *collection[T]) notFound(id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", c.schema.Entity(), id, store.ErrNotFound)
}

func (c *collection[T]) insert(v *T) error {
	id := c.id(v)
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if _, ok := c.rows[*id]; ok {
		return fmt.Errorf("%s %s: %w", c.schema.Entity(), *id, store.ErrDuplicate)
	}
	if err := c.checkUnique(*id, v); err != nil {
		return err
	}
	if c.inserted != nil {
		c.inserted(v)
	}
	now := time.Now().UTC()
	*c.created(v) = now
	if c.updated != nil {
		*c.updated(v) = now
	}
	c.rows[*id] = c.dup(*v)
	c.order = append(c.order, *id)
	return nil
}

func (c *collection[T]) get(id uuid.UUID) (*T, error) {
	v, ok := c.rows[id]
	if !ok {
		return nil, c.notFound(id)
	}
	v = c.dup(v)
	return &v, nil
}

func (c *collection[T]) update(v *T) error {
	id := *c.id(v)
	stored, ok := c.rows[id]
	if !ok {
		return c.notFound(id)
	}
	if err := c.checkUnique(id, v); err != nil {
		return err
	}
	*c.created(v) = *c.created(&stored)
	if c.keep != nil {
		c.keep(&stored, v)
	}
	if c.updated != nil {
		*c.updated(v) = time.Now().UTC()
	}
	c.rows[id] = c.dup(*v)
	return nil
}

func (c *collection[T]) delete(id uuid.UUID) error {
	if _, ok := c.rows[id]; !ok {
		return c.notFound(id)
	}
	delete(c.rows, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// list returns a copy of every row in insertion order.
func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		v := c.dup(c.rows[id])
		if c.listed != nil {
			v = c.listed(v)
		}
		out = append(out, v)
	}
	return out
}

func (c *collection[T]) checkUnique(id uuid.UUID, v *T) error {
	if c.keys == nil {
		return nil
	}
	want := c.keys(v)
	for _, other := range c.order {
		if other == id {
			continue
		}
		stored := c.rows[other]
		for i, k := range c.keys(&stored) {
			if k != "" && k == want[i] {
				return fmt.Errorf("%s %s: %w", c.schema.Entity(), strings.ReplaceAll(k, keySep, "/"), store.ErrDuplicate)
			}
		}
	}
	return nil
}

const keySep = "\x00"

// key joins the parts of a composite unique key. A key with an empty part
// is empty, matching SQL where NULL never collides.
func key(parts ...string) string {
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.Join(parts, keySep)
}
