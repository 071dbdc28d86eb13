package query

import (
	"bytes"
	"cmp"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SliceSource evaluates plans against an in-memory slice using the schema's
// accessors. Ordering is stable, so ties keep their slice order.
type SliceSource[T any] struct {
	schema *Schema[T]
	items  []T
}

var _ Source[struct{}] = (*SliceSource[struct{}])(nil)

// FromSlice wraps items. The slice is not copied; callers must not modify it
// while queries run.
func FromSlice[T any](schema *Schema[T], items []T) *SliceSource[T] {
	return &SliceSource[T]{schema: schema, items: items}
}

// Slice is a shorthand for New(schema, FromSlice(schema, items)).
func Slice[T any](schema *Schema[T], items []T) Query[T] {
	return New[T](schema, FromSlice(schema, items))
}

func (s *SliceSource[T]) Count(ctx context.Context, plan Plan) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for i := range s.items {
		if s.match(&s.items[i], plan.Where) {
			n++
		}
	}
	return n, nil
}

func (s *SliceSource[T]) Fetch(ctx context.Context, plan Plan, w Window) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []T
	for i := range s.items {
		if s.match(&s.items[i], plan.Where) {
			out = append(out, s.items[i])
		}
	}
	if len(plan.Order) > 0 {
		getters := make([]func(*T) any, len(plan.Order))
		for i, o := range plan.Order {
			f, _ := s.schema.Field(o.Property)
			getters[i] = f.Get
		}
		sort.SliceStable(out, func(i, j int) bool {
			for k, o := range plan.Order {
				c := compareValues(getters[k](&out[i]), getters[k](&out[j]))
				if o.Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
	}
	if w.All {
		return out, nil
	}
	if w.Offset < 0 || w.Limit < 0 {
		return nil, newError(InvalidPagination, "", "negative window %d+%d", w.Offset, w.Limit)
	}
	if w.Offset >= len(out) {
		return nil, nil
	}
	end := len(out)
	if w.Limit < end-w.Offset {
		end = w.Offset + w.Limit
	}
	return out[w.Offset:end], nil
}

func (s *SliceSource[T]) match(item *T, where []Clause) bool {
	for _, c := range where {
		f, ok := s.schema.Field(c.Property)
		if !ok || !evalClause(c, f.Get(item)) {
			return false
		}
	}
	return true
}

// evalClause applies c to v, where nil is null. Null never equals, contains
// or compares to anything, so the negated operations match it.
func evalClause(c Clause, v any) bool {
	switch c.Op {
	case IsNull:
		return v == nil
	case IsNotNull:
		return v != nil
	case NotEqual:
		return v == nil || compareValues(v, c.Values[0]) != 0
	case NotIn:
		return v == nil || !containsValue(c.Values, v)
	}
	if v == nil {
		return false
	}
	switch c.Op {
	case Equal:
		return compareValues(v, c.Values[0]) == 0
	case In:
		return containsValue(c.Values, v)
	case GreaterThan:
		return compareValues(v, c.Values[0]) > 0
	case LessThan:
		return compareValues(v, c.Values[0]) < 0
	case GreaterThanOrEqual:
		return compareValues(v, c.Values[0]) >= 0
	case LessThanOrEqual:
		return compareValues(v, c.Values[0]) <= 0
	case Contains, StartsWith, EndsWith:
		str, ok := v.(string)
		operand, _ := c.Values[0].(string)
		if !ok {
			return false
		}
		switch c.Op {
		case Contains:
			return strings.Contains(str, operand)
		case StartsWith:
			return strings.HasPrefix(str, operand)
		default:
			return strings.HasSuffix(str, operand)
		}
	}
	return false
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if compareValues(v, candidate) == 0 {
			return true
		}
	}
	return false
}

// compareValues orders two canonical values of the same kind. Null sorts
// before everything else.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:])
		}
	}
	return 0
}
