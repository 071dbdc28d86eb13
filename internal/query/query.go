// Package query implements dynamic filtering, sorting and pagination over
// entity collections. A Query is built from a Schema and a Source, refined
// with ApplyFilters and ApplySorting, and executed by ApplyPagination.
package query

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Source evaluates a plan against some backing collection.
type Source[T any] interface {
	Count(ctx context.Context, plan Plan) (int, error)
	Fetch(ctx context.Context, plan Plan, w Window) ([]T, error)
}

// Query is an unexecuted, immutable query. Each Apply method returns a new
// Query and leaves the receiver untouched.
type Query[T any] struct {
	schema *Schema[T]
	source Source[T]
	where  []Clause
	order  []Order
}

// New starts a query over src described by schema.
func New[T any](schema *Schema[T], src Source[T]) Query[T] {
	return Query[T]{schema: schema, source: src}
}

func (q Query[T]) Schema() *Schema[T] { return q.schema }

// ApplyFilters narrows the query by every filter. Filters are combined with
// AND. The first invalid filter rejects the whole list.
func (q Query[T]) ApplyFilters(filters []FilterSpec) (Query[T], error) {
	if len(filters) == 0 {
		return q, nil
	}
	where := slices.Clone(q.where)
	for _, spec := range filters {
		c, err := resolveClause(q.schema, spec)
		if err != nil {
			return q, err
		}
		where = append(where, c)
	}
	q.where = where
	return q, nil
}

// ApplySorting appends sort keys in list order, so the first spec is the
// primary key of the ordering.
func (q Query[T]) ApplySorting(sorts []SortSpec) (Query[T], error) {
	if len(sorts) == 0 {
		return q, nil
	}
	order := slices.Clone(q.order)
	for _, spec := range sorts {
		f, err := q.schema.field(spec.SortBy)
		if err != nil {
			return q, err
		}
		order = append(order, Order{Property: f.Name, Column: f.Column, Desc: spec.Desc()})
	}
	q.order = order
	return q, nil
}

// Plan returns the resolved clauses and ordering.
func (q Query[T]) Plan() Plan {
	order := q.order
	if len(order) == 0 {
		order = q.schema.defaultOrder
	}
	return Plan{
		Where: slices.Clone(q.where),
		Order: slices.Clone(order),
		Key:   q.schema.key,
	}
}

// ApplyPagination executes the query: it counts the matching records, then
// fetches the requested page. Storage errors are returned unchanged.
func (q Query[T]) ApplyPagination(ctx context.Context, p PaginationSpec) (*PagedResult[T], error) {
	p, err := normalizePagination(p)
	if err != nil {
		return nil, err
	}
	plan := q.Plan()

	total, err := q.source.Count(ctx, plan)
	if err != nil {
		return nil, err
	}

	if p.GetAll {
		data, err := q.source.Fetch(ctx, plan, Window{All: true})
		if err != nil {
			return nil, err
		}
		res := &PagedResult[T]{
			Data:         nonNil(data),
			TotalRecords: total,
			PageNumber:   1,
			PageSize:     total,
		}
		if total > 0 {
			res.TotalPages = 1
		}
		return res, nil
	}

	offset := (p.PageNumber - 1) * p.PageSize
	var data []T
	if offset < total {
		data, err = q.source.Fetch(ctx, plan, Window{Offset: offset, Limit: p.PageSize})
		if err != nil {
			return nil, err
		}
	}
	totalPages := (total + p.PageSize - 1) / p.PageSize
	return &PagedResult[T]{
		Data:            nonNil(data),
		TotalRecords:    total,
		PageNumber:      p.PageNumber,
		PageSize:        p.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     p.PageNumber < totalPages,
		HasPreviousPage: p.PageNumber > 1,
	}, nil
}

// Run applies a whole DataRequest: filters, then sorting, then pagination.
// Nothing is executed unless every clause is valid. The applied clauses are
// echoed in the result metadata.
func Run[T any](ctx context.Context, q Query[T], req DataRequest) (*PagedResult[T], error) {
	q, err := q.ApplyFilters(req.Filters)
	if err != nil {
		return nil, err
	}
	q, err = q.ApplySorting(req.Sort)
	if err != nil {
		return nil, err
	}
	columns, err := q.resolveColumns(req.Columns)
	if err != nil {
		return nil, err
	}

	res, err := q.ApplyPagination(ctx, req.Pagination)
	if err != nil {
		return nil, err
	}
	res.Metadata = q.metadata(columns)
	return res, nil
}

func (q Query[T]) resolveColumns(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		f, err := q.schema.field(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f.Name)
	}
	return out, nil
}

func (q Query[T]) metadata(columns []string) map[string]any {
	md := map[string]any{"entity": q.schema.entity}
	if len(q.where) > 0 {
		filters := make([]string, len(q.where))
		for i, c := range q.where {
			filters[i] = fmt.Sprintf("%s %s", c.Property, c.Op)
		}
		md["filters"] = filters
	}
	plan := q.Plan()
	if len(plan.Order) > 0 {
		sorts := make([]string, len(plan.Order))
		for i, o := range plan.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			sorts[i] = o.Property + " " + dir
		}
		md["sort"] = strings.Join(sorts, ", ")
	}
	if len(columns) > 0 {
		md["columns"] = columns
	}
	return md
}

func normalizePagination(p PaginationSpec) (PaginationSpec, error) {
	if p.GetAll {
		return p, nil
	}
	if p.PageNumber < 0 {
		return p, newError(InvalidPagination, "", "pageNumber must not be negative")
	}
	if p.PageSize < 0 {
		return p, newError(InvalidPagination, "", "pageSize must not be negative")
	}
	if p.PageSize > MaxPageSize {
		return p, newError(InvalidPagination, "", "pageSize must not exceed %d", MaxPageSize)
	}
	if p.PageNumber == 0 {
		p.PageNumber = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	// The row offset (PageNumber-1)*PageSize must fit in an int.
	if p.PageNumber-1 > math.MaxInt/p.PageSize {
		return p, newError(InvalidPagination, "", "pageNumber %d is too large", p.PageNumber)
	}
	return p, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
