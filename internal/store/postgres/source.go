package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/pharmacy/internal/query"
)

// sqlSource evaluates query plans against one table.
type sqlSource[T any] struct {
	db      executor
	table   string
	columns string
	scan    func(scannable) (*T, error)
}

var _ query.Source[struct{}] = (*sqlSource[struct{}])(nil)

func (s *sqlSource[T]) Count(ctx context.Context, plan query.Plan) (int, error) {
	var b argBuilder
	q := `SELECT COUNT(*) FROM ` + s.table + b.where(plan.Where)
	var total int
	if err := s.db.QueryRowContext(ctx, q, b.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return total, nil
}

func (s *sqlSource[T]) Fetch(ctx context.Context, plan query.Plan, w query.Window) ([]T, error) {
	var b argBuilder
	q := `SELECT ` + s.columns + ` FROM ` + s.table + b.where(plan.Where) + orderBy(plan)
	if !w.All {
		q += " LIMIT " + b.next(w.Limit) + " OFFSET " + b.next(w.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, b.args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()
	out, err := scanAll(rows, s.scan)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return out, nil
}

// argBuilder collects positional arguments and hands out their placeholders.
type argBuilder struct {
	args []any
}

func (b *argBuilder) next(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *argBuilder) list(values []any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = b.next(v)
	}
	return "(" + strings.Join(placeholders, ", ") + ")"
}

func (b *argBuilder) where(clauses []query.Clause) string {
	if len(clauses) == 0 {
		return ""
	}
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = b.condition(c)
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

// condition renders one clause. Negative comparisons on nullable columns
// match nulls explicitly since SQL comparisons with NULL are never true.
func (b *argBuilder) condition(c query.Clause) string {
	col := pq.QuoteIdentifier(c.Column)
	orNull := func(cond string) string {
		if !c.Nullable {
			return cond
		}
		return "(" + cond + " OR " + col + " IS NULL)"
	}

	switch c.Op {
	case query.Equal:
		return col + " = " + b.next(c.Values[0])
	case query.NotEqual:
		return orNull(col + " <> " + b.next(c.Values[0]))
	case query.GreaterThan:
		return col + " > " + b.next(c.Values[0])
	case query.GreaterThanOrEqual:
		return col + " >= " + b.next(c.Values[0])
	case query.LessThan:
		return col + " < " + b.next(c.Values[0])
	case query.LessThanOrEqual:
		return col + " <= " + b.next(c.Values[0])
	case query.Contains:
		return col + " LIKE " + b.next("%"+escapeLike(c.Values[0])+"%")
	case query.StartsWith:
		return col + " LIKE " + b.next(escapeLike(c.Values[0])+"%")
	case query.EndsWith:
		return col + " LIKE " + b.next("%"+escapeLike(c.Values[0]))
	case query.In:
		return col + " IN " + b.list(c.Values)
	case query.NotIn:
		return orNull(col + " NOT IN " + b.list(c.Values))
	case query.IsNull:
		return col + " IS NULL"
	case query.IsNotNull:
		return col + " IS NOT NULL"
	}
	// Clauses are validated before they reach a source.
	panic(fmt.Sprintf("postgres: unhandled operation %v", c.Op))
}

// orderBy renders the ORDER BY clause, appending the key column so that
// pages do not overlap when sort values tie.
func orderBy(plan query.Plan) string {
	var parts []string
	keyed := false
	for _, o := range plan.Order {
		col := pq.QuoteIdentifier(o.Column)
		if o.Desc {
			parts = append(parts, col+" DESC NULLS LAST")
		} else {
			parts = append(parts, col+" ASC NULLS FIRST")
		}
		if o.Column == plan.Key {
			keyed = true
		}
	}
	if !keyed && plan.Key != "" {
		parts = append(parts, pq.QuoteIdentifier(plan.Key)+" ASC")
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards so text operands match literally.
func escapeLike(v any) string {
	s, _ := v.(string)
	return likeEscaper.Replace(s)
}
