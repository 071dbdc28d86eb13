package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clause is a filter resolved against a schema. Values holds the parsed
// operands: one for scalar comparisons, one or more for In and NotIn, none
// for the null checks.
type Clause struct {
	Property string
	Column   string
	Kind     Kind
	Nullable bool
	Op       Operation
	Values   []any
}

// Order is a sort key resolved against a schema.
type Order struct {
	Property string
	Column   string
	Desc     bool
}

// Plan is everything a Source needs to evaluate a query.
type Plan struct {
	Where []Clause
	Order []Order
	// Key is the primary key column, appended as the last sort key by
	// sources that do not sort stably.
	Key string
}

// Window selects a slice of the ordered result.
type Window struct {
	Offset int
	Limit  int
	All    bool
}

// timeLayouts are tried in order when parsing time operands.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func resolveClause[T any](s *Schema[T], spec FilterSpec) (Clause, error) {
	f, err := s.field(spec.PropertyName)
	if err != nil {
		return Clause{}, err
	}
	op := spec.Operation
	if !op.Valid() {
		return Clause{}, newError(UnsupportedOperation, f.Name, "%s", op)
	}
	if err := checkOperation(f.Name, f.Kind, f.Nullable, op); err != nil {
		return Clause{}, err
	}

	c := Clause{Property: f.Name, Column: f.Column, Kind: f.Kind, Nullable: f.Nullable, Op: op}
	switch {
	case op.isNullCheck():
		// The operand is ignored.
	case op.isSet():
		for _, item := range strings.Split(spec.Value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			v, err := parseValue(f.Name, f.Kind, f.Enum, item)
			if err != nil {
				return Clause{}, err
			}
			c.Values = append(c.Values, v)
		}
		if len(c.Values) == 0 {
			return Clause{}, newError(InvalidValue, f.Name, "%s requires at least one value", op)
		}
	case op.isText():
		c.Values = []any{spec.Value}
	default:
		v, err := parseValue(f.Name, f.Kind, f.Enum, strings.TrimSpace(spec.Value))
		if err != nil {
			return Clause{}, err
		}
		c.Values = []any{v}
	}
	return c, nil
}

func checkOperation(property string, kind Kind, nullable bool, op Operation) error {
	switch {
	case op.isText() && kind != KindString:
		return newError(UnsupportedOperation, property, "%s applies to text properties, not %s", op, kind)
	case op.isOrdered() && kind != KindInt && kind != KindDecimal && kind != KindTime:
		return newError(UnsupportedOperation, property, "%s applies to numeric and time properties, not %s", op, kind)
	case op.isSet() && kind == KindBool:
		return newError(UnsupportedOperation, property, "%s does not apply to bool", op)
	case op.isNullCheck() && !nullable:
		return newError(UnsupportedOperation, property, "%s applies to nullable properties only", op)
	}
	return nil
}

func parseValue(property string, kind Kind, enum map[string]int64, raw string) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalidValue(property, kind, raw)
		}
		return n, nil
	case KindDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalidValue(property, kind, raw)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidValue(property, kind, raw)
		}
		return b, nil
	case KindUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalidValue(property, kind, raw)
		}
		return id, nil
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, invalidValue(property, kind, raw)
	case KindEnum:
		for name, v := range enum {
			if strings.EqualFold(name, raw) {
				return v, nil
			}
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			for _, v := range enum {
				if v == n {
					return n, nil
				}
			}
		}
		return nil, invalidValue(property, kind, raw)
	}
	return nil, invalidValue(property, kind, raw)
}

func invalidValue(property string, kind Kind, raw string) *Error {
	return newError(InvalidValue, property, "%q is not a valid %s", raw, kind)
}
