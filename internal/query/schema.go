package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.einride.tech/aip/filtering"
)

// Kind is the value type of a queryable property.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDecimal
	KindTime
	KindBool
	KindUUID
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	case KindUUID:
		return "uuid"
	case KindEnum:
		return "enum"
	}
	return "unknown"
}

// Field describes one queryable property of T. Get returns the canonical Go
// value for the kind (string, int64, float64, time.Time, bool, uuid.UUID,
// int64 for enums) or nil when the property is null.
type Field[T any] struct {
	Name     string
	Column   string
	Kind     Kind
	Nullable bool
	Enum     map[string]int64
	Get      func(*T) any
}

// String declares a non-null text property.
func String[T any](name, column string, get func(*T) string) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindString, Get: func(e *T) any { return get(e) }}
}

// OptString declares a text property where the empty string is stored as null.
func OptString[T any](name, column string, get func(*T) string) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindString, Nullable: true, Get: func(e *T) any {
		if v := get(e); v != "" {
			return v
		}
		return nil
	}}
}

func Int[T any](name, column string, get func(*T) int) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindInt, Get: func(e *T) any { return int64(get(e)) }}
}

func Decimal[T any](name, column string, get func(*T) float64) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindDecimal, Get: func(e *T) any { return get(e) }}
}

func Bool[T any](name, column string, get func(*T) bool) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindBool, Get: func(e *T) any { return get(e) }}
}

func Time[T any](name, column string, get func(*T) time.Time) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindTime, Get: func(e *T) any { return get(e) }}
}

func OptTime[T any](name, column string, get func(*T) *time.Time) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindTime, Nullable: true, Get: func(e *T) any {
		if v := get(e); v != nil {
			return *v
		}
		return nil
	}}
}

func UUID[T any](name, column string, get func(*T) uuid.UUID) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindUUID, Get: func(e *T) any { return get(e) }}
}

func OptUUID[T any](name, column string, get func(*T) *uuid.UUID) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindUUID, Nullable: true, Get: func(e *T) any {
		if v := get(e); v != nil {
			return *v
		}
		return nil
	}}
}

// Enum declares an integer-backed enumeration. names maps the member names
// to their values; filters may use either.
func Enum[T any](name, column string, names map[string]int64, get func(*T) int64) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindEnum, Enum: names, Get: func(e *T) any { return get(e) }}
}

// OptEnum is Enum where the zero value means null.
func OptEnum[T any](name, column string, names map[string]int64, get func(*T) int64) Field[T] {
	return Field[T]{Name: name, Column: column, Kind: KindEnum, Enum: names, Nullable: true, Get: func(e *T) any {
		if v := get(e); v != 0 {
			return v
		}
		return nil
	}}
}

// Schema is the queryable surface of one entity type. Build it once at
// start-up; it is read-only afterwards and safe for concurrent use.
type Schema[T any] struct {
	entity       string
	table        string
	key          string
	fields       []Field[T]
	byName       map[string]int
	defaultOrder []Order

	declsOnce sync.Once
	decls     *filtering.Declarations
	declsErr  error
}

// NewSchema registers the fields of an entity stored in table. It panics on
// duplicate or empty property names. The first field is the primary key and
// serves as the final tie-breaker when ordering.
func NewSchema[T any](entity, table string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{
		entity: entity,
		table:  table,
		fields: fields,
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" || f.Get == nil {
			panic(fmt.Sprintf("query: %s field %d is incomplete", entity, i))
		}
		key := strings.ToLower(f.Name)
		if _, dup := s.byName[key]; dup {
			panic(fmt.Sprintf("query: %s has duplicate property %q", entity, f.Name))
		}
		s.byName[key] = i
	}
	if len(fields) > 0 {
		s.key = fields[0].Column
	}
	return s
}

// OrderBy sets the order used when a request specifies none.
func (s *Schema[T]) OrderBy(property string, desc bool) *Schema[T] {
	f, ok := s.Field(property)
	if !ok {
		panic(fmt.Sprintf("query: %s has no property %q", s.entity, property))
	}
	s.defaultOrder = append(s.defaultOrder, Order{Property: f.Name, Column: f.Column, Desc: desc})
	return s
}

func (s *Schema[T]) Entity() string { return s.entity }
func (s *Schema[T]) Table() string  { return s.table }

// KeyColumn is the column of the primary key.
func (s *Schema[T]) KeyColumn() string { return s.key }

// Field looks up a property by name, ignoring case.
func (s *Schema[T]) Field(name string) (Field[T], bool) {
	i, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[i], true
}

// Fields returns the registered properties in declaration order.
func (s *Schema[T]) Fields() []Field[T] {
	out := make([]Field[T], len(s.fields))
	copy(out, s.fields)
	return out
}

// PropertyNames returns the property names sorted alphabetically.
func (s *Schema[T]) PropertyNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}

func (s *Schema[T]) field(name string) (Field[T], error) {
	f, ok := s.Field(name)
	if !ok {
		return Field[T]{}, newError(UnknownProperty, name, "%s has no such property", s.entity)
	}
	return f, nil
}
