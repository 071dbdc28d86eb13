package query

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// FilterSpec is a single predicate on one property. Value is textual; for
// In and NotIn it is a comma-delimited list.
type FilterSpec struct {
	PropertyName string    `json:"propertyName"`
	Operation    Operation `json:"operation"`
	Value        string    `json:"value"`
}

// UnmarshalJSON accepts a JSON string, number, boolean or null for value so
// that clients can send {"value": 1} as well as {"value": "1"}.
func (f *FilterSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		PropertyName string          `json:"propertyName"`
		Operation    Operation       `json:"operation"`
		Value        json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.PropertyName = raw.PropertyName
	f.Operation = raw.Operation
	f.Value = ""

	v := bytes.TrimSpace(raw.Value)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")):
	case v[0] == '"':
		if err := json.Unmarshal(v, &f.Value); err != nil {
			return err
		}
	case v[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			return err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			part, err := listItem(raw.PropertyName, bytes.TrimSpace(item))
			if err != nil {
				return err
			}
			parts[i] = part
		}
		f.Value = strings.Join(parts, ",")
	default:
		f.Value = string(v)
	}
	return nil
}

// listItem renders one element of a list value. Elements are joined with
// commas, so an element may not contain one.
func listItem(property string, item []byte) (string, error) {
	if len(item) == 0 {
		return "", newError(InvalidValue, property, "empty list item")
	}
	switch item[0] {
	case '"':
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return "", err
		}
		if strings.Contains(s, ",") {
			return "", newError(InvalidValue, property, "list item %q contains a comma", s)
		}
		return s, nil
	case '[', '{', 'n':
		return "", newError(InvalidValue, property, "list items must be strings, numbers or booleans, got %s", item)
	}
	return string(item), nil
}

// SortSpec orders by one property. Any direction other than "desc"
// (case-insensitive) sorts ascending.
type SortSpec struct {
	SortBy        string `json:"sortBy"`
	SortDirection string `json:"sortDirection"`
}

// Desc reports whether the sort is descending.
func (s SortSpec) Desc() bool {
	return strings.EqualFold(strings.TrimSpace(s.SortDirection), "desc")
}

// PaginationSpec selects one page, or everything when GetAll is set.
type PaginationSpec struct {
	GetAll     bool `json:"getAll"`
	PageNumber int  `json:"pageNumber"`
	PageSize   int  `json:"pageSize"`
}

// DataRequest is the body of a list query.
type DataRequest struct {
	Filters    []FilterSpec   `json:"filters"`
	Sort       []SortSpec     `json:"sort"`
	Pagination PaginationSpec `json:"pagination"`
	Columns    []string       `json:"columns,omitempty"`
}

// PagedResult is one page of a query plus the metadata to navigate it.
type PagedResult[T any] struct {
	Data            []T            `json:"data"`
	TotalRecords    int            `json:"totalRecords"`
	PageNumber      int            `json:"pageNumber"`
	PageSize        int            `json:"pageSize"`
	TotalPages      int            `json:"totalPages"`
	HasNextPage     bool           `json:"hasNextPage"`
	HasPreviousPage bool           `json:"hasPreviousPage"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Map converts the page items while keeping the paging metadata.
func Map[T, U any](r *PagedResult[T], fn func(T) U) *PagedResult[U] {
	out := &PagedResult[U]{
		Data:            make([]U, len(r.Data)),
		TotalRecords:    r.TotalRecords,
		PageNumber:      r.PageNumber,
		PageSize:        r.PageSize,
		TotalPages:      r.TotalPages,
		HasNextPage:     r.HasNextPage,
		HasPreviousPage: r.HasPreviousPage,
		Metadata:        r.Metadata,
	}
	for i, item := range r.Data {
		out.Data[i] = fn(item)
	}
	return out
}
