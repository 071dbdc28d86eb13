package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operation is a filter comparison. The numeric values are part of the wire
// format: clients may send either the name or the ordinal.
type Operation int

const (
	Equal Operation = iota
	NotEqual
	Contains
	StartsWith
	EndsWith
	GreaterThan
	LessThan
	GreaterThanOrEqual
	LessThanOrEqual
	In
	NotIn
	IsNull
	IsNotNull
)

var operationNames = [...]string{
	Equal:              "Equal",
	NotEqual:           "NotEqual",
	Contains:           "Contains",
	StartsWith:         "StartsWith",
	EndsWith:           "EndsWith",
	GreaterThan:        "GreaterThan",
	LessThan:           "LessThan",
	GreaterThanOrEqual: "GreaterThanOrEqual",
	LessThanOrEqual:    "LessThanOrEqual",
	In:                 "In",
	NotIn:              "NotIn",
	IsNull:             "IsNull",
	IsNotNull:          "IsNotNull",
}

func (o Operation) String() string {
	if o.Valid() {
		return operationNames[o]
	}
	return "Operation(" + strconv.Itoa(int(o)) + ")"
}

// Valid reports whether o is one of the defined operations.
func (o Operation) Valid() bool {
	return o >= Equal && o <= IsNotNull
}

// ParseOperation resolves an operation by name (case-insensitive) or ordinal.
func ParseOperation(s string) (Operation, error) {
	s = strings.TrimSpace(s)
	for i, name := range operationNames {
		if strings.EqualFold(name, s) {
			return Operation(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Operation(n).Valid() {
		return Operation(n), nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

func (o Operation) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("marshal %s", o)
	}
	return json.Marshal(o.String())
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	op, err := ParseOperation(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// isOrdered reports whether o compares by ordering rather than identity.
func (o Operation) isOrdered() bool {
	switch o {
	case GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual:
		return true
	}
	return false
}

func (o Operation) isText() bool {
	switch o {
	case Contains, StartsWith, EndsWith:
		return true
	}
	return false
}

func (o Operation) isSet() bool {
	return o == In || o == NotIn
}

func (o Operation) isNullCheck() bool {
	return o == IsNull || o == IsNotNull
}
