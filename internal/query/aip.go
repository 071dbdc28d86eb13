package query

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.einride.tech/aip/filtering"
	"go.einride.tech/aip/ordering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// comparisons maps AIP-160 comparator functions to filter operations.
var comparisons = map[string]Operation{
	filtering.FunctionEquals:        Equal,
	filtering.FunctionNotEquals:     NotEqual,
	filtering.FunctionLessThan:      LessThan,
	filtering.FunctionLessEquals:    LessThanOrEqual,
	filtering.FunctionGreaterThan:   GreaterThan,
	filtering.FunctionGreaterEquals: GreaterThanOrEqual,
	filtering.FunctionHas:           Contains,
}

// ParseFilterString translates an AIP-160 filter expression such as
//
//	Status = "Active" AND UnitPrice >= 2.5 AND Name:"para"
//
// into filter specs. Only conjunctions of comparisons are supported; OR and
// NOT are rejected. Identifiers are the property names, either PascalCase or
// camelCase. Enum operands are member names or ordinals (Status = 1), bool
// operands are true or false, and UUID and time operands are strings.
func ParseFilterString[T any](s *Schema[T], filter string) ([]FilterSpec, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}
	decls, err := s.declarations()
	if err != nil {
		return nil, err
	}
	var parser filtering.Parser
	parser.Init(filter)
	parsed, err := parser.Parse()
	if err != nil {
		return nil, &Error{Kind: InvalidSyntax, Message: err.Error(), Err: err}
	}
	if err := resolveOperands(s, parsed.GetExpr()); err != nil {
		return nil, err
	}
	var checker filtering.Checker
	checker.Init(parsed.GetExpr(), parsed.GetSourceInfo(), decls)
	checked, err := checker.Check()
	if err != nil {
		return nil, &Error{Kind: InvalidSyntax, Message: err.Error(), Err: err}
	}
	var specs []FilterSpec
	if err := collectFilters(checked.GetExpr(), &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// resolveOperands checks the property of every comparison against the schema
// and rewrites enum names to ordinals and bool words to bool literals, so the
// type checker sees the declared operand types.
func resolveOperands[T any](s *Schema[T], root *expr.Expr) error {
	var err error
	filtering.Walk(func(e, _ *expr.Expr) bool {
		if err != nil {
			return false
		}
		call := e.GetCallExpr()
		if _, ok := comparisons[call.GetFunction()]; !ok || len(call.GetArgs()) != 2 {
			return true
		}
		ident := call.GetArgs()[0].GetIdentExpr()
		if ident == nil {
			return true
		}
		var f Field[T]
		if f, err = s.field(ident.GetName()); err != nil {
			return false
		}
		err = resolveOperand(f.Name, f.Kind, f.Enum, call.GetArgs()[1])
		return false
	}, root)
	return err
}

func resolveOperand(property string, kind Kind, enum map[string]int64, arg *expr.Expr) error {
	var word string
	if ident := arg.GetIdentExpr(); ident != nil {
		word = ident.GetName()
	} else {
		switch c := arg.GetConstExpr().GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			word = c.StringValue
		case *expr.Constant_Int64Value:
			word = strconv.FormatInt(c.Int64Value, 10)
		default:
			return nil
		}
	}
	switch kind {
	case KindBool:
		if word != "true" && word != "false" {
			return invalidValue(property, kind, word)
		}
		arg.ExprKind = &expr.Expr_ConstExpr{ConstExpr: &expr.Constant{
			ConstantKind: &expr.Constant_BoolValue{BoolValue: word == "true"},
		}}
	case KindEnum:
		v, err := parseValue(property, kind, enum, word)
		if err != nil {
			return err
		}
		arg.ExprKind = &expr.Expr_ConstExpr{ConstExpr: &expr.Constant{
			ConstantKind: &expr.Constant_Int64Value{Int64Value: v.(int64)},
		}}
	}
	return nil
}

func collectFilters(e *expr.Expr, out *[]FilterSpec) error {
	call := e.GetCallExpr()
	if call == nil {
		return newError(InvalidSyntax, "", "expected a comparison")
	}
	switch call.GetFunction() {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd:
		for _, arg := range call.GetArgs() {
			if err := collectFilters(arg, out); err != nil {
				return err
			}
		}
		return nil
	case filtering.FunctionOr, filtering.FunctionNot:
		return newError(UnsupportedOperation, "", "%s is not supported, filters are combined with AND", call.GetFunction())
	}

	op, ok := comparisons[call.GetFunction()]
	if !ok || len(call.GetArgs()) != 2 {
		return newError(UnsupportedOperation, "", "function %q", call.GetFunction())
	}
	ident := call.GetArgs()[0].GetIdentExpr()
	if ident == nil {
		return newError(InvalidSyntax, "", "left side of %s must be a property", call.GetFunction())
	}
	value, err := constantText(call.GetArgs()[1])
	if err != nil {
		return err
	}
	*out = append(*out, FilterSpec{PropertyName: ident.GetName(), Operation: op, Value: value})
	return nil
}

func constantText(e *expr.Expr) (string, error) {
	if call := e.GetCallExpr(); call != nil && call.GetFunction() == filtering.FunctionTimestamp && len(call.GetArgs()) == 1 {
		return constantText(call.GetArgs()[0])
	}
	c := e.GetConstExpr()
	if c == nil {
		return "", newError(InvalidSyntax, "", "right side of a comparison must be a literal")
	}
	switch v := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return v.StringValue, nil
	case *expr.Constant_Int64Value:
		return strconv.FormatInt(v.Int64Value, 10), nil
	case *expr.Constant_Uint64Value:
		return strconv.FormatUint(v.Uint64Value, 10), nil
	case *expr.Constant_DoubleValue:
		return strconv.FormatFloat(v.DoubleValue, 'f', -1, 64), nil
	case *expr.Constant_BoolValue:
		return strconv.FormatBool(v.BoolValue), nil
	}
	return "", newError(InvalidSyntax, "", "unsupported literal")
}

func (s *Schema[T]) declarations() (*filtering.Declarations, error) {
	s.declsOnce.Do(func() {
		opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
		for _, f := range s.fields {
			t := aipType(f.Kind)
			opts = append(opts, filtering.DeclareIdent(f.Name, t))
			if alt := lowerFirst(f.Name); alt != f.Name {
				opts = append(opts, filtering.DeclareIdent(alt, t))
			}
		}
		s.decls, s.declsErr = filtering.NewDeclarations(opts...)
	})
	return s.decls, s.declsErr
}

func aipType(k Kind) *expr.Type {
	switch k {
	case KindInt, KindEnum:
		return filtering.TypeInt
	case KindBool:
		return filtering.TypeBool
	case KindDecimal:
		return filtering.TypeFloat
	case KindTime:
		return filtering.TypeTimestamp
	}
	return filtering.TypeString
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

// ParseOrderBy translates an AIP-132 order_by string ("Name desc, CreatedAt")
// into sort specs. Property names are resolved later by ApplySorting.
func ParseOrderBy(s string) ([]SortSpec, error) {
	var ob ordering.OrderBy
	if err := ob.UnmarshalString(strings.TrimSpace(s)); err != nil {
		return nil, &Error{Kind: InvalidSyntax, Message: err.Error(), Err: err}
	}
	specs := make([]SortSpec, 0, len(ob.Fields))
	for _, f := range ob.Fields {
		dir := "asc"
		if f.Desc {
			dir = "desc"
		}
		specs = append(specs, SortSpec{SortBy: f.Path, SortDirection: dir})
	}
	return specs, nil
}
