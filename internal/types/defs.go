package types

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/pkg/errors"
)

// TypeNames reports which user-defined type names are in scope.
type TypeNames interface {
	IsTypename(name string) bool
}

// Definitions holds the language rules: which names, qualifiers and
// specifiers exist, which types substitute for which, and what operators
// yield.
type Definitions struct {
	names TypeNames
}

// NewDefinitions returns the rules for a context whose user-defined type
// names are answered by names.
func NewDefinitions(names TypeNames) *Definitions {
	return &Definitions{names: names}
}

// Qualifiers are the recognized type qualifiers.
var Qualifiers = []string{
	"const", "restrict", "volatile",
	"global", "local", "constant", "private",
	"read_only", "write_only", "read_write",
}

// StorageSpecifiers are the recognized storage class specifiers.
var StorageSpecifiers = []string{"typedef", "extern", "static"}

// FuncSpecifiers are the recognized function specifiers.
var FuncSpecifiers = []string{"inline", "explicit", "virtual", "kernel"}

var reserved = map[string]bool{}

func init() {
	for _, group := range [][]string{ScalarTypes, VectorTypes, Qualifiers, FuncSpecifiers} {
		for _, w := range group {
			reserved[w] = true
		}
	}
}

// IsReserved reports whether name may not be used as an identifier.
func IsReserved(name string) bool {
	return reserved[name]
}

// IsValidName reports whether name can be bound in a context. Names
// beginning with '!' are kept for internal bindings.
func IsValidName(name string) bool {
	return !strings.HasPrefix(name, "!")
}

// CondType is the type a condition must substitute for.
func CondType() *Type { return New("bool") }

// DimType is the type an array dimension must substitute for.
func DimType() *Type { return New("size_t") }

// SubscriptType is the type an array subscript must substitute for.
func SubscriptType() *Type { return DimType() }

// EnumTagType is the type bound to an enum's tag.
func EnumTagType() *Type {
	t := New("int")
	t.AddQual("const")
	return t
}

// EnumValueType is the type bound to each enumerator.
func EnumValueType() *Type { return New("int") }

// TypenameExists reports whether name is built in or a type name in scope.
func (d *Definitions) TypenameExists(name string) bool {
	if IsBuiltin(name) {
		return true
	}
	return d.names != nil && d.names.IsTypename(name)
}

// ----------------------------------------------------------------------------
// Existence
// ----------------------------------------------------------------------------

// Exists returns an error if t is not a valid type.
func (d *Definitions) Exists(t *Type) error {
	switch t.Kind {
	case KindEllipsis:
		return nil

	case KindStruct:
		for _, m := range t.MemberTypes() {
			if err := d.Exists(m); err != nil {
				return err
			}
		}
		return d.checkAttributes(t)

	case KindTypeDef:
		if err := d.Exists(t.Aliased); err != nil {
			return err
		}
		return d.checkAttributes(t)

	case KindEnum:
		for _, v := range t.EnumValues {
			if IsReserved(v) {
				return errors.Errorf("Reserved word %s in enum definition", v)
			}
		}
		if IsReserved(t.EnumName) {
			return errors.Errorf("Enum name %s is a reserved word", t.EnumName)
		}
		return nil

	case KindFunction:
		for _, p := range t.Params {
			if p.Kind == KindFunction {
				return errors.Errorf("HOFs not supported: parameter %s of %s", p.Name, t.Name)
			}
			if err := d.Exists(p); err != nil {
				return err
			}
		}
		if t.Return.Kind == KindFunction {
			return errors.Errorf("HOFs not supported: %s returns a function", t.Name)
		}
		if err := d.Exists(t.Return); err != nil {
			return err
		}
		return d.checkAttributes(t)
	}

	if !d.TypenameExists(t.Name) {
		return errors.Errorf("Typename %s unknown", t.Name)
	}
	return d.checkAttributes(t)
}

func (d *Definitions) checkAttributes(t *Type) error {
	for _, q := range append(t.Quals(), t.PtrQuals...) {
		if !contains(Qualifiers, q) {
			return errors.Errorf("Qualifier %s unknown", q)
		}
	}
	for _, f := range t.FuncSpec {
		if !contains(FuncSpecifiers, f) {
			return errors.Errorf("Function specifier %s unknown", f)
		}
	}
	for _, s := range t.Storage {
		if !contains(StorageSpecifiers, s) {
			return errors.Errorf("Storage specifier %s unknown", s)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Substitution
// ----------------------------------------------------------------------------

// substitutions lists the directed edges "left can be used where right is
// expected".
var substitutions = [][2]string{
	{"char", "uchar"},
	{"char", "short"},
	{"char", "ushort"},
	{"char", "int"},
	{"char", "uint"},
	{"char", "long"},
	{"char", "ulong"},

	{"uchar", "char"},

	{"short", "int"},

	{"ushort", "int"},

	{"int", "uint"},
	{"int", "size_t"},
	{"int", "long"},
	{"int", "char"},
	{"int", "uchar"},
	{"int", "short"},
	{"int", "ushort"},
	{"int", "ulong"},

	{"uint", "int"},

	{"long", "ulong"},
	{"long", "int"},

	{"ulong", "long"},
	{"ulong", "int"},

	{"size_t", "int"},
}

var substitutionGraph = map[string][]string{}

func init() {
	for _, e := range substitutions {
		substitutionGraph[e[0]] = append(substitutionGraph[e[0]], e[1])
	}
}

// TransitiveSub reports whether a path of substitution edges leads from
// given to expected.
func TransitiveSub(given, expected string) bool {
	if given == "" || expected == "" {
		return false
	}
	visited := hashset.New()
	var walk func(from string) bool
	walk = func(from string) bool {
		visited.Add(from)
		for _, to := range substitutionGraph[from] {
			if to == expected {
				return true
			}
			if !visited.Contains(to) && walk(to) {
				return true
			}
		}
		return false
	}
	return walk(given)
}

// SubstitutesFor returns every scalar name that transitively substitutes
// for name, not including name itself.
func SubstitutesFor(name string) []string {
	var out []string
	for _, s := range ScalarTypes {
		if s != name && TransitiveSub(s, name) {
			out = append(out, s)
		}
	}
	return out
}

// Sub reports whether a value of type lhs can be used where rhs is
// expected. Mixing a pointer with a non-integer scalar is an error rather
// than a mismatch.
func (d *Definitions) Sub(lhs, rhs *Type) (bool, error) {
	if lhs == nil || rhs == nil {
		return false, errors.New("Expected a type but found none")
	}

	// String literals and char arrays are interchangeable.
	if lhs.Name == "string" && rhs.Name == "char" {
		return rhs.IsPtrLike(), nil
	}
	if rhs.Name == "string" && lhs.Name == "char" {
		return lhs.IsPtrLike(), nil
	}

	switch {
	case lhs.IsPtrLike() && rhs.IsPtrLike():
		return true, nil
	case lhs.IsPtrLike():
		if rhs.Name == "int" || TransitiveSub("int", rhs.Name) {
			return true, nil
		}
		return false, errors.Errorf("Cannot operate on a ptr and a non-ptr: %s and %s", lhs, rhs)
	case rhs.IsPtrLike():
		if lhs.Name == "int" || TransitiveSub("int", lhs.Name) {
			return true, nil
		}
		return false, errors.Errorf("Cannot operate on a ptr and a non-ptr: %s and %s", lhs, rhs)
	}

	return lhs.Name == rhs.Name || TransitiveSub(lhs.Name, rhs.Name), nil
}

// ----------------------------------------------------------------------------
// Operators
// ----------------------------------------------------------------------------

var conditionalOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

var logicalOps = map[string]bool{"&&": true, "||": true}

var arithmeticOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
}

var passThroughUnaryOps = map[string]bool{
	"-": true, "+": true, "!": true, "~": true,
	"++": true, "--": true, "p++": true, "p--": true,
}

// ReturnType returns the type of applying op to lhs and, for binary
// operators, rhs. Pass a nil rhs for unary operators.
func (d *Definitions) ReturnType(op string, lhs, rhs *Type) (*Type, error) {
	if lhs == nil {
		return nil, errors.Errorf("Operator %s has no operand", op)
	}

	if rhs == nil {
		return d.unaryReturnType(op, lhs)
	}

	switch {
	case conditionalOps[op]:
		msg := fmt.Sprintf("Incompatible operands of %s: %s and %s", op, lhs, rhs)
		if err := d.requireSub(lhs, rhs, msg); err != nil {
			return nil, err
		}
		return CondType(), nil

	case logicalOps[op]:
		for _, operand := range []*Type{lhs, rhs} {
			msg := fmt.Sprintf("Operand of %s must be bool but found %s", op, operand)
			if err := d.requireSub(operand, CondType(), msg); err != nil {
				return nil, err
			}
		}
		return CondType(), nil

	case arithmeticOps[op]:
		return d.arithmeticReturnType(op, lhs, rhs)

	case op == "=":
		msg := fmt.Sprintf("Incompatible types in assignment: %s and %s", lhs, rhs)
		if err := d.requireSub(lhs, rhs, msg); err != nil {
			return nil, err
		}
		return lhs, nil

	case strings.HasSuffix(op, "=") && arithmeticOps[strings.TrimSuffix(op, "=")]:
		if _, err := d.arithmeticReturnType(strings.TrimSuffix(op, "="), lhs, rhs); err != nil {
			return nil, err
		}
		return lhs, nil
	}

	return nil, errors.Errorf("%s is not a binary operator", op)
}

// requireSub fails with msg when a does not substitute for b.
func (d *Definitions) requireSub(a, b *Type, msg string) error {
	ok, err := d.Sub(a, b)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(msg)
	}
	return nil
}

func (d *Definitions) unaryReturnType(op string, operand *Type) (*Type, error) {
	switch {
	case passThroughUnaryOps[op]:
		return operand, nil
	case op == "*":
		if !operand.IsPtrLike() {
			return nil, errors.Errorf("Invalid type argument of unary * (have %s)", operand)
		}
		return operand.Elem(), nil
	case op == "&":
		t := operand.Clone()
		t.IsPtr = true
		return t, nil
	case op == "sizeof":
		return New("size_t"), nil
	}
	if arithmeticOps[op] || conditionalOps[op] || logicalOps[op] || op == "=" {
		return nil, errors.Errorf("%s is a binary operator but only one operand is given", op)
	}
	return nil, errors.Errorf("%s is not a unary operator", op)
}

// arithmeticReturnType applies the usual arithmetic conversions, widened
// element-wise to vectors, and pointer arithmetic for + and -.
func (d *Definitions) arithmeticReturnType(op string, lhs, rhs *Type) (*Type, error) {
	if lhs.IsPtrLike() || rhs.IsPtrLike() {
		return d.pointerArithmetic(op, lhs, rhs)
	}

	lelem, lwidth := SplitVector(lhs.Name)
	relem, rwidth := SplitVector(rhs.Name)
	if lwidth != "" && rwidth != "" && lwidth != rwidth {
		return nil, errors.Errorf("Operation between %s and %s undefined: vector widths differ", lhs.Name, rhs.Name)
	}

	result, ok := LookupArithmetic(lelem, relem)
	if !ok {
		return nil, errors.Errorf("Operation between %s and %s undefined", lhs.Name, rhs.Name)
	}

	width := lwidth
	if width == "" {
		width = rwidth
	}
	return New(result + width), nil
}

func (d *Definitions) pointerArithmetic(op string, lhs, rhs *Type) (*Type, error) {
	if lhs.IsPtrLike() && rhs.IsPtrLike() {
		if op == "-" {
			return New("ptrdiff_t"), nil
		}
		return nil, errors.Errorf("Operation %s between pointers %s and %s undefined", op, lhs, rhs)
	}
	if op != "+" && op != "-" {
		return nil, errors.Errorf("Operation %s between %s and %s undefined", op, lhs, rhs)
	}
	if ok, err := d.Sub(lhs, rhs); err != nil || !ok {
		if err == nil {
			err = errors.Errorf("Operation between %s and %s undefined", lhs, rhs)
		}
		return nil, err
	}
	if rhs.IsPtrLike() {
		if op == "-" {
			return nil, errors.Errorf("Cannot subtract pointer %s from %s", rhs, lhs)
		}
		return rhs.Clone(), nil
	}
	return lhs.Clone(), nil
}
