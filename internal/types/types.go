// Package types provides the OpenCL C type model used by the checker.
//
// A Type is a tagged value: plain scalars and vectors, structs, typedef
// aliases, enums, functions and the "..." of a variadic parameter list all
// share one struct, distinguished by Kind. Every Type also carries the
// declaration attributes C attaches to it (qualifiers, storage class,
// function specifiers, bit-field width) and its array/pointer shape.
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Kind identifies the variant of a Type.
type Kind uint8

const (
	KindScalar   Kind = iota // scalar and vector types, by name
	KindStruct               // struct and union types with members
	KindTypeDef              // a typedef name aliasing another type
	KindEnum                 // an enum definition
	KindFunction             // a function signature
	KindEllipsis             // the "..." parameter
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindStruct:
		return "struct"
	case KindTypeDef:
		return "typedef"
	case KindEnum:
		return "enum"
	case KindFunction:
		return "function"
	case KindEllipsis:
		return "ellipsis"
	default:
		return "unknown"
	}
}

// Type represents an OpenCL C type.
type Type struct {
	Kind Kind
	Name string

	// DeclaredName is the identifier the type is bound to, once known.
	DeclaredName string

	quals    *linkedhashset.Set
	Storage  []string
	FuncSpec []string
	Bitsize  string

	IsArray bool
	Dim     int // element count, 0 when unknown
	IsPtr   bool

	// PtrQuals qualify the pointer itself, as the const in int* const p.
	// quals always describe the pointee.
	PtrQuals []string

	// KindStruct
	Members *linkedhashmap.Map // member name -> *Type, in declaration order

	// KindTypeDef
	Aliased *Type

	// KindEnum
	EnumName   string
	EnumValues []string

	// KindFunction
	Params []*Type
	Return *Type
}

// New returns a scalar or vector type with the given name.
func New(name string) *Type {
	return &Type{Kind: KindScalar, Name: name}
}

// NewStruct returns a struct type. members maps names to *Type in order.
func NewStruct(name string, members *linkedhashmap.Map) *Type {
	if members == nil {
		members = linkedhashmap.New()
	}
	return &Type{Kind: KindStruct, Name: name, Members: members}
}

// NewTypeDef returns a typedef named tag for aliased.
func NewTypeDef(tag string, aliased *Type) *Type {
	return &Type{Kind: KindTypeDef, Name: tag, Aliased: aliased}
}

// NewEnum returns an enum type. name may be empty.
func NewEnum(name string, values []string) *Type {
	return &Type{Kind: KindEnum, Name: "enum", EnumName: name, EnumValues: values}
}

// NewFunction returns a function type.
func NewFunction(name string, params []*Type, ret *Type) *Type {
	if ret == nil {
		ret = New("void")
	}
	return &Type{Kind: KindFunction, Name: name, Params: params, Return: ret}
}

// NewEllipsis returns the type of a "..." parameter.
func NewEllipsis() *Type {
	return &Type{Kind: KindEllipsis, Name: "..."}
}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// AddQual adds a qualifier. Qualifiers form a set.
func (t *Type) AddQual(q string) {
	if t.quals == nil {
		t.quals = linkedhashset.New()
	}
	t.quals.Add(q)
}

// HasQual reports whether q qualifies the type.
func (t *Type) HasQual(q string) bool {
	return t.quals != nil && t.quals.Contains(q)
}

// Quals returns the qualifiers in the order they were added.
func (t *Type) Quals() []string {
	if t.quals == nil {
		return nil
	}
	out := make([]string, 0, t.quals.Size())
	for _, q := range t.quals.Values() {
		out = append(out, q.(string))
	}
	return out
}

// IsReadOnly reports whether the object of type t cannot be assigned.
// For pointers only a const on the pointer itself counts.
func (t *Type) IsReadOnly() bool {
	if t.IsPtr {
		for _, q := range t.PtrQuals {
			if q == "const" {
				return true
			}
		}
		return false
	}
	return t.HasQual("const")
}

// AddStorage adds a storage class specifier.
func (t *Type) AddStorage(s string) {
	t.Storage = append(t.Storage, s)
}

// AddFuncSpec adds a function specifier.
func (t *Type) AddFuncSpec(f string) {
	t.FuncSpec = append(t.FuncSpec, f)
}

// IsPtrLike reports whether the type is a pointer or an array.
func (t *Type) IsPtrLike() bool {
	return t.IsPtr || t.IsArray
}

// Elem returns a copy of t with the pointer and array shape removed.
func (t *Type) Elem() *Type {
	e := t.Clone()
	e.IsPtr = false
	e.PtrQuals = nil
	e.IsArray = false
	e.Dim = 0
	return e
}

// Resolve follows typedef aliases.
func (t *Type) Resolve() *Type {
	for t != nil && t.Kind == KindTypeDef {
		t = t.Aliased
	}
	return t
}

// HasEllipsis reports whether a function type is variadic.
func (t *Type) HasEllipsis() bool {
	for _, p := range t.Params {
		if p.Kind == KindEllipsis {
			return true
		}
	}
	return false
}

// Member returns the type of a struct member.
func (t *Type) Member(name string) (*Type, bool) {
	if t.Members == nil {
		return nil, false
	}
	v, ok := t.Members.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Type), true
}

// MemberTypes returns the member types in declaration order.
func (t *Type) MemberTypes() []*Type {
	if t.Members == nil {
		return nil
	}
	values := t.Members.Values()
	out := make([]*Type, len(values))
	for i, v := range values {
		out[i] = v.(*Type)
	}
	return out
}

// Clone returns a deep copy of t, so the copy can be qualified or bound
// without affecting t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	if t.quals != nil {
		c.quals = linkedhashset.New(t.quals.Values()...)
	}
	c.PtrQuals = append([]string(nil), t.PtrQuals...)
	c.Storage = append([]string(nil), t.Storage...)
	c.FuncSpec = append([]string(nil), t.FuncSpec...)
	c.EnumValues = append([]string(nil), t.EnumValues...)
	if t.Members != nil {
		c.Members = linkedhashmap.New()
		t.Members.Each(func(k, v interface{}) {
			c.Members.Put(k, v.(*Type).Clone())
		})
	}
	c.Aliased = t.Aliased.Clone()
	if t.Params != nil {
		c.Params = make([]*Type, len(t.Params))
		for i, p := range t.Params {
			c.Params[i] = p.Clone()
		}
	}
	c.Return = t.Return.Clone()
	return &c
}

func (t *Type) String() string {
	var sb strings.Builder
	for _, words := range [][]string{t.Quals(), t.Storage, t.FuncSpec} {
		for _, w := range words {
			sb.WriteString(w)
			sb.WriteByte(' ')
		}
	}

	switch t.Kind {
	case KindFunction:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = p.String()
		}
		fmt.Fprintf(&sb, "%s %s(%s)", t.Return, t.Name, strings.Join(params, ", "))
	case KindEnum:
		sb.WriteString("enum")
		if t.EnumName != "" {
			sb.WriteString(" " + t.EnumName)
		}
	default:
		sb.WriteString(t.Name)
	}

	if t.IsArray {
		if t.Dim > 0 {
			sb.WriteString("[" + strconv.Itoa(t.Dim) + "]")
		} else {
			sb.WriteString("[]")
		}
	}
	if t.IsPtr {
		sb.WriteByte('*')
		for _, q := range t.PtrQuals {
			sb.WriteString(" " + q)
		}
	}
	return sb.String()
}

// ----------------------------------------------------------------------------
// Built-in Type Names
// ----------------------------------------------------------------------------

// ScalarTypes are the built-in scalar type names.
var ScalarTypes = []string{
	"uchar", "char",
	"ushort", "short",
	"uint", "int",
	"ulong", "long",
	"uintptr_t", "intptr_t",
	"size_t", "ptrdiff_t",
	"half", "float", "double",
	"void", "bool",
}

// VectorWidths are the supported vector widths.
var VectorWidths = []string{"2", "3", "4", "8", "16"}

// VectorTypes are the built-in vector type names, e.g. "float4".
var VectorTypes []string

var builtinTypes = map[string]bool{}

func init() {
	for _, s := range ScalarTypes {
		builtinTypes[s] = true
		for _, w := range VectorWidths {
			VectorTypes = append(VectorTypes, s+w)
			builtinTypes[s+w] = true
		}
	}
}

// IsBuiltin reports whether name is a built-in scalar or vector type.
func IsBuiltin(name string) bool {
	return builtinTypes[name]
}

// SplitVector splits a vector type name into its element type and width.
// Scalars come back with an empty width.
func SplitVector(name string) (elem, width string) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || !builtinTypes[name] {
		return name, ""
	}
	return name[:i], name[i:]
}

// StripDigits removes every decimal digit from name.
func StripDigits(name string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, name)
}

// Normalize maps the words of a C type specifier list to one type name:
// ["unsigned", "int"] is "uint", ["long", "long"] is "long". Unknown
// combinations are joined with spaces and fail the existence check later.
func Normalize(names []string) string {
	if len(names) == 1 {
		switch names[0] {
		case "signed":
			return "int"
		case "unsigned":
			return "uint"
		}
		return names[0]
	}

	var unsigned, signed, hasInt bool
	var base string
	longs := 0
	for _, n := range names {
		switch n {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "long":
			longs++
		case "int":
			if hasInt {
				return strings.Join(names, " ")
			}
			hasInt = true
		case "char", "short", "double":
			if base != "" {
				return strings.Join(names, " ")
			}
			base = n
		default:
			return strings.Join(names, " ")
		}
	}

	invalid := (unsigned && signed) ||
		(hasInt && (base == "char" || base == "double")) ||
		(longs > 0 && (base == "char" || base == "short")) ||
		longs > 2 ||
		(base == "double" && (unsigned || signed || longs > 1))
	if invalid {
		return strings.Join(names, " ")
	}

	switch {
	case base == "double":
		return "double"
	case longs > 0:
		base = "long"
	case base == "":
		base = "int"
	}

	if unsigned {
		return "u" + base
	}
	return base
}
