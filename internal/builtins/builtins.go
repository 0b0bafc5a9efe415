// Package builtins defines the OpenCL C built-in functions and their
// overloaded signatures.
//
// Signatures are written with the generic type classes of OpenCL C
// (gentype, sgentype, ugentype, igentype). A call matches a
// signature when every argument belongs to its parameter's class and every
// pair of generic parameters agrees on the concrete types chosen for them.
package builtins

import (
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/types"
)

// Kind identifies categories of builtin functions.
type Kind uint8

const (
	KindWorkItem        Kind = iota // get_global_id and friends
	KindMath                        // sin, pow, fma...
	KindInteger                     // abs, clz, mad24...
	KindCommon                      // clamp, mix, step...
	KindGeometric                   // dot, cross, length...
	KindRelational                  // isnan, select...
	KindSynchronization             // barrier, mem_fence
	KindAtomic                      // atomic_add...
	KindVectorData                  // vload/vstore
	KindOther
)

var kindNames = map[string]Kind{
	"workitem":        KindWorkItem,
	"math":            KindMath,
	"integer":         KindInteger,
	"common":          KindCommon,
	"geometric":       KindGeometric,
	"relational":      KindRelational,
	"synchronization": KindSynchronization,
	"atomic":          KindAtomic,
	"vector_data":     KindVectorData,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "other"
}

func kindOf(section string) Kind {
	if k, ok := kindNames[section]; ok {
		return k
	}
	return KindOther
}

// ----------------------------------------------------------------------------
// Generic Type Classes
// ----------------------------------------------------------------------------

// Class names used in signatures.
const (
	Gentype  = "gentype"
	Sgentype = "sgentype"
	Ugentype = "ugentype"
	Igentype = "igentype"
)

// Type families behind the generic classes.
var (
	SGentypes = []string{"int", "uint", "char", "uchar", "long", "ulong", "short", "ushort"}
	UGentypes = []string{"uint", "uchar", "ulong", "ushort"}
	IGentypes = []string{"int", "char", "long", "short"}
	FGentypes = []string{"half", "float", "double"}

	// Widths a generic class ranges over; "" is the scalar.
	GentypeWidths = []string{"", "2", "3", "4", "8", "16"}
)

// IsGeneric reports whether class is a generic class rather than a
// concrete type name.
func IsGeneric(class string) bool {
	switch class {
	case Gentype, Sgentype, Ugentype, Igentype:
		return true
	}
	_, ok := gentypeWidth(class)
	return ok
}

// gentypeWidth recognizes the fixed-width classes gentype2 ... gentype16.
func gentypeWidth(class string) (string, bool) {
	if !strings.HasPrefix(class, Gentype) {
		return "", false
	}
	w := strings.TrimPrefix(class, Gentype)
	for _, width := range GentypeWidths[1:] {
		if w == width {
			return w, true
		}
	}
	return "", false
}

// family returns the class whose correspondence rules class follows.
// Fixed-width classes behave like gentype.
func family(class string) string {
	if _, ok := gentypeWidth(class); ok {
		return Gentype
	}
	return class
}

func withWidths(bases []string, widths []string) []string {
	var out []string
	for _, b := range bases {
		for _, w := range widths {
			out = append(out, b+w)
		}
	}
	return out
}

// Members returns every concrete type name class admits.
func Members(class string) []string {
	switch class {
	case Gentype:
		return withWidths(append(append([]string{}, SGentypes...), FGentypes...), GentypeWidths)
	case Sgentype:
		return append([]string{}, SGentypes...)
	case Ugentype:
		return withWidths(UGentypes, GentypeWidths)
	case Igentype:
		return withWidths(IGentypes, GentypeWidths)
	}
	if w, ok := gentypeWidth(class); ok {
		return withWidths(append(append([]string{}, SGentypes...), FGentypes...), []string{w})
	}
	return append([]string{class}, types.SubstitutesFor(class)...)
}

// Coerce derives a concrete return type for the generic class target from
// the concrete name of the argument that seeded it.
func Coerce(target, arg string) string {
	if w, ok := gentypeWidth(target); ok {
		return types.StripDigits(arg) + w
	}
	switch target {
	case Gentype:
		return arg
	case Sgentype:
		return types.StripDigits(arg)
	case Ugentype:
		if !strings.HasPrefix(arg, "u") {
			arg = "u" + arg
		}
		return types.StripDigits(arg)
	case Igentype:
		return types.StripDigits(strings.TrimPrefix(arg, "u"))
	}
	return target
}

// ----------------------------------------------------------------------------
// Signatures
// ----------------------------------------------------------------------------

// ArgType is one parameter (or return) descriptor of a signature.
type ArgType struct {
	Class string
	IsPtr bool
	Quals []string

	members map[string]bool
}

// NewArgType parses a descriptor such as "gentype", "uint" or
// "global float*".
func NewArgType(desc string) *ArgType {
	a := &ArgType{}
	desc = strings.TrimSpace(desc)
	if strings.HasSuffix(desc, "*") {
		a.IsPtr = true
		desc = strings.TrimSpace(strings.TrimSuffix(desc, "*"))
	}
	words := strings.Fields(desc)
	if len(words) > 0 {
		a.Class = words[len(words)-1]
		a.Quals = words[:len(words)-1]
	}
	a.members = make(map[string]bool)
	if a.IsPtr && !IsGeneric(a.Class) {
		// pointees never convert
		a.members[a.Class] = true
		return a
	}
	for _, m := range Members(a.Class) {
		a.members[m] = true
	}
	return a
}

// Match reports whether a value of type t may be passed for a.
func (a *ArgType) Match(t *types.Type) bool {
	if t.IsPtrLike() != a.IsPtr {
		return false
	}
	return a.members[t.Name]
}

// Corresponds reports whether a, chosen as concrete type at, agrees with
// b chosen as bt. The rule is tried both ways round since the rules for a
// wider class against a narrower one differ from the reverse.
func (a *ArgType) Corresponds(at string, b *ArgType, bt string) bool {
	return unsymmetricCorresponds(a.Class, at, b.Class, bt) ||
		unsymmetricCorresponds(b.Class, bt, a.Class, at)
}

func (a *ArgType) String() string {
	s := strings.Join(append(append([]string{}, a.Quals...), a.Class), " ")
	if a.IsPtr {
		s += "*"
	}
	return s
}

// ArgList is one signature.
type ArgList struct {
	Params []*ArgType
	Return *ArgType
}

// Check reports whether candidates match the signature.
func (l *ArgList) Check(candidates []*types.Type) bool {
	if len(l.Params) != len(candidates) {
		return false
	}
	for i, p := range l.Params {
		if !p.Match(candidates[i]) {
			return false
		}
	}
	for i, p := range l.Params {
		for j, q := range l.Params {
			if !p.Corresponds(candidates[i].Name, q, candidates[j].Name) {
				return false
			}
		}
	}
	return true
}

func (l *ArgList) String() string {
	params := make([]string, len(l.Params))
	for i, p := range l.Params {
		params[i] = p.String()
	}
	return "(" + strings.Join(params, ", ") + ") -> " + l.Return.String()
}

// Fn is a builtin function with all of its signatures.
type Fn struct {
	Name       string
	Kind       Kind
	Signatures []*ArgList

	// Matcher replaces signature matching for families too regular to
	// list, such as the convert_ functions.
	Matcher func(args []*types.Type) (*types.Type, bool)
}

// Check reports whether any signature accepts candidates.
func (f *Fn) Check(candidates []*types.Type) bool {
	if f.Matcher != nil {
		_, ok := f.Matcher(candidates)
		return ok
	}
	for _, sig := range f.Signatures {
		if sig.Check(candidates) {
			return true
		}
	}
	return false
}

// ReturnType resolves the call's type from the first matching signature.
// A generic return class is coerced from the first argument declared with
// a generic class; without one the call has no type.
func (f *Fn) ReturnType(candidates []*types.Type) (*types.Type, bool) {
	if f.Matcher != nil {
		return f.Matcher(candidates)
	}
	for _, sig := range f.Signatures {
		if !sig.Check(candidates) {
			continue
		}
		ret := sig.Return
		if !IsGeneric(ret.Class) {
			t := types.New(ret.Class)
			t.IsPtr = ret.IsPtr
			return t, true
		}
		for i, p := range sig.Params {
			if IsGeneric(p.Class) {
				return types.New(Coerce(ret.Class, candidates[i].Name)), true
			}
		}
		return nil, false
	}
	return nil, false
}

func (f *Fn) String() string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	for _, sig := range f.Signatures {
		sb.WriteString("<" + sig.String() + ">")
	}
	return sb.String()
}
