package types

import (
	"testing"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/nalgeon/be"
)

type names map[string]bool

func (n names) IsTypename(name string) bool { return n[name] }

func ptr(name string) *Type {
	t := New(name)
	t.IsPtr = true
	return t
}

func array(name string, dim int) *Type {
	t := New(name)
	t.IsArray = true
	t.Dim = dim
	return t
}

func TestTransitiveSub(t *testing.T) {
	tests := []struct {
		given, expected string
		want            bool
	}{
		{"char", "uchar", true},
		{"short", "int", true},
		{"short", "uint", true}, // short -> int -> uint
		{"uchar", "size_t", true},
		{"size_t", "long", true}, // size_t -> int -> long
		{"int", "char", true},
		{"char", "int", true},
		{"float", "double", false},
		{"int", "float", false},
		{"bool", "int", false},
		{"int", "bool", false},
		{"unknown", "int", false},
		{"", "int", false},
	}
	for _, tt := range tests {
		t.Run(tt.given+"->"+tt.expected, func(t *testing.T) {
			be.Equal(t, TransitiveSub(tt.given, tt.expected), tt.want)
		})
	}
}

func TestTransitiveSubTerminatesOnCycles(t *testing.T) {
	// every integer type is reachable from int and int from each of them,
	// so an unreachable target forces a full walk of a cyclic graph
	for _, s := range []string{"char", "uchar", "short", "int", "uint", "long", "ulong", "size_t"} {
		be.Equal(t, TransitiveSub(s, "double"), false)
	}
}

func TestSub(t *testing.T) {
	d := NewDefinitions(nil)
	tests := []struct {
		name     string
		lhs, rhs *Type
		want     bool
	}{
		{"equal names", New("float4"), New("float4"), true},
		{"promotion", New("short"), New("int"), true},
		{"unrelated", New("float"), New("int"), false},
		{"both pointers", ptr("int"), ptr("float"), true},
		{"array and pointer", array("int", 3), ptr("int"), true},
		{"pointer and int", ptr("int"), New("int"), true},
		{"int and pointer", New("size_t"), ptr("char"), true},
		{"string to char array", New("string"), array("char", 0), true},
		{"char pointer to string", ptr("char"), New("string"), true},
		{"string to plain char", New("string"), New("char"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Sub(tt.lhs, tt.rhs)
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
		})
	}
}

func TestSubPointerMismatch(t *testing.T) {
	d := NewDefinitions(nil)
	_, err := d.Sub(ptr("float"), New("float"))
	be.Err(t, err, "Cannot operate on a ptr and a non-ptr")

	_, err = d.Sub(New("double"), array("int", 2))
	be.Err(t, err, "Cannot operate on a ptr and a non-ptr")
}

func TestReturnType(t *testing.T) {
	d := NewDefinitions(nil)
	tests := []struct {
		name     string
		op       string
		lhs, rhs *Type
		want     string
	}{
		{"arithmetic conversion", "+", New("uchar"), New("long"), "ulong"},
		{"float and double", "*", New("float"), New("double"), "double"},
		{"vector and vector", "+", New("float4"), New("float4"), "float4"},
		{"vector and scalar", "*", New("float4"), New("float"), "float4"},
		{"scalar and vector", "-", New("int"), New("int2"), "int2"},
		{"comparison", "<", New("int"), New("uint"), "bool"},
		{"logical", "&&", New("bool"), New("bool"), "bool"},
		{"assignment", "=", New("int"), New("size_t"), "int"},
		{"compound assignment", "+=", New("float"), New("int"), "float"},
		{"pointer offset", "+", ptr("int"), New("int"), "int*"},
		{"pointer difference", "-", ptr("int"), ptr("int"), "ptrdiff_t"},
		{"negation", "-", New("float2"), nil, "float2"},
		{"dereference", "*", ptr("float"), nil, "float"},
		{"address of", "&", New("int"), nil, "int*"},
		{"sizeof", "sizeof", New("float4"), nil, "size_t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ReturnType(tt.op, tt.lhs, tt.rhs)
			be.Err(t, err, nil)
			be.Equal(t, got.String(), tt.want)
		})
	}
}

func TestReturnTypeErrors(t *testing.T) {
	d := NewDefinitions(nil)
	tests := []struct {
		name     string
		op       string
		lhs, rhs *Type
		want     string
	}{
		{"undefined pair", "+", New("half"), New("long"), "Operation between half and long undefined"},
		{"bool arithmetic", "+", New("bool"), New("int"), "Operation between bool and int undefined"},
		{"vector widths", "+", New("float2"), New("float4"), "vector widths differ"},
		{"incompatible comparison", "==", New("float"), New("int"), "Incompatible operands of =="},
		{"logical needs bool", "||", New("int"), New("bool"), "must be bool"},
		{"incompatible assignment", "=", New("int"), New("float"), "Incompatible types in assignment"},
		{"deref non-pointer", "*", New("int"), nil, "unary *"},
		{"unknown operator", "<=>", New("int"), New("int"), "not a binary operator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.ReturnType(tt.op, tt.lhs, tt.rhs)
			be.Err(t, err, tt.want)
		})
	}
}

func TestExists(t *testing.T) {
	d := NewDefinitions(names{"my_t": true})

	t.Run("builtin", func(t *testing.T) {
		be.Err(t, d.Exists(New("float16")), nil)
	})
	t.Run("typedef name", func(t *testing.T) {
		be.Err(t, d.Exists(New("my_t")), nil)
	})
	t.Run("unknown name", func(t *testing.T) {
		be.Err(t, d.Exists(New("float5")), "Typename float5 unknown")
	})
	t.Run("address space qualifiers", func(t *testing.T) {
		typ := ptr("int")
		typ.AddQual("global")
		typ.AddQual("const")
		be.Err(t, d.Exists(typ), nil)
	})
	t.Run("unknown qualifier", func(t *testing.T) {
		typ := New("int")
		typ.AddQual("shared")
		be.Err(t, d.Exists(typ), "Qualifier shared unknown")
	})
	t.Run("unknown storage", func(t *testing.T) {
		typ := New("int")
		typ.AddStorage("register")
		be.Err(t, d.Exists(typ), "Storage specifier register unknown")
	})
	t.Run("unknown function specifier", func(t *testing.T) {
		fn := NewFunction("f", nil, nil)
		fn.AddFuncSpec("noreturn")
		be.Err(t, d.Exists(fn), "Function specifier noreturn unknown")
	})
	t.Run("struct members", func(t *testing.T) {
		members := linkedhashmap.New()
		members.Put("a", New("int"))
		members.Put("b", New("vec3"))
		be.Err(t, d.Exists(NewStruct("struct S", members)), "Typename vec3 unknown")
	})
	t.Run("enum with reserved value", func(t *testing.T) {
		be.Err(t, d.Exists(NewEnum("E", []string{"A", "float"})), "Reserved word float")
	})
	t.Run("higher order function", func(t *testing.T) {
		inner := NewFunction("cb", nil, nil)
		fn := NewFunction("apply", []*Type{inner}, nil)
		be.Err(t, d.Exists(fn), "HOFs not supported")
	})
	t.Run("ellipsis", func(t *testing.T) {
		be.Err(t, d.Exists(NewEllipsis()), nil)
	})
}

func TestReserved(t *testing.T) {
	for _, w := range []string{"int", "float4", "global", "kernel", "read_only"} {
		be.True(t, IsReserved(w))
	}
	for _, w := range []string{"x", "typedef", "struct"} {
		be.Equal(t, IsReserved(w), false)
	}
	be.Equal(t, IsValidName("!ret"), false)
	be.True(t, IsValidName("ret"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		words []string
		want  string
	}{
		{[]string{"int"}, "int"},
		{[]string{"unsigned"}, "uint"},
		{[]string{"signed"}, "int"},
		{[]string{"unsigned", "int"}, "uint"},
		{[]string{"unsigned", "char"}, "uchar"},
		{[]string{"short", "int"}, "short"},
		{[]string{"unsigned", "short", "int"}, "ushort"},
		{[]string{"long", "long"}, "long"},
		{[]string{"unsigned", "long", "long", "int"}, "ulong"},
		{[]string{"long", "double"}, "double"},
		{[]string{"int", "float"}, "int float"},
		{[]string{"signed", "unsigned"}, "signed unsigned"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			be.Equal(t, Normalize(tt.words), tt.want)
		})
	}
}

func TestSplitVector(t *testing.T) {
	elem, width := SplitVector("uchar16")
	be.Equal(t, elem, "uchar")
	be.Equal(t, width, "16")

	elem, width = SplitVector("size_t")
	be.Equal(t, elem, "size_t")
	be.Equal(t, width, "")

	elem, width = SplitVector("my2")
	be.Equal(t, elem, "my2")
	be.Equal(t, width, "")
}

func TestCloneIsIndependent(t *testing.T) {
	members := linkedhashmap.New()
	members.Put("x", New("int"))
	orig := NewStruct("struct P", members)
	orig.AddQual("const")

	c := orig.Clone()
	c.AddQual("global")
	m, _ := c.Member("x")
	m.IsPtr = true

	be.Equal(t, orig.Quals(), []string{"const"})
	om, _ := orig.Member("x")
	be.Equal(t, om.IsPtr, false)
}

func TestString(t *testing.T) {
	fn := NewFunction("k", []*Type{ptr("int"), NewEllipsis()}, nil)
	fn.AddFuncSpec("kernel")
	be.Equal(t, fn.String(), "kernel void k(int*, ...)")

	arr := array("float", 4)
	arr.AddQual("local")
	be.Equal(t, arr.String(), "local float[4]")
}

func TestIsReadOnly(t *testing.T) {
	constPointee := ptr("float")
	constPointee.AddQual("const")

	constPtr := ptr("float")
	constPtr.PtrQuals = []string{"const"}

	constScalar := New("int")
	constScalar.AddQual("const")

	tests := []struct {
		name string
		typ  *Type
		want bool
		elem bool
	}{
		{"const scalar", constScalar, true, true},
		{"pointer to const", constPointee, false, true},
		{"const pointer", constPtr, true, false},
		{"plain pointer", ptr("float"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, tt.typ.IsReadOnly(), tt.want)
			be.Equal(t, tt.typ.Elem().IsReadOnly(), tt.elem)
		})
	}
	be.Equal(t, constPtr.String(), "float* const")
}
