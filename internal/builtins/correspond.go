package builtins

import (
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/types"
)

// rule decides whether concrete type a, chosen for the first class of a
// pair, agrees with b chosen for the second.
type rule func(a, b string) bool

type classPair struct{ a, b string }

// correspondence lists the one-directional rules between distinct generic
// classes. Pairs not listed correspond unconditionally. See OpenCL C 6.11.
var correspondence = map[classPair]rule{
	{Gentype, Sgentype}: scalarOf,
	{Gentype, Ugentype}: unsignedOf,
	{Gentype, Igentype}: signedOf,

	{Sgentype, Gentype}:  never,
	{Sgentype, Ugentype}: unsignedOf,
	{Sgentype, Igentype}: signedOf,

	{Ugentype, Gentype}:  never,
	{Ugentype, Sgentype}: never,
	{Ugentype, Igentype}: dropSign,
}

func unsymmetricCorresponds(aClass, a, bClass, b string) bool {
	if aClass == bClass {
		// a concrete class already fixed the type of both
		return !IsGeneric(aClass) || a == b
	}
	aClass, bClass = family(aClass), family(bClass)
	if aClass == bClass {
		// gentype against a fixed-width gentypeN
		return types.StripDigits(a) == types.StripDigits(b)
	}
	if r, ok := correspondence[classPair{aClass, bClass}]; ok {
		return r(a, b)
	}
	return true
}

func in(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// scalarOf: b is the element type of a.
func scalarOf(a, b string) bool {
	if in(SGentypes, a) {
		return a == b
	}
	return types.StripDigits(a) == b
}

// unsignedOf: b is the unsigned counterpart of a.
func unsignedOf(a, b string) bool {
	if in(UGentypes, types.StripDigits(a)) {
		return a == b
	}
	return "u"+a == b
}

// signedOf: b is the signed counterpart of a.
func signedOf(a, b string) bool {
	if in(IGentypes, types.StripDigits(a)) {
		return a == b
	}
	return strings.TrimPrefix(a, "u") == b
}

func dropSign(a, b string) bool {
	return strings.TrimPrefix(a, "u") == b
}

func never(a, b string) bool { return false }
