package reflect

import (
	"strconv"

	"github.com/HugoDaniel/oclcheck/internal/types"
)

// TypeLayout holds size and alignment information for an OpenCL C type
// as seen by the device.
type TypeLayout struct {
	Size      int
	Alignment int
	Stride    int // For arrays only (0 otherwise)
}

// PointerSize is the size of a device pointer. Devices are assumed to use
// 64-bit addresses.
const PointerSize = 8

// OpenCL C scalar layouts. Every built-in scalar is aligned to its size.
var scalarLayouts = map[string]TypeLayout{
	"bool":   {Size: 1, Alignment: 1},
	"char":   {Size: 1, Alignment: 1},
	"uchar":  {Size: 1, Alignment: 1},
	"short":  {Size: 2, Alignment: 2},
	"ushort": {Size: 2, Alignment: 2},
	"int":    {Size: 4, Alignment: 4},
	"uint":   {Size: 4, Alignment: 4},
	"long":   {Size: 8, Alignment: 8},
	"ulong":  {Size: 8, Alignment: 8},
	"half":   {Size: 2, Alignment: 2},
	"float":  {Size: 4, Alignment: 4},
	"double": {Size: 8, Alignment: 8},

	"size_t":    {Size: PointerSize, Alignment: PointerSize},
	"ptrdiff_t": {Size: PointerSize, Alignment: PointerSize},
	"intptr_t":  {Size: PointerSize, Alignment: PointerSize},
	"uintptr_t": {Size: PointerSize, Alignment: PointerSize},
}

// builtinLayout returns the layout of a scalar or vector type name.
// For vecN of T: align = size = N*sizeof(T), where a 3-component
// vector takes the layout of the 4-component one.
func builtinLayout(name string) (TypeLayout, bool) {
	if l, ok := scalarLayouts[name]; ok {
		return l, true
	}
	elem, width := types.SplitVector(name)
	if width == "" {
		return TypeLayout{}, false
	}
	e, ok := scalarLayouts[elem]
	if !ok {
		return TypeLayout{}, false
	}
	n, _ := strconv.Atoi(width)
	if n == 3 {
		n = 4
	}
	return TypeLayout{Size: e.Size * n, Alignment: e.Size * n}, true
}

// roundUp rounds x up to the nearest multiple of align.
func roundUp(x, align int) int {
	if align == 0 {
		return x
	}
	return ((x + align - 1) / align) * align
}
