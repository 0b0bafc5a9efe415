package builtins

import (
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// numericScalars are the element types convert_ and as_ accept and produce.
var numericScalars = []string{
	"char", "uchar", "short", "ushort", "int", "uint", "long", "ulong",
	"half", "float", "double",
}

// registerConversions adds convert_T and as_T for every numeric scalar and
// vector T. Both take one argument of the same width; as_ reinterprets bits
// and so also requires the same element size.
func registerConversions(r *Registry) {
	for _, elem := range numericScalars {
		for _, width := range GentypeWidths {
			target := elem + width
			r.fns["convert_"+target] = &Fn{
				Name:    "convert_" + target,
				Kind:    KindOther,
				Matcher: matchConvert(target, width, false),
			}
			r.fns["as_"+target] = &Fn{
				Name:    "as_" + target,
				Kind:    KindOther,
				Matcher: matchConvert(target, width, true),
			}
		}
	}
}

var scalarSizes = map[string]int{
	"char": 1, "uchar": 1,
	"short": 2, "ushort": 2, "half": 2,
	"int": 4, "uint": 4, "float": 4,
	"long": 8, "ulong": 8, "double": 8,
}

func matchConvert(target, width string, sameSize bool) func([]*types.Type) (*types.Type, bool) {
	targetElem, _ := types.SplitVector(target)
	return func(args []*types.Type) (*types.Type, bool) {
		if len(args) != 1 || args[0].IsPtrLike() {
			return nil, false
		}
		elem, w := types.SplitVector(args[0].Name)
		if w != width {
			return nil, false
		}
		size, ok := scalarSizes[elem]
		if !ok {
			return nil, false
		}
		if sameSize && size != scalarSizes[targetElem] {
			return nil, false
		}
		return types.New(target), true
	}
}
