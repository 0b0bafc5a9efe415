package reflect

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/HugoDaniel/oclcheck/internal/checker"
	"github.com/HugoDaniel/oclcheck/internal/parser"
	"github.com/HugoDaniel/oclcheck/internal/scope"
)

func reflectSource(t *testing.T, source string) ReflectResult {
	t.Helper()
	file, err := parser.Parse(source)
	be.Err(t, err, nil)
	ctx := scope.New()
	be.Err(t, checker.Check(file, ctx, checker.Options{}), nil)
	return ReflectFile(file, ctx)
}

func TestReflectKernelArgs(t *testing.T) {
	result := reflectSource(t, `
struct Particle {
	float4 pos;
	float3 vel;
	float mass;
	int id;
};

kernel void step(global struct Particle* ps, const float dt, local float* scratch, uint n) {
	ps[0].mass = dt;
}
`)
	be.Equal(t, len(result.Errors), 0)
	be.Equal(t, len(result.Kernels), 1)

	k := result.Kernels[0]
	be.Equal(t, k.Name, "step")
	be.Equal(t, len(k.Args), 4)

	ps := k.Args[0]
	be.Equal(t, ps.Index, 0)
	be.Equal(t, ps.Name, "ps")
	be.Equal(t, ps.Type, "struct Particle*")
	be.Equal(t, ps.AddressSpace, "global")
	be.Equal(t, ps.AccessQualifier, "none")
	be.Equal(t, ps.Size, PointerSize)
	be.True(t, ps.Layout != nil)
	be.Equal(t, ps.Layout.Size, 48)

	dt := k.Args[1]
	be.Equal(t, dt.Type, "float")
	be.Equal(t, dt.AddressSpace, "private")
	be.Equal(t, dt.TypeQualifiers, []string{"const"})
	be.Equal(t, dt.Size, 4)
	be.True(t, dt.Layout == nil)

	scratch := k.Args[2]
	be.Equal(t, scratch.Type, "float*")
	be.Equal(t, scratch.AddressSpace, "local")
	be.Equal(t, scratch.Size, PointerSize)

	n := k.Args[3]
	be.Equal(t, n.Index, 3)
	be.Equal(t, n.Type, "uint")
	be.Equal(t, n.Size, 4)
}

func TestReflectStructLayout(t *testing.T) {
	result := reflectSource(t, `
struct Particle {
	float4 pos;
	float3 vel;
	float mass;
	int id;
};
`)
	layout, ok := result.Structs["struct Particle"]
	be.True(t, ok)
	be.Equal(t, layout.Alignment, 16)
	be.Equal(t, layout.Size, 48)

	// float3 takes the size and alignment of float4
	want := []FieldInfo{
		{Name: "pos", Type: "float4", Offset: 0, Size: 16, Alignment: 16},
		{Name: "vel", Type: "float3", Offset: 16, Size: 16, Alignment: 16},
		{Name: "mass", Type: "float", Offset: 32, Size: 4, Alignment: 4},
		{Name: "id", Type: "int", Offset: 36, Size: 4, Alignment: 4},
	}
	be.Equal(t, layout.Fields, want)
}

func TestReflectUnionAndNesting(t *testing.T) {
	result := reflectSource(t, `
union Bits {
	char c[3];
	int i;
	double d;
};

struct Outer {
	char tag;
	union Bits b;
	short s[3];
};
`)
	bits := result.Structs["union Bits"]
	be.Equal(t, bits.Size, 8)
	be.Equal(t, bits.Alignment, 8)
	for _, f := range bits.Fields {
		be.Equal(t, f.Offset, 0)
	}
	be.Equal(t, bits.Fields[0].Type, "char[3]")
	be.Equal(t, bits.Fields[0].Size, 3)

	outer := result.Structs["struct Outer"]
	be.Equal(t, outer.Size, 24)
	be.Equal(t, outer.Alignment, 8)
	be.Equal(t, outer.Fields[1].Offset, 8)
	be.True(t, outer.Fields[1].Layout != nil)
	be.Equal(t, outer.Fields[1].Layout.Size, 8)
	be.Equal(t, outer.Fields[2].Type, "short[3]")
	be.Equal(t, outer.Fields[2].Offset, 16)
	be.Equal(t, outer.Fields[2].Size, 6)
}

func TestReflectSelfReferentialStruct(t *testing.T) {
	result := reflectSource(t, `
struct Node {
	int value;
	struct Node* next;
};
`)
	node := result.Structs["struct Node"]
	be.Equal(t, node.Size, 16)
	be.Equal(t, node.Fields[1].Type, "struct Node*")
	be.Equal(t, node.Fields[1].Offset, 8)
	be.True(t, node.Fields[1].Layout == nil)
}

func TestReflectQualifiers(t *testing.T) {
	result := reflectSource(t, `
kernel void copy(global read_only const float* src, __global float* restrict dst) {
	dst[0] = src[0];
}
`)
	args := result.Kernels[0].Args
	be.Equal(t, args[0].AddressSpace, "global")
	be.Equal(t, args[0].AccessQualifier, "read_only")
	be.Equal(t, args[0].TypeQualifiers, []string{"const"})
	be.Equal(t, args[1].AddressSpace, "global")
	be.Equal(t, args[1].TypeQualifiers, []string{"restrict"})
}

func TestReflectOnlyKernels(t *testing.T) {
	result := reflectSource(t, `
float helper(float x) { return x * 2.0f; }
kernel void first(void) { }
__kernel void second(global int* out) { out[0] = 1; }
`)
	be.Equal(t, len(result.Kernels), 2)
	be.Equal(t, result.Kernels[0].Name, "first")
	be.Equal(t, len(result.Kernels[0].Args), 0)
	be.Equal(t, result.Kernels[1].Name, "second")
	be.Equal(t, result.Kernels[1].Args[0].Type, "int*")
}

func TestBuiltinLayout(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		align int
		ok    bool
	}{
		{"char", 1, 1, true},
		{"int", 4, 4, true},
		{"size_t", 8, 8, true},
		{"half2", 4, 4, true},
		{"char3", 4, 4, true},
		{"float3", 16, 16, true},
		{"double16", 128, 128, true},
		{"image2d_t", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := builtinLayout(tt.name)
			be.Equal(t, ok, tt.ok)
			be.Equal(t, l.Size, tt.size)
			be.Equal(t, l.Alignment, tt.align)
		})
	}
}

func TestReflectJSON(t *testing.T) {
	result := reflectSource(t, `kernel void k(constant int* table) { }`)
	data, err := json.Marshal(result)
	be.Err(t, err, nil)
	s := string(data)
	be.True(t, strings.Contains(s, `"addressSpace":"constant"`))
	be.True(t, strings.Contains(s, `"accessQualifier":"none"`))
	be.True(t, !strings.Contains(s, `"errors"`))
}
