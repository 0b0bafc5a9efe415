// Package reflect describes the kernels of a checked OpenCL C translation
// unit: their arguments, the address space and qualifiers of each, and
// the device memory layout of the structs they use.
package reflect

import (
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/scope"
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// ReflectResult contains all reflection information for a translation unit.
type ReflectResult struct {
	Kernels []KernelInfo            `json:"kernels"`
	Structs map[string]StructLayout `json:"structs"`
	Errors  []string                `json:"errors,omitempty"`
}

// KernelInfo describes one kernel function.
type KernelInfo struct {
	Name string    `json:"name"`
	Args []ArgInfo `json:"args"`
}

// ArgInfo describes a single kernel argument.
type ArgInfo struct {
	Index           int           `json:"index"`
	Name            string        `json:"name"`
	Type            string        `json:"type"`
	AddressSpace    string        `json:"addressSpace"`
	AccessQualifier string        `json:"accessQualifier"`
	TypeQualifiers  []string      `json:"typeQualifiers,omitempty"`
	Size            int           `json:"size"`             // bytes passed by the host
	Layout          *StructLayout `json:"layout,omitempty"` // for struct values and pointers to structs
}

// StructLayout describes the memory layout of a struct or union.
type StructLayout struct {
	Size      int         `json:"size"`
	Alignment int         `json:"alignment"`
	Fields    []FieldInfo `json:"fields"`
}

// FieldInfo describes a single struct field.
type FieldInfo struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Offset    int           `json:"offset"`
	Size      int           `json:"size"`
	Alignment int           `json:"alignment"`
	Layout    *StructLayout `json:"layout,omitempty"` // for nested structs
}

var (
	addressSpaces    = []string{"global", "local", "constant", "private"}
	accessQualifiers = []string{"read_only", "write_only", "read_write"}
)

// ReflectFile extracts kernel and struct information from file. The file
// must already have been checked against ctx, so every declaration it
// makes is bound there.
func ReflectFile(file *ast.FileAST, ctx *scope.Context) ReflectResult {
	result := ReflectResult{
		Kernels: []KernelInfo{},
		Structs: make(map[string]StructLayout),
	}
	lc := NewLayoutComputer()

	// First pass: file scope struct and union definitions
	for _, ext := range file.Ext {
		name := definedTag(ext)
		if name == "" {
			continue
		}
		t, err := ctx.TypenameType(name)
		if err != nil {
			continue
		}
		if layout := lc.StructLayout(t); layout != nil {
			result.Structs[name] = *layout
		}
	}

	// Second pass: kernels
	for _, ext := range file.Ext {
		fd, ok := ext.(*ast.FuncDef)
		if !ok || !isKernel(fd.Decl) {
			continue
		}
		t, err := ctx.Lookup(fd.Decl.Name)
		if err != nil || t.Kind != types.KindFunction {
			result.Errors = append(result.Errors, "kernel "+fd.Decl.Name+" is not bound")
			continue
		}
		result.Kernels = append(result.Kernels, extractKernel(t, lc))
	}

	return result
}

func isKernel(d *ast.Decl) bool {
	for _, f := range d.FuncSpec {
		if f == "kernel" {
			return true
		}
	}
	return false
}

// definedTag returns "struct S" or "union S" when ext defines that tag.
func definedTag(ext ast.Node) string {
	var n ast.Node
	switch d := ext.(type) {
	case *ast.Decl:
		n = d.Type
	case *ast.Typedef:
		n = d.Type
	default:
		return ""
	}
	for {
		switch t := n.(type) {
		case *ast.TypeDecl:
			n = t.Type
		case *ast.PtrDecl:
			n = t.Type
		case *ast.ArrayDecl:
			n = t.Type
		case *ast.Struct:
			if t.Name == "" || t.Decls == nil {
				return ""
			}
			return "struct " + t.Name
		case *ast.Union:
			if t.Name == "" || t.Decls == nil {
				return ""
			}
			return "union " + t.Name
		default:
			return ""
		}
	}
}

// extractKernel builds the argument list of a kernel function type.
func extractKernel(fn *types.Type, lc *LayoutComputer) KernelInfo {
	info := KernelInfo{Name: fn.Name, Args: []ArgInfo{}}
	for i, p := range fn.Params {
		if p.Kind == types.KindEllipsis {
			continue
		}
		arg := ArgInfo{
			Index:           i,
			Name:            p.DeclaredName,
			Type:            TypeString(p),
			AddressSpace:    "private",
			AccessQualifier: "none",
			Size:            lc.ComputeTypeLayout(p).Size,
		}
		if p.IsArray {
			// array parameters decay to pointers
			arg.Size = PointerSize
		}
		for _, q := range append(p.Quals(), p.PtrQuals...) {
			q = strings.TrimPrefix(q, "__")
			switch {
			case contains(addressSpaces, q):
				arg.AddressSpace = q
			case contains(accessQualifiers, q):
				arg.AccessQualifier = q
			default:
				arg.TypeQualifiers = append(arg.TypeQualifiers, q)
			}
		}
		arg.Layout = lc.StructLayout(p.Elem())
		info.Args = append(info.Args, arg)
	}
	return info
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
