package reflect

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/types"
)

// LayoutComputer computes device memory layouts for checked types.
type LayoutComputer struct {
	structCache map[string]*StructLayout
}

// NewLayoutComputer creates an empty layout computer.
func NewLayoutComputer() *LayoutComputer {
	return &LayoutComputer{
		structCache: make(map[string]*StructLayout),
	}
}

// ComputeTypeLayout computes the layout of any type. Types without a
// device layout, such as void or images, come back zero.
func (lc *LayoutComputer) ComputeTypeLayout(t *types.Type) TypeLayout {
	if t == nil {
		return TypeLayout{}
	}
	t = t.Resolve()

	if t.IsPtr {
		return TypeLayout{Size: PointerSize, Alignment: PointerSize}
	}
	if t.IsArray {
		return lc.computeArrayLayout(t)
	}

	switch t.Kind {
	case types.KindStruct:
		if layout := lc.StructLayout(t); layout != nil {
			return TypeLayout{Size: layout.Size, Alignment: layout.Alignment}
		}
		return TypeLayout{}
	case types.KindEnum:
		l, _ := builtinLayout("int")
		return l
	}

	l, _ := builtinLayout(t.Name)
	return l
}

// computeArrayLayout computes the layout of an array type. Arrays of
// unknown length have no size.
func (lc *LayoutComputer) computeArrayLayout(t *types.Type) TypeLayout {
	elem := lc.ComputeTypeLayout(t.Elem())
	if elem.Size == 0 || elem.Alignment == 0 {
		return TypeLayout{}
	}

	stride := roundUp(elem.Size, elem.Alignment)
	return TypeLayout{
		Size:      t.Dim * stride,
		Alignment: elem.Alignment,
		Stride:    stride,
	}
}

// StructLayout returns the layout of a struct or union type, or nil when
// t is neither.
func (lc *LayoutComputer) StructLayout(t *types.Type) *StructLayout {
	t = t.Resolve()
	if t == nil || t.Kind != types.KindStruct {
		return nil
	}

	// Anonymous structs share their keyword as name and are not cached.
	named := strings.Contains(t.Name, " ")
	if named {
		if cached, ok := lc.structCache[t.Name]; ok {
			return cached
		}
	}

	var keys []interface{}
	if t.Members != nil {
		keys = t.Members.Keys()
	}
	layout := &StructLayout{Fields: make([]FieldInfo, 0, len(keys))}
	if named {
		lc.structCache[t.Name] = layout
	}
	union := strings.HasPrefix(t.Name, "union")

	offset, end, maxAlign := 0, 0, 1
	for _, key := range keys {
		member, _ := t.Member(key.(string))
		ml := lc.ComputeTypeLayout(member)
		if ml.Alignment == 0 {
			ml.Alignment = 1
		}

		if !union {
			offset = roundUp(offset, ml.Alignment)
		}
		field := FieldInfo{
			Name:      key.(string),
			Type:      TypeString(member),
			Offset:    offset,
			Size:      ml.Size,
			Alignment: ml.Alignment,
		}
		if !member.IsPtr {
			field.Layout = lc.StructLayout(member.Elem())
		}
		layout.Fields = append(layout.Fields, field)

		if !union {
			offset += ml.Size
		}
		if union && ml.Size > end {
			end = ml.Size
		}
		if ml.Alignment > maxAlign {
			maxAlign = ml.Alignment
		}
	}
	if !union {
		end = offset
	}

	layout.Alignment = maxAlign
	layout.Size = roundUp(end, maxAlign)
	return layout
}

// TypeString renders a type without its qualifiers or specifiers, e.g.
// "float4*" or "struct S[4]".
func TypeString(t *types.Type) string {
	if t == nil {
		return ""
	}
	r := t.Resolve()
	name := r.Name
	if r.Kind == types.KindEnum {
		name = strings.TrimSpace("enum " + r.EnumName)
	}

	var sb strings.Builder
	sb.WriteString(name)
	if t.IsArray {
		sb.WriteByte('[')
		if t.Dim > 0 {
			sb.WriteString(strconv.Itoa(t.Dim))
		}
		sb.WriteByte(']')
	}
	if t.IsPtr {
		sb.WriteByte('*')
	}
	return sb.String()
}
