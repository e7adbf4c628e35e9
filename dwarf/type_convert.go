package dwarfhelper

import (
	"dwarfreorg/layout"

	"github.com/go-delve/delve/pkg/dwarf/godwarf"
)

// convert 把 godwarf 类型登记到 CU 的类型表, 指针不展开所指类型
func (r *cuReader) convert(t godwarf.Type) (layout.TypeID, error) {
	if t == nil {
		return layout.NoType, nil
	}
	if id, ok := r.ids[t]; ok {
		return id, nil
	}
	c := t.Common()
	size, err := r.toInt(max(t.Size(), 0), c.Offset)
	if err != nil {
		return layout.NoType, err
	}
	typ := layout.Type{Name: t.String(), Size: size}

	switch tt := t.(type) {
	case *godwarf.IntType, *godwarf.CharType:
		typ.Kind, typ.Name, typ.Encoding = layout.KindBase, c.Name, layout.EncSigned
	case *godwarf.UintType, *godwarf.UcharType:
		typ.Kind, typ.Name, typ.Encoding = layout.KindBase, c.Name, layout.EncUnsigned
	case *godwarf.BoolType:
		typ.Kind, typ.Name, typ.Encoding = layout.KindBase, c.Name, layout.EncBool
	case *godwarf.FloatType, *godwarf.ComplexType:
		typ.Kind, typ.Name, typ.Encoding = layout.KindBase, c.Name, layout.EncFloat
	case *godwarf.PtrType:
		typ.Kind = layout.KindPointer
		if typ.Size == 0 {
			typ.Size = r.cu.AddrSize
		}
	case *godwarf.EnumType:
		typ.Kind, typ.Name = layout.KindEnum, tagName("enum", tt.EnumName)
	case *godwarf.ArrayType:
		typ.Kind = layout.KindArray
		if typ.Elem, err = r.convert(tt.Type); err != nil {
			return layout.NoType, err
		}
	case *godwarf.TypedefType:
		typ.Kind = layout.KindTypedef
		if typ.Elem, err = r.convert(tt.Type); err != nil {
			return layout.NoType, err
		}
	case *godwarf.QualType:
		typ.Kind = layout.KindQualifier
		if typ.Elem, err = r.convert(tt.Type); err != nil {
			return layout.NoType, err
		}
	case *godwarf.StructType:
		typ.Kind = layout.KindStruct
		if tt.Kind == "union" {
			typ.Kind = layout.KindUnion
		}
		typ.Name = tagName(tt.Kind, tt.StructName)
		// 结构体的对齐取成员的最大对齐
		typ.Align = 1
		for _, f := range tt.Field {
			id, err := r.convert(f.Type)
			if err != nil {
				return layout.NoType, err
			}
			if a := r.cu.AlignOf(id); a > typ.Align {
				typ.Align = a
			}
		}
	default:
		typ.Kind = layout.KindOther
	}

	id := r.cu.AddType(typ)
	r.ids[t] = id
	return id, nil
}

// tagName 带标签的类型名, 匿名类型写作 "struct {...}"
func tagName(kind, name string) string {
	if name == "" {
		return kind + " {...}"
	}
	return kind + " " + name
}
