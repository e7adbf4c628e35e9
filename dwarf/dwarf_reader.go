package dwarfhelper

import (
	"debug/dwarf"
	"fmt"

	"dwarfreorg/layout"

	"fortio.org/safecast"
	"github.com/go-delve/delve/pkg/dwarf/godwarf"
)

// DW_OP_plus_uconst, DWARF2 用它表示成员位置
const opPlusUconst = 0x23

// cuReader 一个编译单元的读取状态
type cuReader struct {
	info *DwarfInfo
	cu   *layout.CU
	ids  map[godwarf.Type]layout.TypeID
}

// Load 遍历所有编译单元, 每个单元生成一个 layout.CU, 位偏移按 numbering 计数
func (_this *DwarfInfo) Load(numbering layout.BitNumbering) ([]*layout.CU, error) {
	reader := _this.data.Reader()
	var cus []*layout.CU
	var cur *cuReader
	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, &LoadError{Kind: ErrRead, Path: _this.path, Err: err}
		}
		if entry == nil {
			break
		}
		switch entry.Tag {
		case dwarf.TagCompileUnit, dwarf.TagPartialUnit:
			cur.finish()
			name, _ := entry.Val(dwarf.AttrName).(string)
			cu := layout.NewCU(name, reader.AddressSize())
			cu.BitNumbering = numbering
			cur = &cuReader{info: _this, cu: cu, ids: make(map[godwarf.Type]layout.TypeID)}
			cus = append(cus, cu)
		case dwarf.TagBaseType:
			// 所有基础类型都登记到类型表, 位域缩小时按大小查找
			if cur != nil {
				if _, err := cur.typeAt(entry.Offset); err != nil {
					return nil, err
				}
			}
		case dwarf.TagStructType, dwarf.TagClassType, dwarf.TagUnionType:
			if cur == nil {
				reader.SkipChildren()
				continue
			}
			if err := cur.readClass(entry, reader); err != nil {
				return nil, err
			}
		}
	}
	cur.finish()
	return cus, nil
}

func (r *cuReader) errorf(kind LoadErrorKind, off dwarf.Offset, err error) error {
	return &LoadError{Kind: kind, Path: r.info.path, Offset: off, Err: err}
}

func (r *cuReader) toInt(v int64, off dwarf.Offset) (int, error) {
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0, r.errorf(ErrRange, off, err)
	}
	return n, nil
}

// readClass 读取结构体/联合体及其成员, 嵌套定义的类型单独加入 CU
func (r *cuReader) readClass(entry *dwarf.Entry, reader *dwarf.Reader) error {
	if !entry.Children {
		return nil
	}
	if decl, _ := entry.Val(dwarf.AttrDeclaration).(bool); decl {
		reader.SkipChildren()
		return nil
	}
	c := &layout.Class{IsUnion: entry.Tag == dwarf.TagUnionType}
	c.Name, _ = entry.Val(dwarf.AttrName).(string)
	if size, ok := entry.Val(dwarf.AttrByteSize).(int64); ok {
		n, err := r.toInt(size, entry.Offset)
		if err != nil {
			return err
		}
		c.Size = n
	}

	for {
		kid, err := reader.Next()
		if err != nil {
			return r.errorf(ErrRead, entry.Offset, err)
		}
		if kid == nil || kid.Tag == 0 {
			break
		}
		switch kid.Tag {
		case dwarf.TagMember:
			m, ok, err := r.readMember(kid)
			if err != nil {
				return err
			}
			if ok {
				c.Members = append(c.Members, m)
			}
		case dwarf.TagInheritance:
			m, _, err := r.readMember(kid)
			if err != nil {
				return err
			}
			if t := r.cu.Type(m.Type); t != nil {
				m.Name = t.Name
			}
			c.Bases = append(c.Bases, m)
		case dwarf.TagStructType, dwarf.TagClassType, dwarf.TagUnionType:
			if err := r.readClass(kid, reader); err != nil {
				return err
			}
			continue
		}
		if kid.Children {
			reader.SkipChildren()
		}
	}

	if len(c.Members) == 0 && len(c.Bases) == 0 {
		return nil
	}
	r.cu.AddClass(c)
	return nil
}

// finish 在整个单元读完后整理位域组并计算空洞,
// 此时单元里的基础类型都已登记
func (r *cuReader) finish() {
	if r == nil {
		return
	}
	for _, c := range r.cu.Classes {
		r.rebaseGroups(c)
		c.FindHoles(r.cu)
	}
}

// readMember 返回 false 表示静态成员
func (r *cuReader) readMember(kid *dwarf.Entry) (*layout.Member, bool, error) {
	if kid.Val(dwarf.AttrExternal) != nil || kid.Val(dwarf.AttrDeclaration) != nil {
		return nil, false, nil
	}
	m := &layout.Member{}
	m.Name, _ = kid.Val(dwarf.AttrName).(string)

	typ, err := r.memberType(kid)
	if err != nil {
		return nil, false, err
	}
	m.Type = typ

	loc, err := dataMemberLoc(kid)
	if err != nil {
		return nil, false, r.errorf(ErrRead, kid.Offset, err)
	}
	offset, bitOffset := loc, int64(0)
	bitSize, _ := kid.Val(dwarf.AttrBitSize).(int64)
	if bitSize != 0 {
		unit := int64(r.cu.SizeOf(typ))
		if bo, ok := kid.Val(dwarf.AttrBitOffset).(int64); ok {
			bitOffset = bo
			if r.cu.BitNumbering == layout.LSBFirst {
				bitOffset = unit*8 - bo - bitSize
			}
		} else if dbo, ok := kid.Val(dwarf.AttrDataBitOffset).(int64); ok {
			offset, bitOffset = splitDataBitOffset(dbo, unit, bitSize, r.cu.BitNumbering)
		}
	}

	if m.Offset, err = r.toInt(offset, kid.Offset); err != nil {
		return nil, false, err
	}
	if m.BitOffset, err = r.toInt(bitOffset, kid.Offset); err != nil {
		return nil, false, err
	}
	if m.BitSize, err = r.toInt(bitSize, kid.Offset); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (r *cuReader) memberType(kid *dwarf.Entry) (layout.TypeID, error) {
	off, ok := kid.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		return layout.NoType, nil
	}
	return r.typeAt(off)
}

func (r *cuReader) typeAt(off dwarf.Offset) (layout.TypeID, error) {
	t, err := godwarf.ReadType(r.info.data, 0, off, r.info.typeCache)
	if err != nil {
		return layout.NoType, r.errorf(ErrType, off, err)
	}
	return r.convert(t)
}

// dataMemberLoc 成员的字节偏移, 联合体成员没有该属性时为0
func dataMemberLoc(e *dwarf.Entry) (int64, error) {
	switch v := e.Val(dwarf.AttrDataMemberLoc).(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case []byte:
		if len(v) == 0 || v[0] != opPlusUconst {
			return 0, fmt.Errorf("unsupported member location expression % x", v)
		}
		n, _ := uleb128(v[1:])
		if n > 1<<62 {
			return 0, fmt.Errorf("member location %d out of range", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected member location %T", v)
	}
}

func uleb128(b []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, c := range b {
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return v, len(b)
}

// splitDataBitOffset 把 DW_AT_data_bit_offset 拆成存储单元的字节偏移和单元内的位偏移
func splitDataBitOffset(dbo, unitBytes, bitSize int64, numbering layout.BitNumbering) (int64, int64) {
	if unitBytes <= 0 {
		unitBytes = 1
	}
	unitBits := unitBytes * 8
	start := dbo / unitBits * unitBits
	if dbo-start+bitSize > unitBits {
		// packed 结构体里跨越单元边界的位域
		start = dbo / 8 * 8
	}
	lsb := dbo - start
	if numbering == layout.LSBFirst {
		return start / 8, lsb
	}
	return start / 8, unitBits - lsb - bitSize
}

// rebaseGroups 让每个位域组从第一个实际存放位的字节开始.
// gcc 会把 "char e; int f:1;" 的 f 描述为从 e 的偏移开始的 int 单元,
// 这样的组与前面的成员共用偏移, 之后缩小单元时位会落到单元外.
func (r *cuReader) rebaseGroups(c *layout.Class) {
	ms := c.Members
	for i := 0; i < len(ms); {
		n := 1
		if ms[i].IsBitfield() {
			for i+n < len(ms) && ms[i+n].IsBitfield() && ms[i+n].Offset == ms[i].Offset {
				n++
			}
			r.rebaseGroup(ms[i : i+n])
		}
		i += n
	}
}

func (r *cuReader) rebaseGroup(group []*layout.Member) {
	cu, num := r.cu, r.cu.BitNumbering
	unit := 0
	lo, hi := -1, 0
	for _, m := range group {
		size := cu.MemberSize(m)
		unit = max(unit, size)
		low := num.LowBit(m.BitOffset, m.BitSize, size)
		if lo < 0 || low < lo {
			lo = low
		}
		hi = max(hi, low+m.BitSize)
	}
	skip := lo / 8
	if skip <= 0 {
		return
	}
	// 新单元取2的幂大小, 且不超出原来的单元
	need := (hi - skip*8 + 7) / 8
	size := 1
	for size < need {
		size *= 2
	}
	if skip+size > unit {
		return
	}
	t := cu.FindBaseTypeOfSize(size)
	if t == nil {
		return
	}
	for _, m := range group {
		low := num.LowBit(m.BitOffset, m.BitSize, cu.MemberSize(m)) - skip*8
		m.Offset += skip
		m.Type = t.ID
		m.BitOffset = num.FromLowBit(low, m.BitSize, size)
	}
}
