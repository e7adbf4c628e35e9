package layout

import "fmt"

// retypeBlock 让 head 处位域组的所有成员使用存储类型 t, 位偏移重新编号, 位的位置不变
func (c *Class) retypeBlock(cu *CU, head int, t *Type) {
	for i, n := head, c.blockLen(head); i < head+n; i++ {
		m := c.Members[i]
		m.BitOffset = cu.BitNumbering.rebase(m.BitOffset, cu.MemberSize(m), t.Size)
		m.Type = t.ID
	}
}

// retypeFits 判断换成 t 之后组内每个位域是否仍在单元内
func (c *Class) retypeFits(cu *CU, head int, t *Type) bool {
	for i, n := head, c.blockLen(head); i < head+n; i++ {
		m := c.Members[i]
		bo := cu.BitNumbering.rebase(m.BitOffset, cu.MemberSize(m), t.Size)
		if !cu.BitNumbering.inUnit(bo, m.BitSize, t.Size) {
			return false
		}
	}
	return true
}

func (c *Class) blockBits(head int) int {
	bits := 0
	for i, n := head, c.blockLen(head); i < head+n; i++ {
		bits += c.Members[i].BitSize
	}
	return bits
}

func typeName(cu *CU, id TypeID) string {
	if t := cu.Type(id); t != nil {
		return t.Name
	}
	return "?"
}

// retype 检查并替换位域组的存储类型, 失败时记录诊断. kind 为成功时的事件.
func (r *Reorganizer) retype(c *Class, res *Result, head, size int, kind EventKind) bool {
	cu := r.cu
	hm, tm := c.Members[head], c.Members[head+c.blockLen(head)-1]
	t := cu.FindBaseTypeOfSize(size)
	if t == nil {
		r.diagnose(c, res, Event{Kind: EventMissingBaseType, Member: hm.Name, Tail: tm.Name, Size: size},
			"no base type of the required size")
		return false
	}
	if !c.retypeFits(cu, head, t) {
		r.diagnose(c, res, Event{Kind: EventBitsOutsideUnit, Member: hm.Name, Tail: tm.Name, Size: size, NewType: t.Name},
			fmt.Sprintf("bits do not fit in '%s'", t.Name))
		return false
	}
	old := typeName(cu, hm.Type)
	c.retypeBlock(cu, head, t)
	r.emit(Event{Kind: kind, Class: c.Name, Member: hm.Name, Tail: tm.Name, OldType: old, NewType: t.Name})
	return true
}

// fixupMemberTypes 修正 DWARF 存储类型比编译器实际分配的空间更宽的位域组.
// 有的编译器把后面的成员放进声明的单元里却不缩小类型, 例如 "int a:1, b:1"
// 之后偏移2处有一个 short.
func (r *Reorganizer) fixupMemberTypes(c *Class, res *Result) {
	cu := r.cu
	fixed := false
	for head := 0; head < len(c.Members); head += c.blockLen(head) {
		n := c.blockLen(head)
		if !c.Members[head].IsBitfield() || head+n == len(c.Members) {
			continue
		}
		realSize := c.Members[head+n].Offset - c.Members[head].Offset
		if realSize <= 0 || realSize >= c.blockSize(cu, head) {
			continue
		}
		if r.retype(c, res, head, realSize, EventTypesFixed) {
			res.Fixups++
			fixed = true
		}
	}
	if fixed {
		c.FindHoles(cu)
	}
}

// demoteBitfields 把有剩余位的位域组缩小为能容纳所有位的最小基础类型.
// 让出的字节成为空洞 (组在最后时成为填充). 返回是否有组被缩小.
func (r *Reorganizer) demoteBitfields(c *Class, res *Result) bool {
	cu := r.cu
	c.FindHoles(cu)
	demoted := false
	for head := 0; head < len(c.Members); head += c.blockLen(head) {
		if !c.Members[head].IsBitfield() {
			continue
		}
		n := c.blockLen(head)
		slack := c.Members[head+n-1].BitHole
		if slack == 0 && head+n == len(c.Members) {
			slack = c.BitPadding
		}
		if slack == 0 {
			continue
		}
		needed := (c.blockBits(head) + 7) / 8
		if needed >= c.blockSize(cu, head) {
			continue
		}
		if r.retype(c, res, head, needed, EventDemoted) {
			c.FindHoles(cu)
			res.Demotions++
			demoted = true
		}
	}
	return demoted
}
