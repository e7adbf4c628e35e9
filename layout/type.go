package layout

import (
	"fmt"
	"strings"

	"dwarfreorg/utils"
)

// TypeID 指向 CU 类型表的句柄, 零值为 NoType
type TypeID int

const NoType TypeID = 0

// Kind 类型表条目的种类
type Kind uint8

const (
	KindBase Kind = iota + 1
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindEnum
	KindTypedef
	KindQualifier
	KindOther
)

// Encoding 基础类型的编码
type Encoding uint8

const (
	EncUnknown Encoding = iota
	EncSigned
	EncUnsigned
	EncFloat
	EncBool
)

// Type 编译单元类型表中的一项
type Type struct {
	ID       TypeID
	Kind     Kind
	Name     string
	Size     int
	Align    int // 0 表示按 Size 自然对齐
	Encoding Encoding
	Elem     TypeID // typedef, 限定符和数组的目标类型
}

func (t *Type) isInteger() bool {
	return t.Kind == KindBase && (t.Encoding == EncSigned || t.Encoding == EncUnsigned)
}

// BitNumbering 位域 BitOffset 在存储单元内的计数方式
type BitNumbering uint8

const (
	// MSBFirst 从单元最高位数到位域最高位, 与小端目标上的 DW_AT_bit_offset 一致.
	// 先声明的成员在低位, 编号最大.
	MSBFirst BitNumbering = iota
	// LSBFirst 从单元最低位数到位域最低位
	LSBFirst
)

func (b BitNumbering) String() string {
	if b == LSBFirst {
		return "lsb"
	}
	return "msb"
}

// ParseBitNumbering 接受 "msb" 或 "lsb"
func ParseBitNumbering(s string) (BitNumbering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "msb":
		return MSBFirst, nil
	case "lsb":
		return LSBFirst, nil
	}
	return MSBFirst, fmt.Errorf("unknown bit numbering %q", s)
}

// LowBit 返回位域最低位在 unitBytes 字节单元中的位置, 从单元最低位数起
func (b BitNumbering) LowBit(bitOffset, bitSize, unitBytes int) int {
	if b == LSBFirst {
		return bitOffset
	}
	return unitBytes*8 - bitOffset - bitSize
}

// FromLowBit 是 LowBit 的逆运算
func (b BitNumbering) FromLowBit(lowBit, bitSize, unitBytes int) int {
	if b == LSBFirst {
		return lowBit
	}
	return unitBytes*8 - lowBit - bitSize
}

// rebase 存储单元从 oldBytes 变为 newBytes 时重新编号, 位的物理位置不变
func (b BitNumbering) rebase(bitOffset, oldBytes, newBytes int) int {
	if b == LSBFirst {
		return bitOffset
	}
	return bitOffset - (oldBytes-newBytes)*8
}

// next 返回紧跟在 tail 之后放入同一单元的 bitSize 位位域的位偏移
func (b BitNumbering) next(tail *Member, bitSize int) int {
	if b == LSBFirst {
		return tail.BitOffset + tail.BitSize
	}
	return tail.BitOffset - bitSize
}

// inUnit 判断位域是否完全落在 unitBytes 字节的单元内
func (b BitNumbering) inUnit(bitOffset, bitSize, unitBytes int) bool {
	low := b.LowBit(bitOffset, bitSize, unitBytes)
	return low >= 0 && low+bitSize <= unitBytes*8
}

// CU 一个编译单元: 类型表, 用于对齐计算的地址大小, 以及其中定义的结构体
type CU struct {
	Name         string
	AddrSize     int
	BitNumbering BitNumbering
	Classes      []*Class

	types      []*Type
	baseByName map[string]TypeID
}

func NewCU(name string, addrSize int) *CU {
	if addrSize <= 0 {
		addrSize = 8
	}
	return &CU{
		Name:       name,
		AddrSize:   addrSize,
		baseByName: make(map[string]TypeID),
	}
}

// AddType 把 t 加入类型表并返回句柄
func (cu *CU) AddType(t Type) TypeID {
	t.ID = TypeID(len(cu.types) + 1)
	cu.types = append(cu.types, &t)
	if t.Kind == KindBase {
		if _, ok := cu.baseByName[t.Name]; !ok {
			cu.baseByName[t.Name] = t.ID
		}
	}
	return t.ID
}

// Type 返回 id 对应的条目, 不存在时为 nil
func (cu *CU) Type(id TypeID) *Type {
	if id <= NoType || int(id) > len(cu.types) {
		return nil
	}
	return cu.types[id-1]
}

// Resolve 沿 typedef 和限定符找到定义类型
func (cu *CU) Resolve(id TypeID) *Type {
	t := cu.Type(id)
	for depth := 0; t != nil && depth < 64; depth++ {
		if t.Kind != KindTypedef && t.Kind != KindQualifier {
			return t
		}
		t = cu.Type(t.Elem)
	}
	return t
}

// SizeOf 返回字节大小, 未知时为0
func (cu *CU) SizeOf(id TypeID) int {
	t := cu.Type(id)
	if t == nil {
		return 0
	}
	if t.Size == 0 && (t.Kind == KindTypedef || t.Kind == KindQualifier) {
		if r := cu.Resolve(id); r != nil {
			return r.Size
		}
	}
	return t.Size
}

// AlignOf 返回对齐要求
func (cu *CU) AlignOf(id TypeID) int {
	t := cu.Type(id)
	if t == nil {
		return 1
	}
	if t.Align > 0 {
		return t.Align
	}
	switch t.Kind {
	case KindTypedef, KindQualifier, KindArray:
		if t.Elem != NoType {
			return cu.AlignOf(t.Elem)
		}
	case KindPointer:
		return cu.AddrSize
	}
	return naturalAlign(cu.SizeOf(id), cu.AddrSize)
}

// MemberSize 成员占用的字节数, 位域为其存储单元大小
func (cu *CU) MemberSize(m *Member) int {
	return cu.SizeOf(m.Type)
}

// FindBaseTypeOfSize 返回恰好 size 字节的整数基础类型, 优先标准的无符号类型名
func (cu *CU) FindBaseTypeOfSize(size int) *Type {
	if name := utils.UnsignedTypeName(size, cu.AddrSize); name != "" {
		if id, ok := cu.baseByName[name]; ok {
			return cu.Type(id)
		}
	}
	var signed *Type
	for _, t := range cu.types {
		if !t.isInteger() || t.Size != size {
			continue
		}
		if t.Encoding == EncUnsigned {
			return t
		}
		if signed == nil {
			signed = t
		}
	}
	return signed
}

func (cu *CU) AddClass(c *Class) {
	cu.Classes = append(cu.Classes, c)
}

// naturalAlign 能整除 size 的最大2的幂, 不超过 limit
func naturalAlign(size, limit int) int {
	if size <= 0 {
		return 1
	}
	a := 1
	for a*2 <= limit && size%(a*2) == 0 {
		a *= 2
	}
	return a
}

// alignUp 返回不小于 x 且为 a 的倍数的最小值
func alignUp(x, a int) int {
	if a <= 1 {
		return x
	}
	y := x + a - 1
	return y - y%a
}
