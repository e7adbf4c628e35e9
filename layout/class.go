package layout

// Member 结构体的数据成员或继承项
type Member struct {
	Name      string
	Type      TypeID
	Offset    int
	BitOffset int
	BitSize   int // 非位域为0

	// Hole 本成员结尾到下一个成员之间未使用的字节数.
	// BitHole 存储单元中剩余的位数, 只记在位域组的最后一个成员上.
	// 两者都由 FindHoles 重新计算.
	Hole    int
	BitHole int
}

func (m *Member) IsBitfield() bool {
	return m.BitSize != 0
}

// Class 结构体或联合体, Members 按布局顺序排列
type Class struct {
	Name    string
	IsUnion bool
	Size    int

	// 继承项, 占据成员之前的空间, 从不移动
	Bases   []*Member
	Members []*Member

	Padding    int
	BitPadding int
}

// Kind 返回 "struct" 或 "union"
func (c *Class) Kind() string {
	if c.IsUnion {
		return "union"
	}
	return "struct"
}

// NrHoles 后面有字节空洞的成员数
func (c *Class) NrHoles() int {
	n := 0
	for _, m := range c.Members {
		if m.Hole != 0 {
			n++
		}
	}
	return n
}

// NrBitHoles 有未用位的位域组数
func (c *Class) NrBitHoles() int {
	n := 0
	for _, m := range c.Members {
		if m.BitHole != 0 {
			n++
		}
	}
	return n
}

// SizeHoles 所有字节空洞之和
func (c *Class) SizeHoles() int {
	n := 0
	for _, m := range c.Members {
		n += m.Hole
	}
	return n
}

// SizeBitHoles 所有位空洞之和
func (c *Class) SizeBitHoles() int {
	n := 0
	for _, m := range c.Members {
		n += m.BitHole
	}
	return n
}

// Waste 布局中未使用的字节: 空洞加尾部填充
func (c *Class) Waste() int {
	return c.SizeHoles() + c.Padding
}

// Member 按名字查找数据成员
func (c *Class) Member(name string) *Member {
	for _, m := range c.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// RemoveMember 删除成员但不修改其他偏移, 之后调用 FixupAlignment 收紧布局
func (c *Class) RemoveMember(name string) bool {
	for i, m := range c.Members {
		if m.Name != name {
			continue
		}
		c.Members = append(c.Members[:i], c.Members[i+1:]...)
		return true
	}
	return false
}

// blockLen 从 head 开始的块包含的成员数: 位域为整个位域组, 否则为1
func (c *Class) blockLen(head int) int {
	m := c.Members[head]
	if !m.IsBitfield() {
		return 1
	}
	n := 1
	for head+n < len(c.Members) {
		next := c.Members[head+n]
		if !next.IsBitfield() || next.Offset != m.Offset {
			break
		}
		n++
	}
	return n
}

// blockHead 包含 i 的块的第一个成员下标
func (c *Class) blockHead(i int) int {
	for i > 0 {
		prev, m := c.Members[i-1], c.Members[i]
		if !m.IsBitfield() || !prev.IsBitfield() || prev.Offset != m.Offset {
			break
		}
		i--
	}
	return i
}

// blockSize 块的存储大小
func (c *Class) blockSize(cu *CU, head int) int {
	size := 0
	for i, n := head, c.blockLen(head); i < head+n; i++ {
		if s := cu.MemberSize(c.Members[i]); s > size {
			size = s
		}
	}
	return size
}

// blockAlign 块的对齐单位, 不超过地址大小
func (c *Class) blockAlign(cu *CU, head int) int {
	a := 1
	for i, n := head, c.blockLen(head); i < head+n; i++ {
		if x := cu.AlignOf(c.Members[i].Type); x > a {
			a = x
		}
	}
	if a > cu.AddrSize {
		a = cu.AddrSize
	}
	return a
}

// endOf 包含 i 的块之后的第一个字节. 编译器与下一个成员共用的位域单元在该成员开始处结束.
func (c *Class) endOf(cu *CU, i int) int {
	head := c.blockHead(i)
	tail := head + c.blockLen(head) - 1
	end := c.Members[head].Offset + c.blockSize(cu, head)
	if tail+1 < len(c.Members) && c.Members[tail+1].Offset < end {
		end = c.Members[tail+1].Offset
	}
	return end
}

// alignment 整个结构体的对齐, 即成员的最大对齐
func (c *Class) alignment(cu *CU) int {
	a := 1
	for _, list := range [][]*Member{c.Bases, c.Members} {
		for _, m := range list {
			if x := cu.AlignOf(m.Type); x > a {
				a = x
			}
		}
	}
	return a
}

// dataStart 继承项之后第一个数据成员可以开始的位置
func (c *Class) dataStart(cu *CU) int {
	start := 0
	for _, b := range c.Bases {
		if end := b.Offset + cu.MemberSize(b); end > start {
			start = end
		}
	}
	return start
}

// subtractOffsetsFrom 下标 i 及之后的成员偏移减去 size
func (c *Class) subtractOffsetsFrom(i, size int) {
	for ; i < len(c.Members); i++ {
		c.Members[i].Offset -= size
	}
}

// addOffsetsFrom 下标 i 及之后的成员偏移加上 size
func (c *Class) addOffsetsFrom(i, size int) {
	for ; i < len(c.Members); i++ {
		c.Members[i].Offset += size
	}
}

type snapshot struct {
	order                     []*Member
	vals                      []Member
	size, padding, bitPadding int
}

func (c *Class) snapshot() snapshot {
	s := snapshot{
		order:      append([]*Member(nil), c.Members...),
		vals:       make([]Member, len(c.Members)),
		size:       c.Size,
		padding:    c.Padding,
		bitPadding: c.BitPadding,
	}
	for i, m := range c.Members {
		s.vals[i] = *m
	}
	return s
}

func (c *Class) restore(s snapshot) {
	c.Members = append(c.Members[:0], s.order...)
	for i, m := range c.Members {
		*m = s.vals[i]
	}
	c.Size, c.Padding, c.BitPadding = s.size, s.padding, s.bitPadding
}
