package layout

// fitsAfter 判断 head 开始的块对齐后能否放进 dest 之后的空洞, 并返回放入后的偏移
func (c *Class) fitsAfter(cu *CU, dest, head int) (int, bool) {
	hole := c.Members[dest].Hole
	size := c.blockSize(cu, head)
	if hole == 0 || size == 0 || size > hole {
		return 0, false
	}
	start := c.endOf(cu, dest)
	offset := alignUp(start, c.blockAlign(cu, head))
	return offset, offset+size <= start+hole
}

// findNextHoleOfSize 返回 from 之后第一个能放进 from 空洞的块, 没有时为 -1.
// 位域组作为一个整体参与.
func (c *Class) findNextHoleOfSize(cu *CU, from int) int {
	for i := from + 1; i < len(c.Members); i += c.blockLen(i) {
		if _, ok := c.fitsAfter(cu, from, i); ok {
			return i
		}
	}
	return -1
}

// findLastMemberOfSize 从末尾向前查找最后一个能放进 to 空洞的块
func (c *Class) findLastMemberOfSize(cu *CU, to int) int {
	for i := len(c.Members) - 1; i > to; {
		head := c.blockHead(i)
		if head <= to {
			break
		}
		if _, ok := c.fitsAfter(cu, to, head); ok {
			return head
		}
		i = head - 1
	}
	return -1
}

// findNextBitHoleOfSize 返回 from 之后第一个结束于有位空洞的组且不超过 bits 位的位域
func (c *Class) findNextBitHoleOfSize(from, bits int) int {
	for i := from + 1; i < len(c.Members); i++ {
		m := c.Members[i]
		if m.BitHole != 0 && m.BitSize <= bits {
			return i
		}
	}
	return -1
}

// splice 把 from 开始的 n 个成员移到 dest 之后, dest 必须在 from 之前
func (c *Class) splice(dest, from, n int) {
	out := make([]*Member, 0, len(c.Members))
	out = append(out, c.Members[:dest+1]...)
	out = append(out, c.Members[from:from+n]...)
	out = append(out, c.Members[dest+1:from]...)
	out = append(out, c.Members[from+n:]...)
	c.Members = out
}

// reclaim 收回 i 开始的 n 个成员移走后留下的空间, 按结构体对齐的整数倍收回,
// 后面的成员保持对齐
func (c *Class) reclaim(cu *CU, i, n, align int) {
	next := i + n
	if next >= len(c.Members) {
		return
	}
	prevEnd := c.dataStart(cu)
	if i > 0 {
		prevEnd = c.endOf(cu, i-1)
	}
	free := c.Members[next].Offset - prevEnd
	if shift := free / align * align; shift > 0 {
		c.subtractOffsetsFrom(next, shift)
		c.Size -= shift
	}
}

// shrinkToFit 去掉对齐不需要的尾部填充
func (c *Class) shrinkToFit(cu *CU, align int) {
	if len(c.Members) == 0 {
		return
	}
	if size := alignUp(c.endOf(cu, len(c.Members)-1), align); size < c.Size {
		c.Size = size
	}
}

// moveMember 把 head 开始的块 (单个成员或整个位域组) 移到 dest 之后的 offset 处,
// 块内的相对位偏移不变. 留下的空间被收回或成为空洞.
func (c *Class) moveMember(cu *CU, dest, head, offset int) {
	n := c.blockLen(head)
	align := c.alignment(cu)
	wasLast := head+n == len(c.Members)

	c.reclaim(cu, head, n, align)
	c.splice(dest, head, n)
	for i := dest + 1; i <= dest+n; i++ {
		c.Members[i].Offset = offset
	}
	if wasLast {
		c.shrinkToFit(cu, align)
	}
	c.FindHoles(cu)
}

// moveBitMember 把 from 处的位域移进以 dest 结尾的组的位空洞,
// 使用 dest 的存储类型, 占据紧跟 dest 的位
func (c *Class) moveBitMember(cu *CU, dest, from int) {
	d, m := c.Members[dest], c.Members[from]
	sole := c.blockHead(from) == from && c.blockLen(from) == 1
	wasLast := from == len(c.Members)-1
	align := c.alignment(cu)

	if sole {
		c.reclaim(cu, from, 1, align)
	}
	m.BitOffset = cu.BitNumbering.next(d, m.BitSize)
	m.Type = d.Type
	m.Offset = d.Offset
	c.splice(dest, from, 1)
	if sole && wasLast {
		c.shrinkToFit(cu, align)
	}
	c.FindHoles(cu)
}

// reorganizeBitfields 把位域合并进前面组的位空洞, 直到放不下为止
func (r *Reorganizer) reorganizeBitfields(c *Class, res *Result) {
	for res.Passes < r.maxPasses && r.moveOneBitMember(c, res) {
		res.Passes++
	}
}

func (r *Reorganizer) moveOneBitMember(c *Class, res *Result) bool {
	c.FindHoles(r.cu)
	for i, m := range c.Members {
		if m.BitHole == 0 {
			continue
		}
		j := c.findNextBitHoleOfSize(i, m.BitHole)
		if j < 0 {
			continue
		}
		from := c.Members[j]
		if !r.cu.BitNumbering.inUnit(r.cu.BitNumbering.next(m, from.BitSize), from.BitSize, r.cu.MemberSize(m)) {
			continue
		}
		e := Event{
			Kind:    EventBitMoved,
			Class:   c.Name,
			Member:  from.Name,
			BitSize: from.BitSize,
			After:   c.Members[j-1].Name,
			Dest:    m.Name,
		}
		c.moveBitMember(r.cu, i, j)
		res.BitMoves++
		r.emit(e)
		return true
	}
	return false
}
