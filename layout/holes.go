package layout

// FindHoles 根据当前的偏移和大小重新计算每个成员的 Hole/BitHole 以及结构体的
// Padding/BitPadding, 只修改这些字段, 可以反复调用.
//
// 最后一个位域组的剩余位: 单元正好结束在结构体末尾时记为 BitPadding,
// 否则记为该组的 BitHole, 之后的字节记为 Padding.
func (c *Class) FindHoles(cu *CU) {
	c.Padding, c.BitPadding = 0, 0
	for _, m := range c.Members {
		m.Hole, m.BitHole = 0, 0
	}
	if len(c.Members) == 0 {
		return
	}
	if c.IsUnion {
		largest := 0
		for _, m := range c.Members {
			if s := cu.MemberSize(m); s > largest {
				largest = s
			}
		}
		if largest < c.Size {
			c.Padding = c.Size - largest
		}
		return
	}

	var last *Member
	lastSize, bitSum := 0, 0
	for _, m := range c.Members {
		if last != nil {
			span := m.Offset - last.Offset
			if span > 0 {
				used := lastSize
				if span < used {
					used = span
				}
				last.Hole = span - used
				if bitSum != 0 {
					last.BitHole = nonNegative(used*8 - bitSum)
					bitSum = 0
				}
			}
		}
		bitSum += m.BitSize
		size := cu.MemberSize(m)
		if last == nil || last.Offset != m.Offset || !m.IsBitfield() || !last.IsBitfield() {
			lastSize = size
		} else if size > lastSize {
			lastSize = size
		}
		last = m
	}

	end := last.Offset + lastSize
	slack := 0
	if last.IsBitfield() {
		slack = nonNegative(lastSize*8 - bitSum)
	}
	if end < c.Size {
		c.Padding = c.Size - end
		last.BitHole = slack
	} else {
		c.BitPadding = slack
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
