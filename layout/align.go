package layout

// FixupAlignment 在 RemoveMember 删除成员后恢复自然对齐.
// 空洞中整数个地址大小的部分被收回, 大小为2的幂的成员移到其大小的倍数上,
// 最后按结构体的对齐补齐尾部.
func (c *Class) FixupAlignment(cu *CU) {
	if c.IsUnion || len(c.Members) == 0 {
		c.FindHoles(cu)
		return
	}
	addr := cu.AddrSize
	prevEnd := 0
	for i := 0; i < len(c.Members); i += c.blockLen(i) {
		m := c.Members[i]
		if i == 0 {
			if start := c.dataStart(cu); m.Offset != start {
				c.subtractOffsetsFrom(0, m.Offset-start)
			}
			prevEnd = c.endOf(cu, i)
			continue
		}
		hole := m.Offset - prevEnd
		if hole >= addr {
			c.subtractOffsetsFrom(i, hole/addr*addr)
		} else {
			size := c.blockSize(cu, i)
			for p := addr; p >= 2; p /= 2 {
				if size != p {
					continue
				}
				rem := m.Offset % p
				if rem == 0 {
					break
				}
				if hole >= rem {
					c.subtractOffsetsFrom(i, rem)
				} else {
					c.addOffsetsFrom(i, p-rem)
				}
				break
			}
		}
		prevEnd = c.endOf(cu, i)
	}
	c.Size = alignUp(c.endOf(cu, len(c.Members)-1), c.alignment(cu))
	c.FindHoles(cu)
}
