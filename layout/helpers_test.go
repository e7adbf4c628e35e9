package layout

import (
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

type testCU struct {
	*CU
	char, uchar, short, ushort, int_, uint, long, ulong TypeID
}

func newTestCU(addrSize int) *testCU {
	cu := NewCU("test.c", addrSize)
	tc := &testCU{CU: cu}
	tc.char = cu.AddType(Type{Kind: KindBase, Name: "char", Size: 1, Encoding: EncSigned})
	tc.uchar = cu.AddType(Type{Kind: KindBase, Name: "unsigned char", Size: 1, Encoding: EncUnsigned})
	tc.short = cu.AddType(Type{Kind: KindBase, Name: "short int", Size: 2, Encoding: EncSigned})
	tc.ushort = cu.AddType(Type{Kind: KindBase, Name: "short unsigned int", Size: 2, Encoding: EncUnsigned})
	tc.int_ = cu.AddType(Type{Kind: KindBase, Name: "int", Size: 4, Encoding: EncSigned})
	tc.uint = cu.AddType(Type{Kind: KindBase, Name: "unsigned int", Size: 4, Encoding: EncUnsigned})
	tc.long = cu.AddType(Type{Kind: KindBase, Name: "long int", Size: 8, Encoding: EncSigned})
	tc.ulong = cu.AddType(Type{Kind: KindBase, Name: "long unsigned int", Size: 8, Encoding: EncUnsigned})
	return tc
}

func (tc *testCU) class(name string, size int, members ...*Member) *Class {
	c := &Class{Name: name, Size: size, Members: members}
	tc.AddClass(c)
	c.FindHoles(tc.CU)
	return c
}

func mem(name string, t TypeID, offset int) *Member {
	return &Member{Name: name, Type: t, Offset: offset}
}

func bits(name string, t TypeID, offset, bitOffset, bitSize int) *Member {
	return &Member{Name: name, Type: t, Offset: offset, BitOffset: bitOffset, BitSize: bitSize}
}

func order(c *Class) []string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.Name)
	}
	return names
}

func wantOrder(t *testing.T, c *Class, want ...string) {
	t.Helper()
	got := order(c)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("member order = %v, want %v\n%s", got, want, spew.Sdump(c))
	}
}

func wantOffsets(t *testing.T, c *Class, want map[string]int) {
	t.Helper()
	for name, off := range want {
		m := c.Member(name)
		if m == nil {
			t.Fatalf("member %q missing\n%s", name, spew.Sdump(c))
		}
		if m.Offset != off {
			t.Fatalf("%s.Offset = %d, want %d\n%s", name, m.Offset, off, spew.Sdump(c))
		}
	}
}

// checkInvariants 检查每次修改后都必须成立的统计关系
func checkInvariants(t *testing.T, cu *CU, c *Class) {
	t.Helper()
	for i := 1; i < len(c.Members); i++ {
		if c.Members[i].Offset < c.Members[i-1].Offset {
			t.Fatalf("offsets not monotonic at %s\n%s", c.Members[i].Name, spew.Sdump(c))
		}
	}
	total := c.Padding
	for head := 0; head < len(c.Members); head += c.blockLen(head) {
		tail := c.Members[head+c.blockLen(head)-1]
		total += c.endOf(cu, head) - c.Members[head].Offset + tail.Hole
	}
	if start := c.dataStart(cu); total+start != c.Size {
		t.Fatalf("sizes and holes add up to %d, class size is %d\n%s", total+start, c.Size, spew.Sdump(c))
	}
	for _, m := range c.Members {
		if m.IsBitfield() {
			continue
		}
		a := cu.AlignOf(m.Type)
		if a > cu.AddrSize {
			a = cu.AddrSize
		}
		if m.Offset%a != 0 {
			t.Fatalf("%s at %d is not %d-aligned\n%s", m.Name, m.Offset, a, spew.Sdump(c))
		}
	}
}

type memberKey struct {
	name    string
	bitSize int
	typ     string
}

// memberSet 重排前后必须相同的成员集合, 位域的存储类型会变, 只比较位宽
func memberSet(cu *CU, c *Class) map[memberKey]int {
	set := make(map[memberKey]int)
	for _, m := range c.Members {
		k := memberKey{name: m.Name, bitSize: m.BitSize}
		if !m.IsBitfield() {
			k.typ = cu.Resolve(m.Type).Name
		}
		set[k]++
	}
	return set
}
