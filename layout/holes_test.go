package layout

import "testing"

func TestFindHoles(t *testing.T) {
	tc := newTestCU(8)
	c := tc.class("s", 24,
		mem("a", tc.int_, 0),
		mem("b", tc.long, 8),
		mem("c", tc.char, 16),
	)
	if got := c.Member("a").Hole; got != 4 {
		t.Fatalf("a.Hole = %d, want 4", got)
	}
	if c.Member("b").Hole != 0 || c.Member("c").Hole != 0 {
		t.Fatalf("unexpected holes after b or c: %+v", c.Members)
	}
	if c.Padding != 7 || c.BitPadding != 0 {
		t.Fatalf("padding = %d/%d bits, want 7/0", c.Padding, c.BitPadding)
	}
	if c.NrHoles() != 1 || c.SizeHoles() != 4 {
		t.Fatalf("NrHoles = %d, SizeHoles = %d, want 1 and 4", c.NrHoles(), c.SizeHoles())
	}
	checkInvariants(t, tc.CU, c)

	// 可以重复调用
	c.FindHoles(tc.CU)
	if c.Member("a").Hole != 4 || c.Padding != 7 || c.NrHoles() != 1 {
		t.Fatalf("second FindHoles changed the result: %+v padding %d", c.Members, c.Padding)
	}
}

func TestFindHolesBitfieldGroup(t *testing.T) {
	tc := newTestCU(8)
	c := tc.class("s", 8,
		bits("x", tc.int_, 0, 29, 3),
		bits("y", tc.int_, 0, 24, 5),
		mem("z", tc.int_, 4),
	)
	if x, y := c.Member("x"), c.Member("y"); x.BitHole != 0 || y.BitHole != 24 {
		t.Fatalf("bit holes x=%d y=%d, want 0 and 24", x.BitHole, y.BitHole)
	}
	if c.NrBitHoles() != 1 || c.NrHoles() != 0 {
		t.Fatalf("NrBitHoles = %d, NrHoles = %d, want 1 and 0", c.NrBitHoles(), c.NrHoles())
	}
	checkInvariants(t, tc.CU, c)
}

func TestFindHolesTrailingBitfield(t *testing.T) {
	tc := newTestCU(8)

	exact := tc.class("exact", 8,
		mem("a", tc.int_, 0),
		bits("b", tc.int_, 4, 29, 3),
	)
	if exact.BitPadding != 29 || exact.Padding != 0 || exact.Member("b").BitHole != 0 {
		t.Fatalf("exact: bit padding %d, padding %d, b.BitHole %d; want 29, 0, 0",
			exact.BitPadding, exact.Padding, exact.Member("b").BitHole)
	}

	padded := tc.class("padded", 16,
		mem("a", tc.long, 0),
		bits("b", tc.int_, 8, 29, 3),
	)
	if padded.BitPadding != 0 || padded.Padding != 4 || padded.Member("b").BitHole != 29 {
		t.Fatalf("padded: bit padding %d, padding %d, b.BitHole %d; want 0, 4, 29",
			padded.BitPadding, padded.Padding, padded.Member("b").BitHole)
	}
	checkInvariants(t, tc.CU, padded)
}

func TestFindHolesUnion(t *testing.T) {
	tc := newTestCU(8)
	c := &Class{Name: "u", IsUnion: true, Size: 16, Members: []*Member{
		mem("i", tc.int_, 0),
		mem("l", tc.long, 0),
	}}
	c.FindHoles(tc.CU)
	if c.NrHoles() != 0 || c.Padding != 8 {
		t.Fatalf("union holes %d padding %d, want 0 and 8", c.NrHoles(), c.Padding)
	}
}
