package layout

import "testing"

func TestRemoveMemberFixupAlignment(t *testing.T) {
	tc := newTestCU(8)
	c := tc.class("s", 24,
		mem("a", tc.int_, 0),
		mem("b", tc.long, 8),
		mem("c", tc.char, 16),
	)
	if !c.RemoveMember("b") {
		t.Fatal("RemoveMember(b) = false")
	}
	if c.RemoveMember("b") {
		t.Fatal("second RemoveMember(b) = true")
	}
	if c.Member("c").Offset != 16 {
		t.Fatalf("RemoveMember touched offsets: c at %d", c.Member("c").Offset)
	}

	c.FixupAlignment(tc.CU)
	wantOrder(t, c, "a", "c")
	wantOffsets(t, c, map[string]int{"a": 0, "c": 8})
	if c.Size != 12 || c.Padding != 3 || c.Member("a").Hole != 4 {
		t.Fatalf("size %d padding %d a.Hole %d, want 12, 3, 4", c.Size, c.Padding, c.Member("a").Hole)
	}
	checkInvariants(t, tc.CU, c)
}

func TestFixupAlignment(t *testing.T) {
	tests := []struct {
		name     string
		build    func(tc *testCU) *Class
		want     map[string]int
		wantSize int
	}{
		{
			name: "misaligned short",
			build: func(tc *testCU) *Class {
				return tc.class("m", 12,
					mem("a", tc.char, 0),
					mem("b", tc.short, 1),
					mem("c", tc.int_, 7),
				)
			},
			want:     map[string]int{"a": 0, "b": 2, "c": 8},
			wantSize: 12,
		},
		{
			name: "first member not at start",
			build: func(tc *testCU) *Class {
				return tc.class("f", 12,
					mem("a", tc.int_, 4),
					mem("b", tc.int_, 8),
				)
			},
			want:     map[string]int{"a": 0, "b": 4},
			wantSize: 8,
		},
		{
			name: "already aligned",
			build: func(tc *testCU) *Class {
				return tc.class("ok", 16,
					mem("l", tc.long, 0),
					mem("i", tc.int_, 8),
				)
			},
			want:     map[string]int{"l": 0, "i": 8},
			wantSize: 16,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCU(8)
			c := tt.build(tc)
			c.FixupAlignment(tc.CU)
			wantOffsets(t, c, tt.want)
			if c.Size != tt.wantSize {
				t.Fatalf("size = %d, want %d", c.Size, tt.wantSize)
			}
			checkInvariants(t, tc.CU, c)
		})
	}
}

func TestFixupAlignmentUnion(t *testing.T) {
	tc := newTestCU(8)
	u := &Class{Name: "u", IsUnion: true, Size: 8, Members: []*Member{
		mem("i", tc.int_, 0),
		mem("l", tc.long, 0),
	}}
	u.FixupAlignment(tc.CU)
	if u.Size != 8 || u.Padding != 0 {
		t.Fatalf("union size %d padding %d, want 8 and 0", u.Size, u.Padding)
	}
}
