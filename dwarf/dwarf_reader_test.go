package dwarfhelper

import (
	"debug/dwarf"
	"errors"
	"io/fs"
	"testing"

	"dwarfreorg/layout"
)

func TestSplitDataBitOffset(t *testing.T) {
	tests := []struct {
		name                    string
		dbo, unit, bits         int64
		numbering               layout.BitNumbering
		wantOffset, wantBitOffs int64
	}{
		{"first field msb", 0, 4, 3, layout.MSBFirst, 0, 29},
		{"second field msb", 3, 4, 2, layout.MSBFirst, 0, 27},
		{"second field lsb", 3, 4, 2, layout.LSBFirst, 0, 3},
		{"second unit", 35, 4, 5, layout.MSBFirst, 4, 24},
		{"char unit", 9, 1, 3, layout.LSBFirst, 1, 1},
		{"straddling packed field", 30, 4, 4, layout.LSBFirst, 3, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, bo := splitDataBitOffset(tt.dbo, tt.unit, tt.bits, tt.numbering)
			if off != tt.wantOffset || bo != tt.wantBitOffs {
				t.Fatalf("splitDataBitOffset(%d, %d, %d) = %d, %d; want %d, %d",
					tt.dbo, tt.unit, tt.bits, off, bo, tt.wantOffset, tt.wantBitOffs)
			}
		})
	}
}

func TestDataMemberLoc(t *testing.T) {
	entry := func(v interface{}) *dwarf.Entry {
		e := &dwarf.Entry{Tag: dwarf.TagMember}
		if v != nil {
			e.Field = []dwarf.Field{{Attr: dwarf.AttrDataMemberLoc, Val: v}}
		}
		return e
	}
	tests := []struct {
		name    string
		val     interface{}
		want    int64
		wantErr bool
	}{
		{"absent", nil, 0, false},
		{"constant", int64(24), 24, false},
		{"plus_uconst", []byte{opPlusUconst, 0x90, 0x01}, 144, false},
		{"other expression", []byte{0x10, 0x01}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dataMemberLoc(entry(tt.val))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecompressSection(t *testing.T) {
	plain := []byte("not compressed")
	got, err := decompressSection(plain)
	if err != nil || string(got) != string(plain) {
		t.Fatalf("decompressSection(plain) = %q, %v", got, err)
	}
}

func TestLoadError(t *testing.T) {
	err := error(&LoadError{Kind: ErrType, Path: "a.out", Offset: 0x2a, Err: fs.ErrNotExist})
	if got, want := err.Error(), "a.out: type at 0x2a: file does not exist"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("errors.Is does not see the wrapped error")
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Kind != ErrType {
		t.Fatalf("errors.As = %v", le)
	}
}

func TestNewDwarfInfoMissingFile(t *testing.T) {
	_, err := NewDwarfInfo("testdata/does-not-exist")
	var le *LoadError
	if !errors.As(err, &le) || le.Kind != ErrOpen {
		t.Fatalf("NewDwarfInfo error = %v, want open LoadError", err)
	}
}
