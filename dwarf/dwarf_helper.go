package dwarfhelper

import (
	"bytes"
	"compress/zlib"
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/go-delve/delve/pkg/dwarf/godwarf"
)

type DwarfInfo struct {
	path      string
	elfFile   *elf.File
	data      *dwarf.Data
	typeCache map[dwarf.Offset]godwarf.Type
}

func NewDwarfInfo(input string) (*DwarfInfo, error) {
	elfFile, err := elf.Open(input)
	if err != nil {
		return nil, &LoadError{Kind: ErrOpen, Path: input, Err: err}
	}
	data, err := DWARF(elfFile)
	if err != nil {
		elfFile.Close()
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = input
		}
		return nil, err
	}

	return &DwarfInfo{
		path:      input,
		elfFile:   elfFile,
		data:      data,
		typeCache: make(map[dwarf.Offset]godwarf.Type),
	}, nil
}

func (_this *DwarfInfo) GetData() *dwarf.Data {
	return _this.data
}

func (_this *DwarfInfo) Close() error {
	return _this.elfFile.Close()
}

// dwarf.New 需要的段, 其余的段之后通过 AddTypes/AddSection 加入
var coreSections = []string{"abbrev", "info", "str", "line", "ranges"}

// debugSuffix 返回 .debug_xxx 或 .zdebug_xxx 的 xxx
func debugSuffix(name string) string {
	if s, ok := strings.CutPrefix(name, ".debug_"); ok {
		return s
	}
	if s, ok := strings.CutPrefix(name, ".zdebug_"); ok {
		return s
	}
	return ""
}

// DWARF 读取全部调试段, 支持 .zdebug_* 的 zlib 压缩格式, 错误为 *LoadError
func DWARF(f *elf.File) (*dwarf.Data, error) {
	sections := make(map[string][]byte)
	var extra []string
	for _, s := range f.Sections {
		suffix := debugSuffix(s.Name)
		if suffix == "" || s.Type == elf.SHT_NOBITS {
			continue
		}
		b, err := s.Data()
		if err != nil && uint64(len(b)) < s.Size {
			return nil, &LoadError{Kind: ErrNoDebugInfo, Err: fmt.Errorf("section %s: %w", s.Name, err)}
		}
		if b, err = decompressSection(b); err != nil {
			return nil, &LoadError{Kind: ErrNoDebugInfo, Err: fmt.Errorf("section %s: %w", s.Name, err)}
		}
		if suffix == "types" {
			// DWARF4 可能有多个 .debug_types 段
			suffix = fmt.Sprintf("types-%d", len(extra))
		}
		sections[suffix] = b
		extra = append(extra, suffix)
	}
	if sections["info"] == nil {
		return nil, &LoadError{Kind: ErrNoDebugInfo, Err: fmt.Errorf("no .debug_info section")}
	}

	d, err := dwarf.New(sections["abbrev"], nil, nil, sections["info"], sections["line"], nil, sections["ranges"], sections["str"])
	if err != nil {
		return nil, &LoadError{Kind: ErrRead, Err: err}
	}
	sort.Strings(extra)
	for _, suffix := range extra {
		if slices.Contains(coreSections, suffix) {
			continue
		}
		if strings.HasPrefix(suffix, "types-") {
			err = d.AddTypes(suffix, sections[suffix])
		} else {
			err = d.AddSection(".debug_"+suffix, sections[suffix])
		}
		if err != nil {
			return nil, &LoadError{Kind: ErrRead, Err: fmt.Errorf("section %s: %w", suffix, err)}
		}
	}
	return d, nil
}

// decompressSection 解压 "ZLIB" + 8字节大端长度 开头的段, 其他数据原样返回
func decompressSection(b []byte) ([]byte, error) {
	if len(b) < 12 || string(b[:4]) != "ZLIB" {
		return b, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(b[12:]))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]byte, binary.BigEndian.Uint64(b[4:12]))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
