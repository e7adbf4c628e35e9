package utils

import (
	"strings"

	mapset "github.com/deckarep/golang-set"
)

// UnsignedTypeName 根据大小返回标准的无符号整数类型名
func UnsignedTypeName(size, addrSize int) string {
	switch size {
	case 1:
		return "unsigned char"
	case 2:
		return "short unsigned int"
	case 4:
		return "unsigned int"
	case 8:
		if addrSize == 8 {
			return "long unsigned int"
		}
		return "long long unsigned int"
	}
	return ""
}

var filterList = []interface{}{"__cxx", "_ZN", "_ZT", "std::"}

// ClassFilter 选择需要处理的结构体
type ClassFilter struct {
	names    mapset.Set
	prefixes mapset.Set
}

// NewClassFilter names为空时选择全部结构体, exclude为需要过滤的前缀
func NewClassFilter(names []string, exclude []string) *ClassFilter {
	f := &ClassFilter{
		names:    mapset.NewSet(),
		prefixes: mapset.NewSetFromSlice(filterList),
	}
	for _, n := range names {
		if n != "" {
			f.names.Add(n)
		}
	}
	for _, p := range exclude {
		if p != "" {
			f.prefixes.Add(p)
		}
	}
	return f
}

// Match 匿名结构体和被过滤的前缀返回false
func (f *ClassFilter) Match(name string) bool {
	if len(name) == 0 {
		return false
	}
	if f.names.Cardinality() != 0 {
		return f.names.Contains(name)
	}
	for _, p := range f.prefixes.ToSlice() {
		if strings.HasPrefix(name, p.(string)) {
			return false
		}
	}
	return true
}
