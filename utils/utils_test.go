package utils

import "testing"

func TestUnsignedTypeName(t *testing.T) {
	tests := []struct {
		size, addr int
		want       string
	}{
		{1, 8, "unsigned char"},
		{2, 8, "short unsigned int"},
		{4, 4, "unsigned int"},
		{8, 8, "long unsigned int"},
		{8, 4, "long long unsigned int"},
		{3, 8, ""},
	}
	for _, tt := range tests {
		if got := UnsignedTypeName(tt.size, tt.addr); got != tt.want {
			t.Fatalf("UnsignedTypeName(%d, %d) = %q, want %q", tt.size, tt.addr, got, tt.want)
		}
	}
}

func TestClassFilter(t *testing.T) {
	all := NewClassFilter(nil, []string{"__pthread"})
	if !all.Match("task_struct") {
		t.Fatal("expected task_struct to match")
	}
	if all.Match("") {
		t.Fatal("anonymous structs must not match")
	}
	if all.Match("std::vector<int>") || all.Match("__pthread_mutex_s") {
		t.Fatal("excluded prefixes must not match")
	}

	named := NewClassFilter([]string{"inode"}, nil)
	if !named.Match("inode") || named.Match("dentry") {
		t.Fatal("named filter must select only the given names")
	}
}
