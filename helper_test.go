package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type closeRecorder struct {
	bytes.Buffer
	closed int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.err
}

func TestWriteToCloseError(t *testing.T) {
	errDisk := errors.New("disk full")
	errWrite := errors.New("write failed")
	tests := []struct {
		name     string
		closeErr error
		fnErr    error
		want     error
	}{
		{"ok", nil, nil, nil},
		{"close fails", errDisk, nil, errDisk},
		{"write error wins", errDisk, errWrite, errWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &closeRecorder{err: tt.closeErr}
			err := writeTo(out, func(w io.Writer) error {
				_, _ = io.WriteString(w, "struct s {};\n")
				return tt.fnErr
			})
			if out.closed != 1 {
				t.Fatalf("Close called %d times, want 1", out.closed)
			}
			if tt.want == nil && err != nil || tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("writeTo = %v, want %v", err, tt.want)
			}
			if out.String() != "struct s {};\n" {
				t.Fatalf("output = %q", out.String())
			}
		})
	}
}

func TestOpenOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.txt")
	out, err := openOutput(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := writeTo(out, func(w io.Writer) error {
		_, err := io.WriteString(w, "done\n")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "done\n" {
		t.Fatalf("ReadFile = %q, %v", b, err)
	}
	// 已关闭的文件再关闭会报错
	if err := out.Close(); err == nil {
		t.Fatal("output was not closed by writeTo")
	}
}
