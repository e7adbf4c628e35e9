package dwarfhelper

import (
	"debug/dwarf"
	"fmt"
)

type LoadErrorKind uint8

const (
	ErrOpen LoadErrorKind = iota + 1
	ErrNoDebugInfo
	ErrRead
	ErrType
	ErrRange
)

func (k LoadErrorKind) String() string {
	switch k {
	case ErrOpen:
		return "open"
	case ErrNoDebugInfo:
		return "no debug info"
	case ErrRead:
		return "read"
	case ErrType:
		return "type"
	case ErrRange:
		return "value out of range"
	default:
		return fmt.Sprintf("LoadErrorKind(%d)", uint8(k))
	}
}

// LoadError 加载调试信息时的错误, Offset 为出错的 DIE
type LoadError struct {
	Kind   LoadErrorKind
	Path   string
	Offset dwarf.Offset
	Err    error
}

func (e *LoadError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Offset != 0 {
		msg = fmt.Sprintf("%s at 0x%x", msg, uint32(e.Offset))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
