package layout

import (
	"fmt"

	"go.uber.org/zap"
)

// EventKind 报告给 Observer 的修改点
type EventKind uint8

const (
	EventTypesFixed EventKind = iota + 1
	EventDemoted
	EventMoved
	EventBitMoved
	EventMissingBaseType
	EventBitsOutsideUnit
)

func (k EventKind) String() string {
	switch k {
	case EventTypesFixed:
		return "types-fixed"
	case EventDemoted:
		return "demoted"
	case EventMoved:
		return "moved"
	case EventBitMoved:
		return "bit-moved"
	case EventMissingBaseType:
		return "missing-base-type"
	case EventBitsOutsideUnit:
		return "bits-outside-unit"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event 一次修改
type Event struct {
	Kind  EventKind
	Class string

	Member string // 被移动或改类型的成员 (组的第一个成员)
	Tail   string // 组的最后一个成员
	After  string // 移动前排在它前面的成员
	Dest   string // 移动后排在它前面的成员

	OldType string
	NewType string
	Size    int // 请求的基础类型字节数
	BitSize int
}

func (e Event) String() string {
	group := func() string {
		if e.Tail != "" && e.Tail != e.Member {
			return fmt.Sprintf("bitfield('%s' ... '%s')", e.Member, e.Tail)
		}
		return fmt.Sprintf("'%s'", e.Member)
	}
	switch e.Kind {
	case EventTypesFixed:
		return fmt.Sprintf("/* Fixing %s type from '%s' to '%s' */", group(), e.OldType, e.NewType)
	case EventDemoted:
		return fmt.Sprintf("/* Demoting %s from '%s' to '%s' */", group(), e.OldType, e.NewType)
	case EventMoved:
		return fmt.Sprintf("/* Moving %s from after '%s' to after '%s' */", group(), e.After, e.Dest)
	case EventBitMoved:
		return fmt.Sprintf("/* Moving '%s:%d' from after '%s' to after '%s' */", e.Member, e.BitSize, e.After, e.Dest)
	case EventMissingBaseType:
		return fmt.Sprintf("/* couldn't find a %d bytes base type for %s */", e.Size, group())
	case EventBitsOutsideUnit:
		return fmt.Sprintf("/* %s does not fit in '%s', left alone */", group(), e.NewType)
	}
	return "/* " + e.Kind.String() + " */"
}

// Observer 在每个修改点收到事件, 实现不能修改结构体
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

type logObserver struct {
	l *zap.Logger
}

// NewLogObserver 把事件写入 l: 跳过的优化为 warn, 其余为 debug
func NewLogObserver(l *zap.Logger) Observer {
	if l == nil {
		l = zap.NewNop()
	}
	return &logObserver{l: l}
}

func (o *logObserver) Observe(e Event) {
	fields := []zap.Field{
		zap.String("class", e.Class),
		zap.String("member", e.Member),
	}
	switch e.Kind {
	case EventMissingBaseType:
		o.l.Warn("no base type of required size", append(fields, zap.Int("size", e.Size))...)
	case EventBitsOutsideUnit:
		o.l.Warn("bit-field does not fit in narrowed unit", append(fields, zap.String("type", e.NewType))...)
	case EventMoved, EventBitMoved:
		o.l.Debug(e.Kind.String(), append(fields, zap.String("after", e.After), zap.String("dest", e.Dest))...)
	default:
		o.l.Debug(e.Kind.String(), append(fields, zap.String("from", e.OldType), zap.String("to", e.NewType))...)
	}
}

// Diagnostic 返回给调用者的被跳过的优化
type Diagnostic struct {
	Class   string
	Member  string
	Size    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s.%s: %s", d.Class, d.Member, d.Message)
}
