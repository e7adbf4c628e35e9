package main

import (
	"fmt"
	"io"
	"strings"

	"dwarfreorg/layout"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

const (
	cacheline = 64
	typeWidth = 26
	nameWidth = 22
)

var (
	holeColor    = color.New(color.FgRed, color.Bold)
	paddingColor = color.New(color.FgYellow)
	stepColor    = color.New(color.FgCyan)
)

func typeName(cu *layout.CU, id layout.TypeID) string {
	if t := cu.Type(id); t != nil && t.Name != "" {
		return t.Name
	}
	return "void"
}

// memberSum 成员实际占用的字节数, 位域组只计算一次存储单元
func memberSum(cu *layout.CU, c *layout.Class) int {
	sum := 0
	for i, m := range c.Members {
		if m.IsBitfield() && i+1 < len(c.Members) {
			next := c.Members[i+1]
			if next.IsBitfield() && next.Offset == m.Offset {
				continue
			}
		}
		sum += cu.MemberSize(m)
	}
	return sum
}

// PrintClass 按 pahole 的格式输出结构体布局
func PrintClass(w io.Writer, cu *layout.CU, c *layout.Class) {
	name := c.Name
	if name == "" {
		name = "(anonymous)"
	}
	fmt.Fprintf(w, "%s %s", c.Kind(), name)
	if len(c.Bases) != 0 {
		bases := make([]string, 0, len(c.Bases))
		for _, b := range c.Bases {
			bases = append(bases, "public "+typeName(cu, b.Type))
		}
		fmt.Fprintf(w, " : %s", strings.Join(bases, ", "))
	}
	fmt.Fprintln(w, " {")

	for _, b := range c.Bases {
		printMember(w, cu, b, "<ancestor>")
	}
	boundary := cacheline
	for _, m := range c.Members {
		for m.Offset >= boundary {
			fmt.Fprintf(w, "\t/* --- cacheline %d boundary (%d bytes) --- */\n", boundary/cacheline, boundary)
			boundary += cacheline
		}
		printMember(w, cu, m, m.Name)
		if m.BitHole != 0 {
			fmt.Fprintf(w, "\n\t%s\n\n", holeColor.Sprintf("/* XXX %d bits hole, try to pack */", m.BitHole))
		}
		if m.Hole != 0 {
			fmt.Fprintf(w, "\n\t%s\n\n", holeColor.Sprintf("/* XXX %d bytes hole, try to pack */", m.Hole))
		}
	}

	fmt.Fprintf(w, "\n\t/* size: %d, cachelines: %d, members: %d */\n",
		c.Size, (c.Size+cacheline-1)/cacheline, len(c.Members))
	if c.NrHoles() != 0 || c.NrBitHoles() != 0 {
		fmt.Fprintf(w, "\t/* sum members: %d, holes: %d, sum holes: %d */\n",
			memberSum(cu, c), c.NrHoles(), c.SizeHoles())
		if c.NrBitHoles() != 0 {
			fmt.Fprintf(w, "\t/* bit holes: %d, sum bit holes: %d bits */\n", c.NrBitHoles(), c.SizeBitHoles())
		}
	}
	if c.Padding != 0 {
		fmt.Fprintf(w, "\t%s\n", paddingColor.Sprintf("/* padding: %d */", c.Padding))
	}
	if c.BitPadding != 0 {
		fmt.Fprintf(w, "\t%s\n", paddingColor.Sprintf("/* bit_padding: %d bits */", c.BitPadding))
	}
	if last := c.Size % cacheline; last != 0 && c.Size > cacheline {
		fmt.Fprintf(w, "\t/* last cacheline: %d bytes */\n", last)
	}
	fmt.Fprintln(w, "};")
}

func printMember(w io.Writer, cu *layout.CU, m *layout.Member, name string) {
	decl := name
	if m.IsBitfield() {
		decl = fmt.Sprintf("%s:%d", name, m.BitSize)
	}
	size := cu.MemberSize(m)
	loc := fmt.Sprintf("/* %5d %5d */", m.Offset, size)
	if m.IsBitfield() {
		loc = fmt.Sprintf("/* %5d:%2d %2d */", m.Offset, m.BitOffset, size)
	}
	fmt.Fprintf(w, "\t%s %s %s\n",
		runewidth.FillRight(typeName(cu, m.Type), typeWidth),
		runewidth.FillRight(decl+";", nameWidth),
		loc)
}

// PrintSteps 输出每一步的调整
func PrintSteps(w io.Writer, events []layout.Event) {
	for _, e := range events {
		fmt.Fprintln(w, stepColor.Sprint(e.String()))
	}
}

// PrintResult 输出重排的统计和未能完成的优化
func PrintResult(w io.Writer, res layout.Result) {
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "/* %s */\n", d)
	}
	if saved := res.Saved(); saved > 0 {
		fmt.Fprintf(w, "   /* saved %d bytes! */\n", saved)
	}
}
