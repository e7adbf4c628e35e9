package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	dwarfhelper "dwarfreorg/dwarf"
	"dwarfreorg/layout"
	"dwarfreorg/utils"

	mapset "github.com/deckarep/golang-set"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Mode uint8

const (
	ModeHoles Mode = iota
	ModeReorganize
)

type Options struct {
	Mode          Mode
	Input         string
	Classes       []string
	Exclude       []string
	Jobs          int
	MaxPasses     int
	Numbering     layout.BitNumbering
	ShowSteps     bool
	ShowHolesOnly bool
	Logger        *zap.Logger
}

// rendered 一个结构体的输出, 多个编译单元中的同名结构体只输出一次
type rendered struct {
	name  string
	text  []byte
	saved int
}

// recorder 记录当前结构体的调整步骤并转发给日志
type recorder struct {
	next   layout.Observer
	events []layout.Event
}

func (r *recorder) Observe(e layout.Event) {
	r.events = append(r.events, e)
	r.next.Observe(e)
}

func DwarfHelper(ctx context.Context, opts Options, w io.Writer) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	info, err := dwarfhelper.NewDwarfInfo(opts.Input)
	if err != nil {
		return err
	}
	defer info.Close()

	cus, err := info.Load(opts.Numbering)
	if err != nil {
		return err
	}
	log.Debug("loaded debug info", zap.String("input", opts.Input), zap.Int("units", len(cus)))

	filter := utils.NewClassFilter(opts.Classes, opts.Exclude)
	results := make([][]rendered, len(cus))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(cus))))
	for i, cu := range cus {
		i, cu := i, cu
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = processCU(cu, filter, opts, log.With(zap.String("cu", cu.Name)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	seen := mapset.NewSet()
	printed, saved := 0, 0
	for _, list := range results {
		for _, r := range list {
			if !seen.Add(r.name) {
				continue
			}
			if _, err := w.Write(r.text); err != nil {
				return err
			}
			printed++
			saved += r.saved
		}
	}
	log.Info("done", zap.Int("classes", printed), zap.Int("saved", saved))
	return nil
}

// processCU 处理一个编译单元里选中的结构体
func processCU(cu *layout.CU, filter *utils.ClassFilter, opts Options, log *zap.Logger) []rendered {
	rec := &recorder{next: layout.NewLogObserver(log)}
	reorg := layout.New(cu, layout.Options{Observer: rec, MaxPasses: opts.MaxPasses})

	var out []rendered
	for _, c := range cu.Classes {
		if !filter.Match(c.Name) {
			continue
		}
		var buf bytes.Buffer
		r := rendered{name: c.Kind() + " " + c.Name}
		switch opts.Mode {
		case ModeHoles:
			if opts.ShowHolesOnly && c.NrHoles() == 0 && c.NrBitHoles() == 0 {
				continue
			}
			PrintClass(&buf, cu, c)
		case ModeReorganize:
			rec.events = rec.events[:0]
			res := reorg.Reorganize(c)
			if opts.ShowHolesOnly && !res.Changed() {
				continue
			}
			if opts.ShowSteps {
				PrintSteps(&buf, rec.events)
			}
			PrintClass(&buf, cu, c)
			PrintResult(&buf, res)
			r.saved = res.Saved()
			log.Debug("reorganized", zap.String("class", c.Name),
				zap.Int("size", res.OrigSize), zap.Int("new_size", res.Size), zap.Int("passes", res.Passes))
		}
		buf.WriteByte('\n')
		r.text = buf.Bytes()
		out = append(out, r)
	}
	return out
}

// openOutput 空路径或 "-" 输出到标准输出
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// writeTo 调用 fn 写入 out 后关闭 out, fn 成功时返回关闭的错误
func writeTo(out io.WriteCloser, fn func(io.Writer) error) (err error) {
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return fn(out)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
