package layout

// DefaultMaxPasses Reorganize 各循环的总次数上限
const DefaultMaxPasses = 1000

type Options struct {
	Observer  Observer
	MaxPasses int
}

// Reorganizer 重排一个编译单元中的结构体. 调用之间不保存状态,
// 不同的 CU 可以由不同的 Reorganizer 并发处理.
type Reorganizer struct {
	cu        *CU
	obs       Observer
	maxPasses int
}

func New(cu *CU, opts Options) *Reorganizer {
	r := &Reorganizer{
		cu:        cu,
		obs:       opts.Observer,
		maxPasses: opts.MaxPasses,
	}
	if r.obs == nil {
		r.obs = nopObserver{}
	}
	if r.maxPasses <= 0 {
		r.maxPasses = DefaultMaxPasses
	}
	return r
}

// Result 一次 Reorganize 的结果
type Result struct {
	Class       string
	OrigSize    int
	Size        int
	Fixups      int
	Demotions   int
	BitMoves    int
	Moves       int
	Passes      int
	Diagnostics []Diagnostic
}

// Saved 节省的字节数
func (r Result) Saved() int {
	return r.OrigSize - r.Size
}

// Changed 布局是否被修改
func (r Result) Changed() bool {
	return r.Fixups+r.Demotions+r.BitMoves+r.Moves > 0
}

func (r *Reorganizer) emit(e Event) {
	r.obs.Observe(e)
}

// diagnose 记录一次跳过的优化, 同一成员同一原因只记一次
func (r *Reorganizer) diagnose(c *Class, res *Result, e Event, msg string) {
	for _, d := range res.Diagnostics {
		if d.Member == e.Member && d.Size == e.Size && d.Message == msg {
			return
		}
	}
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Class:   c.Name,
		Member:  e.Member,
		Size:    e.Size,
		Message: msg,
	})
	e.Class = c.Name
	r.emit(e)
}

// Reorganize 原地重排 c 以尽量去掉填充: 修正并缩小位域的存储类型,
// 把位域合并进其他组的位空洞, 再把成员移进空洞, 直到没有能改善布局的移动.
func (r *Reorganizer) Reorganize(c *Class) Result {
	cu := r.cu
	res := Result{Class: c.Name, OrigSize: c.Size, Size: c.Size}
	c.FindHoles(cu)
	// 联合体和只有继承项的结构体保持不变
	if c.IsUnion || len(c.Members) == 0 {
		return res
	}

	r.fixupMemberTypes(c, &res)

	for res.Passes < r.maxPasses && r.demoteBitfields(c, &res) {
		res.Passes++
		r.reorganizeBitfields(c, &res)
	}

	for res.Passes < r.maxPasses {
		res.Passes++
		c.FindHoles(cu)
		if r.fillHoles(c, &res) {
			continue
		}
		if c.NrHoles() == 0 || !r.compact(c, &res) {
			break
		}
	}
	c.FindHoles(cu)
	res.Size = c.Size
	return res
}

// fillHoles 依次对每个空洞尝试后面第一个放得下的块, 有尾部填充时再尝试最后一个块
func (r *Reorganizer) fillHoles(c *Class, res *Result) bool {
	cu := r.cu
	lastHead := c.blockHead(len(c.Members) - 1)
	for i, m := range c.Members {
		if m.Hole == 0 {
			continue
		}
		// 紧跟其后的成员不动, 它前面的空洞多半是显式的对齐要求
		if j := c.findNextHoleOfSize(cu, i); j > i+1 && r.tryMove(c, res, i, j) {
			return true
		}
		if c.Padding > 0 && lastHead > i+1 && r.tryMove(c, res, i, lastHead) {
			return true
		}
	}
	return false
}

// compact 把最后一个放得下的块移到空洞处, 空闲空间推向结构体末尾
func (r *Reorganizer) compact(c *Class, res *Result) bool {
	for i, m := range c.Members {
		if m.Hole == 0 {
			continue
		}
		if j := c.findLastMemberOfSize(r.cu, i); j > i+1 && r.tryMove(c, res, i, j) {
			return true
		}
	}
	return false
}

// tryMove 把 head 处的块移到 dest 之后, 只有布局严格变好时才保留
func (r *Reorganizer) tryMove(c *Class, res *Result, dest, head int) bool {
	cu := r.cu
	offset, ok := c.fitsAfter(cu, dest, head)
	if !ok {
		return false
	}
	e := Event{
		Kind:   EventMoved,
		Class:  c.Name,
		Member: c.Members[head].Name,
		Tail:   c.Members[head+c.blockLen(head)-1].Name,
		After:  c.Members[head-1].Name,
		Dest:   c.Members[dest].Name,
	}
	before := c.score()
	snap := c.snapshot()
	c.moveMember(cu, dest, head, offset)
	if !c.score().better(before) {
		c.restore(snap)
		return false
	}
	res.Moves++
	r.emit(e)
	return true
}

// score 比较布局: 先比大小, 再比浪费的字节, 最后空闲空间越靠后越好
type score struct {
	size, waste, moment int
}

func (c *Class) score() score {
	s := score{size: c.Size, waste: c.Waste(), moment: c.Padding * c.Size}
	for _, m := range c.Members {
		s.moment += m.Hole * m.Offset
	}
	return s
}

func (s score) better(than score) bool {
	if s.size != than.size {
		return s.size < than.size
	}
	if s.waste != than.waste {
		return s.waste < than.waste
	}
	return s.moment > than.moment
}
