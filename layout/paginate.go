package layout

import (
	"reflect"
)

// Box 是一个文本框的位置与尺寸（英寸）。
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// BoxFunc 返回第 page 页（从 0 开始）可用于排版的文本框。
type BoxFunc func(page int) Box

// Page 是一张卡面上的排版结果。Text 是本页实际排入的源文本，
// TextTemp 是留给后续页面的内容；所有页面的 Text 按顺序拼接等于原文。
type Page struct {
	Index    int             `json:"index"`
	Box      Box             `json:"box"`
	Text     string          `json:"text"`
	TextTemp string          `json:"textTemp,omitempty"`
	Start    int             `json:"start"`
	End      int             `json:"end"`
	FontSize float64         `json:"fontSize"`
	Chunks   []TextChunkRect `json:"chunks"`
}

// Paginate 从第 0 页开始依次适配内容，直到没有剩余文本。
// 生成的文本块坐标已加上对应页面文本框的偏移。
func Paginate(text string, spec FitSpec, box BoxFunc, m Measurer) []Page {
	blocks := SplitBlocks(text, spec.Patterns)
	start := 0
	var pages []Page
	for index := 0; ; index++ {
		b := box(index)
		s := spec
		s.Width, s.Height = b.W, b.H
		res := FitBlocks(blocks, s, m)

		end := len(text)
		if res.Overflow && res.Consumed > start {
			end = res.Consumed
		}
		for i := range res.Chunks {
			res.Chunks[i].X += b.X
			res.Chunks[i].Y += b.Y
		}
		pages = append(pages, Page{
			Index:    index,
			Box:      b,
			Text:     text[start:end],
			TextTemp: text[end:],
			Start:    start,
			End:      end,
			FontSize: res.FontSize,
			Chunks:   res.Chunks,
		})
		if end == len(text) {
			return pages
		}
		blocks = res.Rest
		start = end
	}
}

// PageCountFunc 接收页数变化；known 为 false 表示页数未知或卡牌已移除。
type PageCountFunc func(count int, known bool)

// Coordinator 在内容或排版参数变化时从第 0 页重新分页，并在页数变化时回调。
// 它不是并发安全的，调用方在同一个渲染流程中使用。
type Coordinator struct {
	m       Measurer
	box     BoxFunc
	boxKey  any
	onCount PageCountFunc

	text     string
	spec     FitSpec
	pages    []Page
	computed bool
	reported int
}

// NewCoordinator 创建分页协调器；onCount 可以为空。
func NewCoordinator(m Measurer, box BoxFunc, onCount PageCountFunc) *Coordinator {
	return &Coordinator{m: m, box: box, onCount: onCount, reported: -1}
}

// Update 在输入变化时重新分页并返回所有页面。
func (c *Coordinator) Update(text string, spec FitSpec) []Page {
	if c.computed && text == c.text && reflect.DeepEqual(spec, c.spec) {
		return c.pages
	}
	c.text, c.spec = text, spec
	c.pages = Paginate(text, spec, c.box, c.m)
	c.computed = true
	c.report(len(c.pages), true)
	return c.pages
}

// Invalidate 在文本框尺寸变化等外部原因下强制下次 Update 重新计算。
func (c *Coordinator) Invalidate() { c.computed = false }

// Rebox 更换文本框函数。key 描述决定文本框的几何参数，必须可比较；
// 与上次不同时下次 Update 重新分页。
func (c *Coordinator) Rebox(box BoxFunc, key any) {
	c.box = box
	if key != c.boxKey {
		c.boxKey = key
		c.Invalidate()
	}
}

// Pages 返回最近一次分页结果。
func (c *Coordinator) Pages() []Page { return c.pages }

// Close 报告页数未知，之后该协调器不应再使用。
func (c *Coordinator) Close() {
	c.pages = nil
	c.computed = false
	if c.onCount != nil {
		c.onCount(0, false)
	}
	c.reported = -1
}

func (c *Coordinator) report(count int, known bool) {
	if c.onCount == nil || count == c.reported {
		return
	}
	c.reported = count
	c.onCount(count, known)
}
