package layout

import (
	"math"
)

// FitResult 是一次文本适配的输出。坐标相对文本框左上角。
type FitResult struct {
	Chunks   []TextChunkRect `json:"chunks"`
	FontSize float64         `json:"fontSize"`
	Height   float64         `json:"height"` // 所有行与段间距的总高度
	Lines    int             `json:"lines"`
	// Consumed 是已排入内容在源字符串中的结束位置，Rest 为未排入的段落。
	Consumed int     `json:"consumed"`
	Rest     []Block `json:"rest,omitempty"`
	Overflow bool    `json:"overflow,omitempty"`
}

// Fit 解析文本并寻找不超过 spec.FontSize 的最大字号，使全部内容放入文本框。
// 字号从最大值按 FontStep 递减，下限为 FontSize*MinFontRatio；
// 在下限仍放不下时尽量排入，其余内容通过 Rest 返回。
func Fit(text string, spec FitSpec, m Measurer) FitResult {
	res := FitBlocks(SplitBlocks(text, spec.Patterns), spec, m)
	if !res.Overflow {
		res.Consumed = len(text)
	}
	return res
}

// FitBlocks 与 Fit 相同，但直接接收已切分的段落，用于续排上一页剩余的内容。
func FitBlocks(blocks []Block, spec FitSpec, m Measurer) FitResult {
	spec = spec.withDefaults()
	if len(blocks) == 0 {
		return FitResult{FontSize: spec.FontSize}
	}
	t := typesetter{spec: spec, m: m}
	prepared := make([]preparedBlock, len(blocks))
	for i, b := range blocks {
		prepared[i] = prepareBlock(b)
	}

	floor := spec.MinFontSize()
	for i := 0; ; i++ {
		size := spec.FontSize - float64(i)*spec.FontStep
		if size <= floor+epsilon {
			size = floor
		}
		wrapped := t.wrapAll(prepared, size)
		if t.stackHeight(blocks, wrapped, size) <= spec.Height+epsilon {
			return t.place(blocks, wrapped, size, false)
		}
		if size == floor {
			return t.place(blocks, wrapped, size, true)
		}
	}
}

func (t typesetter) wrapAll(prepared []preparedBlock, size float64) [][]line {
	out := make([][]line, len(prepared))
	for i, pb := range prepared {
		out[i] = t.wrap(pb, size, t.spec.Width)
	}
	return out
}

// gap 返回第 i 个段落之前的额外间距，首段没有间距。
func (t typesetter) gap(blocks []Block, i int, size float64) float64 {
	if i == 0 {
		return 0
	}
	if blocks[i].Section {
		return t.spec.SectionGap * PtToIn(size)
	}
	return t.spec.ParagraphGap * PtToIn(size)
}

func (t typesetter) stackHeight(blocks []Block, wrapped [][]line, size float64) float64 {
	lh := t.lineHeight(size)
	var h float64
	for i, lines := range wrapped {
		h += t.gap(blocks, i, size) + float64(len(lines))*lh
	}
	return h
}

// place 计算每一行的位置并生成文本块。partial 为 true 时在文本框底部停止，
// 但至少排入一行以保证分页能够前进。
func (t typesetter) place(blocks []Block, wrapped [][]line, size float64, partial bool) FitResult {
	lh := t.lineHeight(size)
	type placedLine struct {
		block int
		line  line
		y     float64
	}
	var placed []placedLine
	var cursor float64
	res := FitResult{FontSize: size}

stack:
	for bi, lines := range wrapped {
		gap := t.gap(blocks, bi, size)
		for li, ln := range lines {
			need := lh
			if li == 0 {
				need += gap
			}
			if partial && len(placed) > 0 && cursor+need > t.spec.Height+epsilon {
				if li == 0 {
					res.Rest = append(res.Rest, blocks[bi:]...)
				} else {
					ri, k := ln.first()
					res.Rest = append(res.Rest, blocks[bi].restFrom(ri, k))
					res.Rest = append(res.Rest, blocks[bi+1:]...)
				}
				break stack
			}
			y := cursor + need - lh
			placed = append(placed, placedLine{block: bi, line: ln, y: y})
			cursor = y + lh
		}
	}

	res.Height = cursor
	res.Lines = len(placed)
	if len(res.Rest) > 0 {
		res.Overflow = true
		res.Consumed = res.Rest[0].Start
	} else {
		res.Consumed = blocks[len(blocks)-1].End
	}

	offY := math.Max(0, t.spec.Height-cursor) * alignFactor(t.spec.AlignV)
	fh := alignFactor(t.spec.AlignH)
	for n, pl := range placed {
		offX := math.Max(0, t.spec.Width-pl.line.width) * fh
		res.Chunks = append(res.Chunks, t.chunks(blocks[pl.block], pl.line, offX, offY+pl.y, size, n)...)
	}
	return res
}

// chunks 生成一行的文本块，同一 run 的相邻片段合并为一个块，行尾空白不绘制。
func (t typesetter) chunks(b Block, ln line, x, y, size float64, index int) []TextChunkRect {
	lh := t.lineHeight(size)
	var out []TextChunkRect
	lastRun := -1
	for si, ms := range ln.segments {
		pieces := ms.pieces
		trailing := si == len(ln.segments)-1
		for pi, p := range pieces {
			text, width := p.text, p.width
			if trailing && isTrailing(pieces, pi) {
				text, width = p.trimText, p.trimWidth
			}
			if text == "" {
				continue
			}
			r := b.Runs[p.run]
			if r.IsSymbol() {
				sym := *r.Symbol
				out = append(out, TextChunkRect{
					X: x, Y: y, W: width, H: lh,
					Text: r.Text, FontSize: size, Color: t.spec.Color, Symbol: &sym, Line: index,
				})
				lastRun = -1
				x += width
				continue
			}
			if lastRun == p.run && len(out) > 0 {
				prev := &out[len(out)-1]
				prev.Text += text
				prev.W += width
				x += width
				continue
			}
			st := t.style(b, r)
			chunk := TextChunkRect{
				X: x, Y: y, W: width, H: lh,
				Text:     text,
				Font:     t.font(st),
				FontSize: size,
				Color:    t.color(st),
				Line:     index,
			}
			if !st.IsZero() {
				chunk.Style = &st
			}
			out = append(out, chunk)
			lastRun = p.run
			x += width
		}
	}
	return out
}

// isTrailing 判断 pieces[i] 是否处于该段最后一个非空白片段或其后。
func isTrailing(pieces []piece, i int) bool {
	for j := i + 1; j < len(pieces); j++ {
		if pieces[j].trimText != "" {
			return false
		}
	}
	return true
}
