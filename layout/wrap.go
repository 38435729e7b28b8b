package layout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zuccha/dnd-portal-sub000/richtext"
)

// objectReplacement 在断行时代表一个符号图标。
const objectReplacement = "\uFFFC"

const epsilon = 1e-9

// span 是某个 run 中的一段字节区间 [start, end)。
type span struct {
	run       int
	start     int
	end       int
	wordStart bool
}

// segment 是两个断行机会之间的内容，通常是一个单词及其尾随空白。
type segment []span

// preparedBlock 缓存与字号无关的断行结果。
type preparedBlock struct {
	block    Block
	segments []segment
}

func prepareBlock(b Block) preparedBlock {
	var flat strings.Builder
	starts := make([]int, len(b.Runs)+1)
	for i, r := range b.Runs {
		starts[i] = flat.Len()
		if r.IsSymbol() {
			flat.WriteString(objectReplacement)
		} else {
			flat.WriteString(r.Text)
		}
	}
	s := flat.String()
	starts[len(b.Runs)] = len(s)

	pb := preparedBlock{block: b}
	state := -1
	pos := 0
	rest := s
	for len(rest) > 0 {
		var seg string
		seg, rest, _, state = uniseg.FirstLineSegmentInString(rest, state)
		pb.segments = append(pb.segments, sliceFlat(b, s, starts, pos, pos+len(seg)))
		pos += len(seg)
	}
	return pb
}

// sliceFlat 把拼接文本中的区间 [a, b) 映射回各个 run。
func sliceFlat(b Block, flat string, starts []int, a, e int) segment {
	var out segment
	for i := range b.Runs {
		fs, fe := starts[i], starts[i+1]
		lo, hi := max(a, fs), min(e, fe)
		if lo >= hi {
			continue
		}
		sp := span{run: i, wordStart: lo == 0 || isSpaceBefore(flat, lo)}
		if b.Runs[i].IsSymbol() {
			sp.start, sp.end = 0, len(b.Runs[i].Text)
		} else {
			sp.start, sp.end = lo-fs, hi-fs
		}
		out = append(out, sp)
	}
	return out
}

func isSpaceBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsSpace(r)
}

// explode 把超宽的单词拆成逐个字符的段，用于强制断行。
func (seg segment) explode(b Block) []segment {
	var out []segment
	for _, sp := range seg {
		if b.Runs[sp.run].IsSymbol() {
			out = append(out, segment{sp})
			continue
		}
		text := b.Runs[sp.run].Text
		first := true
		for i := sp.start; i < sp.end; {
			_, size := utf8.DecodeRuneInString(text[i:])
			out = append(out, segment{{run: sp.run, start: i, end: i + size, wordStart: first && sp.wordStart}})
			first = false
			i += size
		}
	}
	return out
}

// piece 是测量后的 span。
type piece struct {
	span
	text      string
	width     float64
	trimText  string
	trimWidth float64
}

type measuredSegment struct {
	pieces    []piece
	width     float64
	trimWidth float64 // 去掉尾随空白后的宽度
}

type line struct {
	segments []measuredSegment
	width    float64
}

// first 返回该行第一个字符所在的 run 与偏移。
func (l line) first() (int, int) {
	sp := l.segments[0].pieces[0].span
	return sp.run, sp.start
}

// typesetter 在固定字号下完成测量与贪心断行。
type typesetter struct {
	spec FitSpec
	m    Measurer
}

func (t typesetter) lineHeight(size float64) float64 { return PtToIn(size) * t.spec.LineHeight }

func (t typesetter) style(b Block, r richtext.Run) richtext.Style {
	base := richtext.Style{}
	if b.Kind == BlockHeading {
		base = t.spec.Heading
	}
	return base.Merge(r.Style)
}

func (t typesetter) font(st richtext.Style) Font {
	f := t.spec.Font
	if st.FontWeight != "" {
		f.Weight = st.FontWeight
	}
	if st.FontStyle != "" {
		f.Style = st.FontStyle
	}
	return f
}

func (t typesetter) color(st richtext.Style) Color {
	if hex, ok := st.Color(); ok {
		if c, err := ParseColor(hex); err == nil {
			return c
		}
	}
	return t.spec.Color
}

func (t typesetter) measure(b Block, seg segment, size float64) measuredSegment {
	ms := measuredSegment{pieces: make([]piece, 0, len(seg))}
	for _, sp := range seg {
		r := b.Runs[sp.run]
		p := piece{span: sp}
		if r.IsSymbol() {
			p.text, p.trimText = r.Text, r.Text
			p.width = t.lineHeight(size)
			p.trimWidth = p.width
		} else {
			st := t.style(b, r)
			transform := st.TextTransform
			if transform == "" {
				transform = t.spec.TextTransform
			}
			font := t.font(st)
			p.text = applyTransform(r.Text[sp.start:sp.end], transform, sp.wordStart)
			p.width = t.m.TextWidth(font, size, p.text)
			p.trimText = strings.TrimRightFunc(p.text, unicode.IsSpace)
			switch {
			case p.trimText == p.text:
				p.trimWidth = p.width
			case p.trimText == "":
				p.trimWidth = 0
			default:
				p.trimWidth = t.m.TextWidth(font, size, p.trimText)
			}
		}
		ms.pieces = append(ms.pieces, p)
	}
	last := -1
	for i, p := range ms.pieces {
		if p.trimText != "" {
			last = i
		}
	}
	for i, p := range ms.pieces {
		ms.width += p.width
		switch {
		case i < last:
			ms.trimWidth += p.width
		case i == last:
			ms.trimWidth += p.trimWidth
		}
	}
	return ms
}

// wrap 以贪心方式把段落排成不超过 width 的行，每行至少包含一个字符。
func (t typesetter) wrap(pb preparedBlock, size, width float64) []line {
	var lines []line
	var cur line
	var x float64
	flush := func() {
		if len(cur.segments) == 0 {
			return
		}
		cur.width = x - cur.segments[len(cur.segments)-1].width + cur.segments[len(cur.segments)-1].trimWidth
		lines = append(lines, cur)
		cur = line{}
		x = 0
	}
	var place func(seg segment, allowExplode bool)
	place = func(seg segment, allowExplode bool) {
		ms := t.measure(pb.block, seg, size)
		if len(cur.segments) > 0 && x+ms.trimWidth > width+epsilon {
			flush()
		}
		if len(cur.segments) == 0 && ms.trimWidth > width+epsilon && allowExplode {
			if parts := seg.explode(pb.block); len(parts) > 1 {
				for _, part := range parts {
					place(part, false)
				}
				return
			}
		}
		cur.segments = append(cur.segments, ms)
		x += ms.width
	}
	for _, seg := range pb.segments {
		place(seg, true)
	}
	flush()
	return lines
}

// applyTransform 处理 textTransform；capitalize 只作用于单词开头。
func applyTransform(s, transform string, wordStart bool) string {
	switch strings.ToLower(transform) {
	case "uppercase", "upper":
		return cases.Upper(language.Und).String(s)
	case "lowercase", "lower":
		return cases.Lower(language.Und).String(s)
	case "capitalize":
		title := cases.Title(language.Und, cases.NoLower)
		if wordStart {
			return title.String(s)
		}
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			return s
		}
		return s[:i] + title.String(s[i:])
	default:
		return s
	}
}
