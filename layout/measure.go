package layout

import (
	"strings"

	"github.com/zuccha/dnd-portal-sub000/richtext"
)

// Measurer 负责测量文本宽度，由渲染后端实现。
// size 为字号（pt），返回值为英寸。
type Measurer interface {
	TextWidth(font Font, size float64, text string) float64
}

// MeasurerFunc 让普通函数满足 Measurer。
type MeasurerFunc func(font Font, size float64, text string) float64

func (f MeasurerFunc) TextWidth(font Font, size float64, text string) float64 {
	return f(font, size, text)
}

// 排版默认值。
const (
	DefaultFontSize     = 10.0 // pt
	DefaultLineHeight   = 1.2  // 字号倍数
	DefaultMinFontRatio = 0.5  // 最小字号占模板字号的比例
	DefaultFontStep     = 0.25 // pt
)

// FitSpec 是一次文本适配的全部输入。Width/Height 为英寸，
// ParagraphGap/SectionGap 以 em 计（乘以当前字号）。
type FitSpec struct {
	Font          Font
	FontSize      float64 // 允许的最大字号
	TextTransform string
	Color         Color
	Patterns      []richtext.Pattern

	Width  float64
	Height float64

	LineHeight   float64
	ParagraphGap float64
	SectionGap   float64
	AlignH       string
	AlignV       string

	Heading      richtext.Style // 以 # 开头的标题行
	MinFontRatio float64
	FontStep     float64
}

func (s FitSpec) withDefaults() FitSpec {
	if s.FontSize <= 0 {
		s.FontSize = DefaultFontSize
	}
	if s.LineHeight <= 0 {
		s.LineHeight = DefaultLineHeight
	}
	if s.MinFontRatio <= 0 || s.MinFontRatio > 1 {
		s.MinFontRatio = DefaultMinFontRatio
	}
	if s.FontStep <= 0 {
		s.FontStep = DefaultFontStep
	}
	if s.Heading.IsZero() {
		s.Heading = richtext.Style{FontWeight: "bold"}
	}
	return s
}

// MinFontSize 返回缩小字号的下限。
func (s FitSpec) MinFontSize() float64 {
	s = s.withDefaults()
	return s.FontSize * s.MinFontRatio
}

// normalizeAlign 统一对齐写法，top/left 视为 start。
func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return "center"
	case "end", "right", "bottom":
		return "end"
	default:
		return "start"
	}
}

// alignFactor 把对齐方式转换为剩余空间的分配比例。
func alignFactor(v string) float64 {
	switch normalizeAlign(v) {
	case "center":
		return 0.5
	case "end":
		return 1
	default:
		return 0
	}
}
