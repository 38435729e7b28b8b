package layout

import (
	"github.com/zuccha/dnd-portal-sub000/richtext"
)

// 该文件定义卡牌模板与排版结果，供排版计算、渲染与调试 JSON 共用。
// 所有长度单位均为英寸，字号单位为 pt。

// Size 是物理尺寸（英寸）。
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Bleed 描述裁切框之外的出血区域，两个方向独立设置。
type Bleed struct {
	Visible bool    `json:"visible"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
	Color   Color   `json:"color"`
}

// Layout 是一张卡牌的模板。Items 的插入顺序即绘制顺序。
type Layout struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Size    Size   `json:"size"`
	Bleed   Bleed  `json:"bleed"`
	Frame   *Frame `json:"frame,omitempty"`
	ItemSet
}

// ItemSet 以 ids + byId 的形式保存有序的模板元素。
type ItemSet struct {
	IDs  []string        `json:"ids"`
	ByID map[string]Item `json:"byId"`
}

// Add 追加元素；同 id 的元素会被替换但保留原位置。
func (s *ItemSet) Add(item Item) {
	if s.ByID == nil {
		s.ByID = map[string]Item{}
	}
	if _, ok := s.ByID[item.ID]; !ok {
		s.IDs = append(s.IDs, item.ID)
	}
	s.ByID[item.ID] = item
}

// Ordered 按绘制顺序返回元素，缺失的 id 会被跳过。
func (s ItemSet) Ordered() []Item {
	out := make([]Item, 0, len(s.IDs))
	for _, id := range s.IDs {
		if item, ok := s.ByID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}

// ItemType 是模板元素的类型标签（JSON 中的 _type）。
type ItemType string

const (
	ItemBox   ItemType = "box"
	ItemLine  ItemType = "line"
	ItemImage ItemType = "image"
	ItemText  ItemType = "text"
)

// Scope 决定元素出现在哪些页面上。
type Scope string

const (
	ScopeFirst Scope = "first" // 只绘制在第一页（默认）
	ScopeAll   Scope = "all"   // 每一页都绘制，例如背景与边框
)

// Item 是模板中的一个元素。X/Y/W/H 为相对裁切框左上角的盒模型，所有类型共用；
// 其余字段按 Type 生效。
type Item struct {
	Type    ItemType `json:"_type"`
	ID      string   `json:"id"`
	Visible bool     `json:"visible"`
	Scope   Scope    `json:"scope,omitempty"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`

	// box
	Fill        *Color  `json:"fill,omitempty"`
	Stroke      *Color  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`

	// line
	X0        float64 `json:"x0,omitempty"`
	Y0        float64 `json:"y0,omitempty"`
	X1        float64 `json:"x1,omitempty"`
	Y1        float64 `json:"y1,omitempty"`
	Color     Color   `json:"color,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`

	// image
	Source string `json:"source,omitempty"`

	// text
	Text          string             `json:"text,omitempty"`
	FontFamily    string             `json:"fontFamily,omitempty"`
	FontSize      float64            `json:"fontSize,omitempty"`
	FontWeight    string             `json:"fontWeight,omitempty"`
	FontStyle     string             `json:"fontStyle,omitempty"`
	TextColor     Color              `json:"textColor,omitempty"`
	TextTransform string             `json:"textTransform,omitempty"`
	LineHeight    float64            `json:"lineHeight,omitempty"`
	ParagraphGap  float64            `json:"paragraphGap,omitempty"`
	SectionGap    float64            `json:"sectionGap,omitempty"`
	AlignH        string             `json:"alignH,omitempty"`
	AlignV        string             `json:"alignV,omitempty"`
	Patterns      []richtext.Pattern `json:"patterns,omitempty"`
	Flow          bool               `json:"flow,omitempty"` // 内容溢出时分页
}

// Font 选择一个字体族中的具体字重与样式。
type Font struct {
	Family string `json:"family"`
	Weight string `json:"weight,omitempty"` // normal | bold | 100-900
	Style  string `json:"style,omitempty"`  // normal | italic
}

// Bold 判断字重是否应使用粗体字形。
func (f Font) Bold() bool {
	switch f.Weight {
	case "bold", "bolder", "600", "700", "800", "900":
		return true
	default:
		return false
	}
}

// Italic 判断是否应使用斜体字形。
func (f Font) Italic() bool { return f.Style == "italic" || f.Style == "oblique" }

// Card 是一条数据记录按模板排版后的全部页面。
type Card struct {
	ID    string     `json:"id"`
	Size  Size       `json:"size"`
	Bleed Bleed      `json:"bleed"`
	Pages []CardPage `json:"pages"`
}

// CardPage 记录一张卡面上按绘制顺序排列的图元，坐标相对裁切框左上角。
type CardPage struct {
	Index    int       `json:"index"`
	Count    int       `json:"count"`
	Elements []Element `json:"elements"`
	Overflow bool      `json:"overflow,omitempty"`
	Text     string    `json:"text,omitempty"` // 分页文本元素在本页排入的原文，仅调试时填写
}

// Chunks 返回页面中所有文本块。
func (p CardPage) Chunks() []TextChunkRect {
	var out []TextChunkRect
	for _, el := range p.Elements {
		if el.Text != nil {
			out = append(out, *el.Text)
		}
	}
	return out
}

// Element 是一个图元，四个字段中恰好一个非空。
type Element struct {
	Rect  *Rect          `json:"rect,omitempty"`
	Line  *Line          `json:"line,omitempty"`
	Image *ImageBox      `json:"image,omitempty"`
	Text  *TextChunkRect `json:"text,omitempty"`
}

// TextChunkRect 是排版算法的输出单元：一段定位好的文本或符号图标。
// Y 为所在行的顶部，H 为行高。
type TextChunkRect struct {
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	W        float64          `json:"w"`
	H        float64          `json:"h"`
	Text     string           `json:"text"`
	Font     Font             `json:"font"`
	FontSize float64          `json:"fontSize"`
	Color    Color            `json:"color"`
	Style    *richtext.Style  `json:"style,omitempty"`
	Symbol   *richtext.Symbol `json:"symbol,omitempty"`
	Line     int              `json:"line"`
}

// ImageBox 用于描述图片位置与尺寸。
type ImageBox struct {
	Path   string  `json:"path"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Shadow bool    `json:"shadow,omitempty"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽，<=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor *Color  `json:"strokeColor,omitempty"` // 为空表示不描边
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}
