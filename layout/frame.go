package layout

import (
	"fmt"
)

// Frame 描述卡牌的固定装饰：名称、描述行、页脚、信息角标与侧边箭头。
// 文本字段是模板字符串，渲染时用数据记录插值。长度单位为英寸，字号为 pt。
type Frame struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor,omitempty"`
	Footer     string `json:"footer,omitempty"`
	Info       string `json:"info,omitempty"`
	Arrow      string `json:"arrow,omitempty"`

	FontFamily string `json:"fontFamily,omitempty"`

	Padding          float64 `json:"padding,omitempty"`
	TitleHeight      float64 `json:"titleHeight,omitempty"`
	DescriptorHeight float64 `json:"descriptorHeight,omitempty"`
	FooterHeight     float64 `json:"footerHeight,omitempty"`
	CompactHeight    float64 `json:"compactHeight,omitempty"`
	InfoWidth        float64 `json:"infoWidth,omitempty"`
	ArrowWidth       float64 `json:"arrowWidth,omitempty"`
	ArrowHeight      float64 `json:"arrowHeight,omitempty"`

	TitleSize      float64 `json:"titleSize,omitempty"`
	DescriptorSize float64 `json:"descriptorSize,omitempty"`
	FooterSize     float64 `json:"footerSize,omitempty"`

	TextColor          Color   `json:"textColor"`
	AccentColor        Color   `json:"accentColor"`
	SeparatorColor     Color   `json:"separatorColor"`
	SeparatorThickness float64 `json:"separatorThickness,omitempty"`
}

func (f Frame) withDefaults() Frame {
	defaults := []struct {
		v   *float64
		def float64
	}{
		{&f.Padding, 0.1},
		{&f.TitleHeight, 0.22},
		{&f.DescriptorHeight, 0.14},
		{&f.FooterHeight, 0.12},
		{&f.CompactHeight, 0.18},
		{&f.InfoWidth, 0.6},
		{&f.ArrowWidth, 0.25},
		{&f.ArrowHeight, 0.22},
		{&f.TitleSize, 11},
		{&f.DescriptorSize, 7},
		{&f.FooterSize, 5.5},
		{&f.SeparatorThickness, 0.01},
	}
	for _, d := range defaults {
		if *d.v <= 0 {
			*d.v = d.def
		}
	}
	return f
}

// Header 返回第一页标题区（含描述行和分隔线下方的留白）的底边。
func (f Frame) Header() float64 {
	f = f.withDefaults()
	return f.Padding + f.TitleHeight + f.DescriptorHeight + f.Padding/2
}

// Body 返回后续页面（page >= 1）的正文区域：位于紧凑标题之下，
// 底部留出与出血等高的间隔，使每一页的卡牌高度一致。
func (f Frame) Body(size Size, bleed Bleed) Box {
	f = f.withDefaults()
	top := f.Padding + f.CompactHeight + f.Padding/2
	bottom := size.H - f.Padding - bleed.H
	return Box{
		X: f.Padding,
		Y: top,
		W: size.W - 2*f.Padding,
		H: max(0, bottom-top),
	}
}

// frameText 把一行模板文本排入指定区域。
type frameText struct {
	text  string
	box   Box
	size  float64
	font  Font
	color Color
	align string
}

// Elements 生成第 page 页（共 count 页）的框架图元。interp 用于插值模板文本。
func (f Frame) Elements(size Size, page, count int, interp func(string) string, m Measurer) []Element {
	f = f.withDefaults()
	var out []Element
	texts := make([]frameText, 0, 5)
	inner := size.W - 2*f.Padding
	sep := func(y float64) {
		out = append(out, Element{Line: &Line{
			X1: f.Padding, Y1: y, X2: size.W - f.Padding, Y2: y,
			Color: f.SeparatorColor, Width: f.SeparatorThickness,
		}})
	}

	if page > 0 {
		indicator := fmt.Sprintf("%d / %d", page+1, count)
		row := Box{X: f.Padding, Y: f.Padding, W: inner, H: f.CompactHeight}
		texts = append(texts,
			frameText{text: interp(f.Name), box: Box{X: row.X, Y: row.Y, W: inner * 0.75, H: row.H}, size: f.DescriptorSize + 1, font: Font{Family: f.FontFamily, Weight: "bold"}, color: f.TextColor},
			frameText{text: indicator, box: Box{X: row.X + inner*0.75, Y: row.Y, W: inner * 0.25, H: row.H}, size: f.DescriptorSize, font: Font{Family: f.FontFamily}, color: f.TextColor, align: "end"},
		)
		out = append(out, f.layoutTexts(texts, m)...)
		sep(f.Padding + f.CompactHeight)
		return out
	}

	titleW := inner
	if arrow := interp(f.Arrow); arrow != "" {
		titleW -= f.ArrowWidth
		tab := Box{X: size.W - f.ArrowWidth, Y: f.Padding, W: f.ArrowWidth, H: f.ArrowHeight}
		accent := f.AccentColor
		out = append(out, Element{Rect: &Rect{X: tab.X, Y: tab.Y, Width: tab.W, Height: tab.H, FillColor: &accent}})
		texts = append(texts, frameText{text: arrow, box: tab, size: f.DescriptorSize, font: Font{Family: f.FontFamily, Weight: "bold"}, color: White, align: "center"})
	}
	texts = append(texts, frameText{
		text: interp(f.Name), box: Box{X: f.Padding, Y: f.Padding, W: titleW, H: f.TitleHeight},
		size: f.TitleSize, font: Font{Family: f.FontFamily, Weight: "bold"}, color: f.TextColor,
	})

	descY := f.Padding + f.TitleHeight
	descW := inner
	if info := interp(f.Info); info != "" {
		descW -= f.InfoWidth
		ribbon := Box{X: size.W - f.Padding - f.InfoWidth, Y: descY, W: f.InfoWidth, H: f.DescriptorHeight}
		accent := f.AccentColor
		out = append(out, Element{Rect: &Rect{X: ribbon.X, Y: ribbon.Y, Width: ribbon.W, Height: ribbon.H, FillColor: &accent}})
		texts = append(texts, frameText{text: info, box: ribbon, size: f.DescriptorSize, font: Font{Family: f.FontFamily, Weight: "bold"}, color: White, align: "center"})
	}
	texts = append(texts, frameText{
		text: interp(f.Descriptor), box: Box{X: f.Padding, Y: descY, W: descW, H: f.DescriptorHeight},
		size: f.DescriptorSize, font: Font{Family: f.FontFamily, Style: "italic"}, color: f.TextColor,
	})
	out = append(out, f.layoutTexts(texts, m)...)
	sep(descY + f.DescriptorHeight)

	if footer := interp(f.Footer); footer != "" {
		fy := size.H - f.Padding - f.FooterHeight
		sep(fy)
		out = append(out, f.layoutTexts([]frameText{{
			text: footer, box: Box{X: f.Padding, Y: fy, W: inner, H: f.FooterHeight},
			size: f.FooterSize, font: Font{Family: f.FontFamily}, color: f.TextColor, align: "end",
		}}, m)...)
	}
	return out
}

func (f Frame) layoutTexts(texts []frameText, m Measurer) []Element {
	var out []Element
	for _, ft := range texts {
		if ft.text == "" {
			continue
		}
		res := Fit(ft.text, FitSpec{
			Font:     ft.font,
			FontSize: ft.size,
			Color:    ft.color,
			Width:    ft.box.W,
			Height:   ft.box.H,
			AlignH:   ft.align,
			AlignV:   "center",
		}, m)
		for i := range res.Chunks {
			c := res.Chunks[i]
			c.X += ft.box.X
			c.Y += ft.box.Y
			out = append(out, Element{Text: &c})
		}
	}
	return out
}
