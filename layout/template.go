package layout

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zuccha/dnd-portal-sub000/dsl"
	"github.com/zuccha/dnd-portal-sub000/richtext"
)

// ParseTemplate 解析 DSL 模板并转换为 Layout。
func ParseTemplate(r io.Reader) (*Layout, error) {
	doc, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析模板 DSL 失败: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument 把 DSL 语法树转换为 Layout 并校验。
func FromDocument(doc *dsl.Document) (*Layout, error) {
	if doc == nil || doc.Body == nil {
		return nil, fmt.Errorf("%w: 文档为空", ErrInvalidLayout)
	}
	l := &Layout{Name: doc.Name, Version: doc.Version, Bleed: Bleed{Color: White}}
	for _, cmd := range doc.Body.Commands("") {
		var err error
		switch cmd.Name {
		case "size":
			l.Size, err = parseSize(cmd)
		case "bleed":
			l.Bleed, err = parseBleed(cmd)
		case "frame":
			var f Frame
			f, err = parseFrame(cmd.Block.Attrs())
			l.Frame = &f
		case string(ItemBox), string(ItemLine), string(ItemImage), string(ItemText):
			var it Item
			it, err = parseItem(cmd)
			if err == nil {
				if _, dup := l.ByID[it.ID]; dup {
					err = fmt.Errorf("%w: 元素 id %s 重复（第 %d 行）", ErrInvalidItem, it.ID, cmd.Pos.Line)
				} else {
					l.Add(it)
				}
			}
		default:
			err = fmt.Errorf("%w: 未知指令 %s（第 %d 行）", ErrInvalidLayout, cmd.Name, cmd.Pos.Line)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

func parseSize(cmd *dsl.Command) (Size, error) {
	w, okW := ParseLength(cmd.Arg(0))
	h, okH := ParseLength(cmd.Arg(1))
	if !okW || !okH {
		return Size{}, fmt.Errorf("%w: size 需要两个长度（第 %d 行）", ErrInvalidLayout, cmd.Pos.Line)
	}
	if w.Value <= 0 || h.Value <= 0 {
		return Size{}, fmt.Errorf("%w: size %s x %s 必须为正（第 %d 行）", ErrInvalidLayout, w, h, cmd.Pos.Line)
	}
	return Size{W: w.Inches(), H: h.Inches()}, nil
}

// parseBleed 支持 `bleed 0.05in [0.05in] [visible|hidden] [#color]` 以及块内属性。
func parseBleed(cmd *dsl.Command) (Bleed, error) {
	b := Bleed{Color: White}
	var lengths []float64
	for _, arg := range cmd.Args {
		switch {
		case arg.Type == "Color":
			c, err := ParseColor(arg.Value)
			if err != nil {
				return b, err
			}
			b.Color = c
		case arg.Value == "visible":
			b.Visible = true
		case arg.Value == "hidden":
			b.Visible = false
		default:
			v, ok := ParseLength(arg.Value)
			if !ok {
				return b, fmt.Errorf("%w: bleed 参数 %q 无法解析（第 %d 行）", ErrInvalidLayout, arg.Value, cmd.Pos.Line)
			}
			lengths = append(lengths, v.Inches())
		}
	}
	switch len(lengths) {
	case 0:
	case 1:
		b.W, b.H = lengths[0], lengths[0]
	default:
		b.W, b.H = lengths[0], lengths[1]
	}
	a := attrs(cmd.Block.Attrs())
	b.W = a.length("w", b.W)
	b.H = a.length("h", b.H)
	b.Visible = a.bool("visible", b.Visible)
	var err error
	b.Color, err = a.color("color", b.Color)
	return b, err
}

func parseFrame(raw map[string]string) (Frame, error) {
	a := attrs(raw)
	f := Frame{
		Name:               a.str("name", ""),
		Descriptor:         a.str("descriptor", ""),
		Footer:             a.str("footer", ""),
		Info:               a.str("info", ""),
		Arrow:              a.str("arrow", ""),
		FontFamily:         a.str("fontfamily", a.str("font", "")),
		Padding:            a.length("padding", 0),
		TitleHeight:        a.length("titleheight", 0),
		DescriptorHeight:   a.length("descriptorheight", 0),
		FooterHeight:       a.length("footerheight", 0),
		CompactHeight:      a.length("compactheight", 0),
		InfoWidth:          a.length("infowidth", 0),
		ArrowWidth:         a.length("arrowwidth", 0),
		ArrowHeight:        a.length("arrowheight", 0),
		TitleSize:          a.points("titlesize", 0),
		DescriptorSize:     a.points("descriptorsize", 0),
		FooterSize:         a.points("footersize", 0),
		SeparatorThickness: a.length("separatorthickness", 0),
	}
	var err error
	if f.TextColor, err = a.color("textcolor", Black); err != nil {
		return f, err
	}
	if f.AccentColor, err = a.color("accentcolor", Color{R: 122, G: 31, B: 31}); err != nil {
		return f, err
	}
	if f.SeparatorColor, err = a.color("separatorcolor", f.AccentColor); err != nil {
		return f, err
	}
	return f, nil
}

func parseItem(cmd *dsl.Command) (Item, error) {
	id := cmd.Arg(0)
	if id == "" {
		return Item{}, fmt.Errorf("%w: %s 缺少 id（第 %d 行）", ErrInvalidItem, cmd.Name, cmd.Pos.Line)
	}
	a := attrs(cmd.Block.Attrs())
	it := Item{
		Type:    ItemType(cmd.Name),
		ID:      id,
		Visible: a.bool("visible", true),
		Scope:   Scope(a.str("scope", string(ScopeFirst))),
		X:       a.length("x", 0),
		Y:       a.length("y", 0),
		W:       a.length("w", a.length("width", 0)),
		H:       a.length("h", a.length("height", 0)),
	}
	var err error
	switch it.Type {
	case ItemBox:
		it.StrokeWidth = a.length("strokewidth", 0)
		if it.Fill, err = a.optColor("fill"); err != nil {
			return it, err
		}
		if it.Stroke, err = a.optColor("stroke"); err != nil {
			return it, err
		}
	case ItemLine:
		it.X0, it.Y0 = a.length("x0", 0), a.length("y0", 0)
		it.X1, it.Y1 = a.length("x1", 0), a.length("y1", 0)
		it.Thickness = a.length("thickness", Hairline)
		if it.Color, err = a.color("color", Black); err != nil {
			return it, err
		}
	case ItemImage:
		it.Source = a.str("source", a.str("src", ""))
	case ItemText:
		it.Text = a.str("text", cmd.Block.Text())
		it.FontFamily = a.str("fontfamily", a.str("font", ""))
		it.FontSize = a.points("fontsize", a.points("size", DefaultFontSize))
		it.FontWeight = a.str("fontweight", "")
		it.FontStyle = a.str("fontstyle", "")
		it.TextTransform = a.str("texttransform", "")
		it.LineHeight = a.factor("lineheight", DefaultLineHeight)
		it.ParagraphGap = a.factor("paragraphgap", 0)
		it.SectionGap = a.factor("sectiongap", 0)
		it.AlignH = normalizeAlign(a.str("alignh", "start"))
		it.AlignV = normalizeAlign(a.str("alignv", "start"))
		it.Flow = a.bool("flow", false)
		if it.TextColor, err = a.color("textcolor", Black); err != nil {
			return it, err
		}
		if it.Patterns, err = parsePatterns(cmd.Block); err != nil {
			return it, err
		}
	}
	return it, nil
}

// parsePatterns 读取 text 块内的 pattern 与 symbol 子指令，保持声明顺序。
func parsePatterns(block *dsl.Block) ([]richtext.Pattern, error) {
	var out []richtext.Pattern
	for _, cmd := range block.Commands("") {
		if cmd.Name != "pattern" && cmd.Name != "symbol" {
			continue
		}
		delim := cmd.Arg(0)
		if delim == "" {
			return nil, fmt.Errorf("%w: %s 缺少分隔符（第 %d 行）", ErrInvalidItem, cmd.Name, cmd.Pos.Line)
		}
		a := attrs(cmd.Block.Attrs())
		p := richtext.Pattern{
			Type:          richtext.PatternType(a.str("type", string(richtext.TypeText))),
			Delimiter:     delim,
			DelimiterMode: richtext.DelimiterMode(a.str("mode", a.str("delimitermode", string(richtext.Exclude)))),
		}
		if cmd.Name == "symbol" {
			p.Type = richtext.TypeSymbol
		}
		if p.Type == richtext.TypeSymbol {
			p.SymbolPath = a.str("path", a.str("symbolpath", ""))
			p.SymbolShadow = a.bool("shadow", a.bool("symbolshadow", false))
		} else {
			p.Styles = richtext.Style{
				FontWeight:    a.str("fontweight", ""),
				FontStyle:     a.str("fontstyle", ""),
				TextTransform: a.str("texttransform", ""),
			}
			if c := a.str("textcolor", a.str("color", "")); c != "" {
				parsed, err := ParseColor(c)
				if err != nil {
					return nil, err
				}
				p.Styles.TextColorCustom = true
				p.Styles.TextColor = parsed.Hex()
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// attrs 包装归一化后的属性表，提供带默认值的类型化读取。
type attrs map[string]string

func (a attrs) str(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

func (a attrs) length(key string, def float64) float64 {
	if l, ok := ParseLength(a[key]); ok {
		return l.Inches()
	}
	return def
}

func (a attrs) points(key string, def float64) float64 {
	if l, ok := ParseLength(a[key]); ok && l.Value > 0 {
		return l.Points()
	}
	return def
}

func (a attrs) factor(key string, def float64) float64 {
	if f, ok := ParseFactor(a[key]); ok {
		return f
	}
	return def
}

func (a attrs) bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func (a attrs) color(key string, def Color) (Color, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	return ParseColor(v)
}

func (a attrs) optColor(key string) (*Color, error) {
	v, ok := a[key]
	if !ok || v == "" || v == "none" {
		return nil, nil
	}
	c, err := ParseColor(v)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
