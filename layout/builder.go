package layout

import (
	"fmt"

	"go.uber.org/zap"
)

// BuildCard 使用数据记录填充模板，生成一张卡牌的全部页面。
// 分页文本元素溢出时追加页面；其它文本元素溢出时保留最小字号并标记 Overflow。
func BuildCard(id string, l *Layout, data any, opts BuildOptions) (*Card, error) {
	if opts.Measurer == nil {
		return nil, ErrNoMeasurer
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger().With(zap.String("card", id))
	interp := func(s string) string { return opts.interpolate(s, data) }

	pages := []Page{{}}
	if flow, ok := l.flowItem(); ok {
		first := flow.Box()
		box := func(page int) Box {
			if page == 0 || l.Frame == nil {
				return first
			}
			return l.Frame.Body(l.Size, l.Bleed)
		}
		coord := opts.Coordinator
		if coord == nil {
			coord = NewCoordinator(opts.Measurer, box, opts.OnPageCount)
		} else {
			coord.Rebox(box, [2]Box{first, box(1)})
		}
		pages = coord.Update(interp(flow.Text), flow.FitSpec())
	} else if opts.Coordinator != nil {
		opts.Coordinator.report(1, true)
	} else if opts.OnPageCount != nil {
		opts.OnPageCount(1, true)
	}

	card := &Card{ID: id, Size: l.Size, Bleed: l.Bleed, Pages: make([]CardPage, 0, len(pages))}
	for i, pg := range pages {
		cp := CardPage{Index: i, Count: len(pages)}
		if opts.Debug.Pages {
			cp.Text = pg.Text
		}
		for _, it := range l.Ordered() {
			if it.Flow && it.Visible {
				cp.Elements = appendChunks(cp.Elements, pg.Chunks)
				continue
			}
			if !it.OnPage(i) {
				continue
			}
			els, overflow, err := buildItem(it, interp, opts.Measurer)
			if err != nil {
				return nil, err
			}
			if overflow {
				cp.Overflow = true
				log.Warn("文本超出文本框，剩余内容未绘制",
					zap.String("item", it.ID),
					zap.Int("page", i))
			}
			cp.Elements = append(cp.Elements, els...)
		}
		if l.Frame != nil {
			cp.Elements = append(cp.Elements, l.Frame.Elements(l.Size, i, len(pages), interp, opts.Measurer)...)
		}
		card.Pages = append(card.Pages, cp)
	}
	log.Debug("卡牌排版完成", zap.Int("pages", len(card.Pages)))
	return card, nil
}

func buildItem(it Item, interp func(string) string, m Measurer) ([]Element, bool, error) {
	switch it.Type {
	case ItemBox:
		return []Element{{Rect: &Rect{
			X: it.X, Y: it.Y, Width: it.W, Height: it.H,
			StrokeColor: it.Stroke, StrokeWidth: it.StrokeWidth, FillColor: it.Fill,
		}}}, false, nil
	case ItemLine:
		return []Element{{Line: &Line{
			X1: it.X0, Y1: it.Y0, X2: it.X1, Y2: it.Y1,
			Color: it.Color, Width: it.Thickness,
		}}}, false, nil
	case ItemImage:
		// 资源路径为空时仍保留占位，渲染器绘制空白图片框
		return []Element{{Image: &ImageBox{
			Path: interp(it.Source), X: it.X, Y: it.Y, Width: it.W, Height: it.H,
		}}}, false, nil
	case ItemText:
		res := Fit(interp(it.Text), it.FitSpec(), m)
		for i := range res.Chunks {
			res.Chunks[i].X += it.X
			res.Chunks[i].Y += it.Y
		}
		return appendChunks(nil, res.Chunks), res.Overflow, nil
	default:
		return nil, false, fmt.Errorf("%w: %s 的类型 %q 未知", ErrInvalidItem, it.ID, it.Type)
	}
}

func appendChunks(els []Element, chunks []TextChunkRect) []Element {
	for i := range chunks {
		c := chunks[i]
		els = append(els, Element{Text: &c})
	}
	return els
}
