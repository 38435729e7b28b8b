package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// UnmarshalJSON 让缺省的 visible 与 scope 取默认值（可见、仅第一页）。
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	aux := plain{Visible: true, Scope: ScopeFirst}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*it = Item(aux)
	return nil
}

// OnPage 判断元素是否绘制在第 page 页。
func (it Item) OnPage(page int) bool {
	if !it.Visible {
		return false
	}
	return page == 0 || it.Scope == ScopeAll
}

// validate 检查元素的类型与尺寸。
func (it Item) validate() error {
	switch it.Type {
	case ItemBox, ItemImage, ItemText:
		if it.W < 0 || it.H < 0 {
			return fmt.Errorf("%w: %s 的尺寸不能为负数", ErrInvalidItem, it.ID)
		}
	case ItemLine:
	default:
		return fmt.Errorf("%w: %s 的类型 %q 未知", ErrInvalidItem, it.ID, it.Type)
	}
	switch it.Scope {
	case "", ScopeFirst, ScopeAll:
	default:
		return fmt.Errorf("%w: %s 的 scope %q 未知", ErrInvalidItem, it.ID, it.Scope)
	}
	if it.Flow && it.Type != ItemText {
		return fmt.Errorf("%w: 只有文本元素可以分页（%s）", ErrInvalidItem, it.ID)
	}
	return nil
}

// FitSpec 把文本元素的样式转换为排版输入，文本框取元素自身的尺寸。
func (it Item) FitSpec() FitSpec {
	return FitSpec{
		Font:          Font{Family: it.FontFamily, Weight: it.FontWeight, Style: it.FontStyle},
		FontSize:      it.FontSize,
		TextTransform: it.TextTransform,
		Color:         it.TextColor,
		Patterns:      it.Patterns,
		Width:         it.W,
		Height:        it.H,
		LineHeight:    it.LineHeight,
		ParagraphGap:  it.ParagraphGap,
		SectionGap:    it.SectionGap,
		AlignH:        it.AlignH,
		AlignV:        it.AlignV,
	}
}

// Box 返回元素的盒模型。
func (it Item) Box() Box { return Box{X: it.X, Y: it.Y, W: it.W, H: it.H} }

// Validate 检查模板尺寸与所有元素，且最多只有一个分页文本元素。
func (l *Layout) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: 模板为空", ErrInvalidLayout)
	}
	if l.Size.W <= 0 || l.Size.H <= 0 {
		return fmt.Errorf("%w: 卡牌尺寸 %gx%g 无效", ErrInvalidLayout, l.Size.W, l.Size.H)
	}
	if l.Bleed.W < 0 || l.Bleed.H < 0 {
		return fmt.Errorf("%w: 出血不能为负数", ErrInvalidLayout)
	}
	flows := 0
	for _, id := range l.IDs {
		it, ok := l.ByID[id]
		if !ok {
			return fmt.Errorf("%w: ids 中的 %s 在 byId 中不存在", ErrInvalidLayout, id)
		}
		if err := it.validate(); err != nil {
			return err
		}
		if it.Flow && it.Visible {
			flows++
		}
	}
	if flows > 1 {
		return fmt.Errorf("%w: 最多只能有一个分页文本元素，实际 %d 个", ErrInvalidLayout, flows)
	}
	return nil
}

// flowItem 返回可见的分页文本元素。
func (l *Layout) flowItem() (Item, bool) {
	for _, it := range l.Ordered() {
		if it.Flow && it.Visible && it.Type == ItemText {
			return it, true
		}
	}
	return Item{}, false
}

// DecodeLayout 从 JSON 读取模板并校验。
func DecodeLayout(r io.Reader) (*Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("解析模板 JSON 失败: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLayout 从文件读取模板，.json 之外的扩展名按 DSL 解析。
func LoadLayout(path string) (*Layout, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开模板文件 %s: %w", path, err)
	}
	defer file.Close()
	if isJSONPath(path) {
		return DecodeLayout(file)
	}
	return ParseTemplate(file)
}
