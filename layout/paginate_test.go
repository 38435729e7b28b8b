package layout

import (
	"strings"
	"testing"

	"github.com/zuccha/dnd-portal-sub000/richtext"
)

const longDescription = "# Traits\n**Keen Smell.** The wolf has advantage on perception checks that rely on smell.\n" +
	"**Pack Tactics.** The wolf has advantage on an attack roll against a creature if at least one of the wolf's allies is within 5 feet.\n\n" +
	"# Actions\n**Bite.** Melee weapon attack: +4 to hit, reach 5 ft., one target. Hit: 7 (2d4 + 2) piercing damage. " +
	"If the target is a creature, it must succeed on a DC 11 Strength saving throw or be knocked prone.\n" +
	"**Howl.** Each creature within 30 feet that can hear the wolf must succeed on a DC 10 Wisdom saving throw or become frightened until the end of its next turn."

func fixedBox(b Box) BoxFunc { return func(int) Box { return b } }

func TestPaginateConservesText(t *testing.T) {
	bold := richtext.Pattern{Delimiter: "**", Styles: richtext.Style{FontWeight: "bold"}}
	spec := FitSpec{FontSize: 9, Patterns: []richtext.Pattern{bold}, ParagraphGap: 0.3, SectionGap: 0.8}
	pages := Paginate(longDescription, spec, fixedBox(Box{W: 1.6, H: 0.9}), stubMeasurer)
	if len(pages) < 2 {
		t.Fatalf("长文本应分成多页，实际 %d 页", len(pages))
	}
	var b strings.Builder
	prevEnd := 0
	for i, p := range pages {
		if p.Index != i {
			t.Fatalf("页码错误: %d != %d", p.Index, i)
		}
		if p.Start != prevEnd {
			t.Fatalf("第 %d 页起点 %d 与上一页终点 %d 不连续", i, p.Start, prevEnd)
		}
		if p.TextTemp != longDescription[p.End:] {
			t.Fatalf("第 %d 页的 textTemp 不等于剩余文本", i)
		}
		if len(p.Chunks) == 0 {
			t.Fatalf("第 %d 页没有任何文本块", i)
		}
		b.WriteString(p.Text)
		prevEnd = p.End
	}
	if b.String() != longDescription {
		t.Fatalf("按页拼接的文本与原文不一致:\n%q\n%q", b.String(), longDescription)
	}
	if pages[len(pages)-1].TextTemp != "" {
		t.Fatalf("最后一页不应再有剩余文本")
	}
}

func TestPaginateKeepsStyleAcrossPages(t *testing.T) {
	bold := richtext.Pattern{Delimiter: "**", Styles: richtext.Style{FontWeight: "bold"}}
	text := "**" + strings.Repeat("heavy ", 60) + "**"
	pages := Paginate(text, FitSpec{FontSize: 8, Patterns: []richtext.Pattern{bold}}, fixedBox(Box{W: 1, H: 0.5}), stubMeasurer)
	if len(pages) < 2 {
		t.Fatalf("期望分页，实际 %d 页", len(pages))
	}
	for _, p := range pages {
		for _, c := range p.Chunks {
			if c.Font.Weight != "bold" {
				t.Fatalf("续页的文本应保留粗体样式: %+v", c)
			}
		}
	}
}

func TestPaginateUsesPerPageBox(t *testing.T) {
	box := func(page int) Box {
		if page == 0 {
			return Box{X: 0.1, Y: 1.5, W: 1.5, H: 0.5}
		}
		return Box{X: 0.2, Y: 0.3, W: 1.5, H: 2}
	}
	pages := Paginate(longDescription, FitSpec{FontSize: 9}, box, stubMeasurer)
	if len(pages) < 2 {
		t.Fatalf("期望分页，实际 %d 页", len(pages))
	}
	for _, p := range pages {
		want := box(p.Index)
		for _, c := range p.Chunks {
			if c.X < want.X-1e-9 || c.Y < want.Y-1e-9 || c.Y+c.H > want.Y+want.H+1e-9 {
				t.Fatalf("第 %d 页文本块 %+v 不在文本框 %+v 内", p.Index, c, want)
			}
		}
	}
}

func TestPaginateEmptyTextHasOnePage(t *testing.T) {
	pages := Paginate("", FitSpec{}, fixedBox(Box{W: 1, H: 1}), stubMeasurer)
	if len(pages) != 1 || pages[0].Text != "" {
		t.Fatalf("空文本应得到一页空白: %+v", pages)
	}
}

func TestCoordinatorReportsOnChange(t *testing.T) {
	type report struct {
		count int
		known bool
	}
	var reports []report
	c := NewCoordinator(stubMeasurer, fixedBox(Box{W: 1.6, H: 0.9}), func(count int, known bool) {
		reports = append(reports, report{count, known})
	})
	spec := FitSpec{FontSize: 9}

	long := c.Update(longDescription, spec)
	c.Update(longDescription, spec)
	if len(reports) != 1 || reports[0].count != len(long) || !reports[0].known {
		t.Fatalf("相同输入不应重复回调: %+v", reports)
	}

	short := c.Update("Bite.", spec)
	if len(short) != 1 || len(reports) != 2 || reports[1].count != 1 {
		t.Fatalf("内容变化后应重新分页并回调: %+v", reports)
	}

	spec.FontSize = 8
	c.Update("Bite.", spec)
	if len(reports) != 2 {
		t.Fatalf("页数未变化时不应回调: %+v", reports)
	}

	c.Close()
	last := reports[len(reports)-1]
	if last.known {
		t.Fatalf("Close 应报告页数未知: %+v", reports)
	}
	if c.Pages() != nil {
		t.Fatalf("Close 后不应保留页面")
	}
}

func TestPaginateBoxShorterThanOneLine(t *testing.T) {
	// 文本框矮于一行时每页仍排入一行，分页按行推进直到结束
	text := "a b c"
	pages := Paginate(text, FitSpec{FontSize: 10}, fixedBox(Box{W: 0.05, H: 0.01}), stubMeasurer)
	if len(pages) != 3 {
		t.Fatalf("期望每个单词一页共 3 页，实际 %d 页", len(pages))
	}
	var joined strings.Builder
	for i, p := range pages {
		if n := len(linesOf(p.Chunks)); n != 1 {
			t.Fatalf("第 %d 页应恰好一行，实际 %d 行", i, n)
		}
		if p.FontSize != 5 {
			t.Fatalf("第 %d 页应使用最小字号，实际 %g", i, p.FontSize)
		}
		joined.WriteString(p.Text)
	}
	if joined.String() != text {
		t.Fatalf("分页文本应还原原文，实际 %q", joined.String())
	}
}
