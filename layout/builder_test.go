package layout

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zuccha/dnd-portal-sub000/binding"
)

func sampleLayout() *Layout {
	l := &Layout{
		Name:  "Creature",
		Size:  Size{W: 2.48, H: 3.48},
		Bleed: Bleed{W: 0.05, H: 0.05, Color: White},
		Frame: &Frame{Name: "<name>", Descriptor: "<kind>", Footer: "<source>", AccentColor: Color{R: 120}},
	}
	fill := Color{R: 253, G: 246, B: 227}
	l.Add(Item{Type: ItemBox, ID: "background", Visible: true, Scope: ScopeAll, W: 2.48, H: 3.48, Fill: &fill})
	l.Add(Item{Type: ItemText, ID: "stats", Visible: true, X: 0.1, Y: 0.5, W: 2.28, H: 0.3, FontSize: 8, Text: "AC <stats.ac>  HP <stats.hp>"})
	l.Add(Item{Type: ItemImage, ID: "portrait", Visible: false, Source: "<image>"})
	l.Add(Item{Type: ItemText, ID: "body", Visible: true, Flow: true, X: 0.1, Y: 0.9, W: 2.28, H: 2.2, FontSize: 9, Text: "<description>"})
	return l
}

func sampleData(description string) map[string]any {
	return map[string]any{
		"name":        "Dire Wolf",
		"kind":        "Large beast",
		"source":      "Bestiary p. 12",
		"stats":       map[string]any{"ac": 14, "hp": 37},
		"description": description,
	}
}

func TestBuildCardSinglePage(t *testing.T) {
	var counts []int
	card, err := BuildCard("wolf", sampleLayout(), sampleData("Bite. Melee weapon attack."), BuildOptions{
		Measurer:    stubMeasurer,
		OnPageCount: func(count int, known bool) { counts = append(counts, count) },
	})
	if err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	if len(card.Pages) != 1 || len(counts) != 1 || counts[0] != 1 {
		t.Fatalf("期望 1 页并回调一次，实际 pages=%d counts=%v", len(card.Pages), counts)
	}
	page := card.Pages[0]
	if page.Elements[0].Rect == nil || page.Elements[0].Rect.FillColor == nil {
		t.Fatalf("第一个图元应该是背景矩形: %+v", page.Elements[0])
	}
	var texts []string
	for _, c := range page.Chunks() {
		texts = append(texts, c.Text)
		if c.Symbol == nil && c.Y < 0 {
			t.Fatalf("文本块位置异常: %+v", c)
		}
	}
	joined := strings.Join(texts, "|")
	for _, want := range []string{"AC 14  HP 37", "Dire Wolf", "Large beast", "Bestiary p. 12", "Bite. Melee weapon attack."} {
		if !strings.Contains(joined, want) {
			t.Fatalf("缺少文本 %q，实际 %s", want, joined)
		}
	}
	for _, el := range page.Elements {
		if el.Image != nil {
			t.Fatalf("不可见的图片不应输出")
		}
	}
}

func TestBuildCardPaginatesFlowText(t *testing.T) {
	desc := strings.Repeat("The wolf circles its prey and strikes when the pack closes in. ", 40)
	interp := binding.NewInterpolator(0)
	var counts []int
	card, err := BuildCard("wolf", sampleLayout(), sampleData(desc), BuildOptions{
		Measurer:     stubMeasurer,
		Interpolator: interp,
		OnPageCount:  func(count int, known bool) { counts = append(counts, count) },
		Debug:        DebugOptions{Pages: true},
	})
	if err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	n := len(card.Pages)
	if n < 2 {
		t.Fatalf("长描述应分页，实际 %d 页", n)
	}
	if len(counts) != 1 || counts[0] != n {
		t.Fatalf("页数回调错误: %v", counts)
	}

	var consumed strings.Builder
	for i, p := range card.Pages {
		if p.Count != n || p.Index != i {
			t.Fatalf("页码信息错误: %+v", p)
		}
		consumed.WriteString(p.Text)
		if p.Elements[0].Rect == nil {
			t.Fatalf("scope=all 的背景应出现在第 %d 页", i)
		}
		joined := ""
		for _, c := range p.Chunks() {
			joined += c.Text + "|"
		}
		hasStats := strings.Contains(joined, "AC 14")
		if i == 0 && !hasStats {
			t.Fatalf("第一页缺少 stats 文本")
		}
		if i > 0 {
			if hasStats {
				t.Fatalf("scope=first 的元素不应出现在第 %d 页", i)
			}
			if want := "/ "; !strings.Contains(joined, want) {
				t.Fatalf("续页应有页码指示，实际 %s", joined)
			}
			body := sampleLayout().Frame.Body(card.Size, card.Bleed)
			for _, c := range p.Chunks() {
				if c.Y+c.H > card.Size.H+1e-9 {
					t.Fatalf("续页文本超出卡牌高度: %+v", c)
				}
			}
			if body.Y+body.H > card.Size.H-card.Bleed.H+1e-9 {
				t.Fatalf("续页正文区域没有留出底部间隔: %+v", body)
			}
		}
	}
	if consumed.String() != desc {
		t.Fatalf("各页排入的文本拼接后应等于原描述")
	}
	if interp.Len() == 0 {
		t.Fatalf("插值结果应被缓存")
	}
}

func TestBuildCardFlagsOverflowingText(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := sampleLayout()
	stats := l.ByID["stats"]
	stats.Text = strings.Repeat("Resistances: fire, cold, lightning. ", 20)
	l.Add(stats)
	card, err := BuildCard("wolf", l, sampleData("short"), BuildOptions{Measurer: stubMeasurer, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	if !card.Pages[0].Overflow {
		t.Fatalf("非分页文本溢出时应标记 Overflow")
	}
	if logs.Len() != 1 {
		t.Fatalf("期望一条警告日志，实际 %d", logs.Len())
	}
}

func TestBuildCardErrors(t *testing.T) {
	if _, err := BuildCard("x", sampleLayout(), nil, BuildOptions{}); !errors.Is(err, ErrNoMeasurer) {
		t.Fatalf("缺少 Measurer 应返回 ErrNoMeasurer，实际 %v", err)
	}
	l := sampleLayout()
	second := l.ByID["body"]
	second.ID = "body2"
	l.Add(second)
	if _, err := BuildCard("x", l, nil, BuildOptions{Measurer: stubMeasurer}); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("两个分页元素应返回 ErrInvalidLayout，实际 %v", err)
	}
	bad := sampleLayout()
	bad.Add(Item{Type: "circle", ID: "c", Visible: true})
	if _, err := BuildCard("x", bad, nil, BuildOptions{Measurer: stubMeasurer}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("未知类型应返回 ErrInvalidItem，实际 %v", err)
	}
}

func TestLayoutJSONDefaults(t *testing.T) {
	raw := `{
	  "size": {"w": 2.5, "h": 3.5},
	  "bleed": {"visible": true, "w": 0.1, "h": 0.05, "color": "#ffcc00"},
	  "ids": ["bg", "hidden", "body"],
	  "byId": {
	    "bg": {"_type": "box", "id": "bg", "w": 2.5, "h": 3.5, "fill": "#102030", "scope": "all"},
	    "hidden": {"_type": "line", "id": "hidden", "visible": false},
	    "body": {"_type": "text", "id": "body", "text": "<a.b>", "flow": true, "w": 2, "h": 2,
	      "patterns": [{"delimiter": "*", "delimiterMode": "exclude", "styles": {"fontStyle": "italic"}}]}
	  }
	}`
	l, err := DecodeLayout(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("DecodeLayout 失败: %v", err)
	}
	if !l.ByID["bg"].Visible || l.ByID["bg"].Scope != ScopeAll {
		t.Fatalf("visible 缺省应为 true: %+v", l.ByID["bg"])
	}
	if l.ByID["hidden"].Visible {
		t.Fatalf("显式 visible=false 应保留")
	}
	if l.ByID["body"].Scope != ScopeFirst {
		t.Fatalf("scope 缺省应为 first")
	}
	if l.Bleed.Color != (Color{R: 255, G: 204}) || *l.ByID["bg"].Fill != (Color{R: 16, G: 32, B: 48}) {
		t.Fatalf("颜色解析错误: %+v %+v", l.Bleed.Color, l.ByID["bg"].Fill)
	}
	if got := l.Ordered(); len(got) != 3 || got[2].ID != "body" {
		t.Fatalf("元素顺序应与 ids 一致: %+v", got)
	}

	out, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}
	if !strings.Contains(string(out), `"_type":"box"`) || !strings.Contains(string(out), `"#102030"`) {
		t.Fatalf("输出 JSON 缺少类型标签或十六进制颜色: %s", out)
	}
}

func TestWriteDebugJSON(t *testing.T) {
	card, err := BuildCard("wolf", sampleLayout(), sampleData("Bite."), BuildOptions{Measurer: stubMeasurer})
	if err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cards.json")
	if err := WriteDebugJSON([]*Card{card}, path); err != nil {
		t.Fatalf("WriteDebugJSON 失败: %v", err)
	}
	l, err := LoadLayout(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil || l != nil {
		t.Fatalf("不存在的模板文件应返回错误")
	}
}

func TestBuildCardReusesCoordinator(t *testing.T) {
	desc := strings.Repeat("The wolf circles its prey and strikes when the pack closes in. ", 40)
	var counts []int
	coord := NewCoordinator(stubMeasurer, nil, func(count int, known bool) { counts = append(counts, count) })
	opts := BuildOptions{Measurer: stubMeasurer, Coordinator: coord}

	l := sampleLayout()
	first, err := BuildCard("wolf", l, sampleData(desc), opts)
	if err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	before := coord.Pages()
	second, err := BuildCard("wolf", l, sampleData(desc), opts)
	if err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	if len(counts) != 1 || counts[0] != len(first.Pages) {
		t.Fatalf("输入未变化时不应重复回调: %v", counts)
	}
	if len(second.Pages) != len(first.Pages) || &coord.Pages()[0] != &before[0] {
		t.Fatalf("输入未变化时应复用分页结果")
	}

	body := l.ByID["body"]
	body.H = 1
	l.Add(body)
	if _, err := BuildCard("wolf", l, sampleData(desc), opts); err != nil {
		t.Fatalf("BuildCard 失败: %v", err)
	}
	if got := coord.Pages()[0].Box.H; got != 1 {
		t.Fatalf("文本框变化后应重新分页，首页高度 %v", got)
	}

	coord.Close()
	if counts[len(counts)-1] != 0 {
		t.Fatalf("Close 应报告未知页数: %v", counts)
	}
}
