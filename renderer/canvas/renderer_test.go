package canvasrenderer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zuccha/dnd-portal-sub000/layout"
	"github.com/zuccha/dnd-portal-sub000/printsheet"
)

func TestTextWidthScalesWithSize(t *testing.T) {
	r := NewRenderer(".")
	font := layout.Font{Family: "Go"}
	small := r.TextWidth(font, 10, "hello world")
	large := r.TextWidth(font, 20, "hello world")
	if small <= 0 {
		t.Fatalf("expected positive width, got %v", small)
	}
	if ratio := large / small; ratio < 1.98 || ratio > 2.02 {
		t.Fatalf("width should scale linearly with size, ratio %v", ratio)
	}
	if w := r.TextWidth(font, 10, ""); w != 0 {
		t.Fatalf("empty text should have zero width, got %v", w)
	}
	// 10pt 的 "hello world" 远小于一英寸
	if small > 1 {
		t.Fatalf("width should be in inches, got %v", small)
	}
}

func TestUnknownFamilyFallsBack(t *testing.T) {
	r := NewRenderer(".")
	want := r.TextWidth(layout.Font{Family: "Go"}, 12, "Fireball")
	got := r.TextWidth(layout.Font{Family: "Inter"}, 12, "Fireball")
	if got != want {
		t.Fatalf("unknown family should measure with the default family: %v != %v", got, want)
	}
	if bold := r.TextWidth(layout.Font{Family: "Go", Weight: "bold"}, 12, "Fireball"); bold <= 0 {
		t.Fatalf("expected positive bold width")
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testCard(id string) *layout.Card {
	fill := layout.Color{R: 240, G: 230, B: 200}
	stroke := layout.Black
	return &layout.Card{
		ID:    id,
		Size:  layout.Size{W: 2.5, H: 3.5},
		Bleed: layout.Bleed{Visible: true, W: 0.125, H: 0.125, Color: layout.Color{R: 120}},
		Pages: []layout.CardPage{{
			Count: 1,
			Elements: []layout.Element{
				{Rect: &layout.Rect{Width: 2.5, Height: 3.5, FillColor: &fill, StrokeColor: &stroke}},
				{Line: &layout.Line{X1: 0.1, Y1: 0.5, X2: 2.4, Y2: 0.5}},
				{Image: &layout.ImageBox{Path: "built-in:icon", X: 0.2, Y: 0.6, Width: 1, Height: 1, Shadow: true}},
				{Image: &layout.ImageBox{Path: "missing.png", X: 1.2, Y: 0.6, Width: 1, Height: 1}},
				{Text: &layout.TextChunkRect{X: 0.1, Y: 0.1, W: 1, H: 0.2, Text: "Goblin", Font: layout.Font{Family: "Go", Weight: "bold"}, FontSize: 11}},
				{Text: &layout.TextChunkRect{X: 0.1, Y: 2, W: 0.15, H: 0.15, Text: "*", FontSize: 9}},
			},
		}},
	}
}

func TestRenderWritesOnePagePerSheet(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRendererWithOptions(Options{
		BaseDir: t.TempDir(),
		Logger:  zap.New(core),
		Images:  map[string]Resource{"icon": {Bytes: pngBytes(t)}},
		Meta:    Meta{Title: "Bestiary"},
	})

	cfg := printsheet.DefaultConfig()
	cfg.BleedX, cfg.BleedY = 0.125, 0.125
	cfg.CardCropMarks.Visible = true
	cards := make([]*layout.Card, 10)
	for i := range cards {
		cards[i] = testCard("goblin")
	}
	doc, err := printsheet.Assign(cards, cfg)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(doc.Sheets) < 2 {
		t.Fatalf("expected more than one sheet, got %d", len(doc.Sheets))
	}

	out, err := r.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
	if n := logs.FilterMessage("图片加载失败，留空绘制").Len(); n != 1 {
		t.Fatalf("expected one warning for the missing image, got %d", n)
	}
	if _, ok := r.cachedImage("built-in:icon"); !ok {
		t.Fatalf("built-in image should be cached after render")
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.Render(context.Background(), nil); err != ErrEmptyDocument {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}

	doc, err := printsheet.Assign([]*layout.Card{testCard("a")}, printsheet.DefaultConfig())
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, doc); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestLoadImageSources(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.loadImage("embed:icon.png"); err == nil {
		t.Fatalf("embed images are not supported")
	}
	if _, err := r.loadImage("relative.png"); err == nil {
		t.Fatalf("relative paths need a base directory")
	}
}

func TestEmbeddedFontAlias(t *testing.T) {
	mono := Resource{Path: "embed:Go Mono"}
	r := NewRendererWithOptions(Options{Fonts: map[string]FontFamily{
		"Title": {Regular: mono, Bold: mono},
	}})
	want := r.TextWidth(layout.Font{Family: "Go Mono"}, 12, "iiii")
	got := r.TextWidth(layout.Font{Family: "title"}, 12, "iiii")
	if got != want {
		t.Fatalf("embed alias should measure like Go Mono: %v != %v", got, want)
	}
	if prop := r.TextWidth(layout.Font{Family: "Go"}, 12, "iiii"); prop >= want {
		t.Fatalf("monospaced i should be wider than proportional i: %v >= %v", want, prop)
	}
}

func TestWarnsWhenCardMarksCannotBeDrawn(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRendererWithOptions(Options{Logger: zap.New(core)})

	card := testCard("goblin")
	card.Pages[0].Elements = nil
	cfg := printsheet.DefaultConfig()
	cfg.BleedX, cfg.BleedY = 0, 0
	cfg.CardCropMarks.Visible = true
	doc, err := printsheet.Assign([]*layout.Card{card}, cfg)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := r.Render(context.Background(), doc); err != nil {
		t.Fatalf("render: %v", err)
	}
	if n := logs.FilterMessage("出血或裁切线长度为 0，卡牌裁切线不会绘制").Len(); n != 1 {
		t.Fatalf("expected one card-mark warning, got %d", n)
	}

	logs.TakeAll()
	cfg.BleedX, cfg.BleedY = 0.125, 0.125
	if doc, err = printsheet.Assign([]*layout.Card{card}, cfg); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := r.Render(context.Background(), doc); err != nil {
		t.Fatalf("render: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("no warning expected with bleed, got %v", logs.All())
	}
}
