package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zuccha/dnd-portal-sub000/fonts"
	"github.com/zuccha/dnd-portal-sub000/layout"
	"github.com/zuccha/dnd-portal-sub000/printsheet"
	"github.com/zuccha/dnd-portal-sub000/renderer"
)

// 渲染错误。
var (
	ErrEmptyDocument = errors.New("canvasrenderer: 没有可渲染的纸张")
	ErrImageSource   = errors.New("canvasrenderer: 图片来源不可用")
)

// shadowAlpha 是符号阴影圆的不透明度。
const shadowAlpha = 0.3

// Renderer draws print sheets via github.com/tdewolff/canvas and measures
// text with the same font faces, so fitting and output always agree.
type Renderer struct {
	baseDir     string
	log         *zap.Logger
	concurrency int
	meta        Meta

	// injected resources
	fontBlobs  map[string]fonts.Family // by lower-cased family name
	imageBlobs map[string][]byte       // by unique name

	fontMu   sync.Mutex
	families map[string]*canvas.FontFamily
	missing  map[string]bool

	imageMu sync.Mutex
	images  map[string]image.Image
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ renderer.Backend  = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir     string
	Logger      *zap.Logger
	Fonts       map[string]FontFamily // font families by name, overriding built-in ones
	Images      map[string]Resource   // built-in images accessible via built-in:<name>
	Concurrency int                   // parallel image loads, default 4
	Meta        Meta
}

// FontFamily lists the variants of one family. Missing variants fall back to
// the closest one that is present.
type FontFamily struct {
	Regular    Resource
	Bold       Resource
	Italic     Resource
	BoldItalic Resource
}

// Resource can be provided either by Bytes or by Path. Font paths of the form
// "embed:Go Mono" select a built-in family.
type Resource struct {
	Bytes []byte
	Path  string
}

// Meta is written into the PDF document information.
type Meta struct {
	Title    string
	Subject  string
	Keywords []string
	Author   string
	Creator  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:     opts.BaseDir,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
		meta:        opts.Meta,
		fontBlobs:   map[string]fonts.Family{},
		imageBlobs:  map[string][]byte{},
		families:    map[string]*canvas.FontFamily{},
		missing:     map[string]bool{},
		images:      map[string]image.Image{},
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	for name, fam := range opts.Fonts {
		if name == "" {
			continue
		}
		r.fontBlobs[strings.ToLower(name)] = fonts.Family{
			Regular:    r.readFont(fam.Regular, fonts.Face{}),
			Bold:       r.readFont(fam.Bold, fonts.Face{Bold: true}),
			Italic:     r.readFont(fam.Italic, fonts.Face{Italic: true}),
			BoldItalic: r.readFont(fam.BoldItalic, fonts.Face{Bold: true, Italic: true}),
		}
	}
	for name, res := range opts.Images {
		if name == "" {
			continue
		}
		if data := r.readResource(res); len(data) > 0 {
			r.imageBlobs[name] = data
		}
	}
	return r
}

// readFont resolves "embed:<family>" paths to the built-in fonts and reads
// everything else like any other resource.
func (r *Renderer) readFont(res Resource, face fonts.Face) []byte {
	if len(res.Bytes) == 0 && strings.HasPrefix(res.Path, "embed:") {
		data, err := fonts.Load(res.Path, face)
		if err != nil {
			r.log.Warn("内置字体不存在", zap.String("path", res.Path), zap.Error(err))
		}
		return data
	}
	return r.readResource(res)
}

// readResource ignores read errors; a missing font falls back when used.
func (r *Renderer) readResource(res Resource) []byte {
	if len(res.Bytes) > 0 {
		return res.Bytes
	}
	if res.Path == "" {
		return nil
	}
	data, _ := os.ReadFile(r.resolvePath(res.Path))
	return data
}

func (r *Renderer) resolvePath(path string) string {
	if filepath.IsAbs(path) || r.baseDir == "" {
		return path
	}
	return filepath.Join(r.baseDir, path)
}

// TextWidth 实现 layout.Measurer：size 为 pt，返回英寸。
func (r *Renderer) TextWidth(font layout.Font, size float64, text string) float64 {
	if size <= 0 || text == "" {
		return 0
	}
	face := r.fontFace(font, size, layout.Black)
	return face.TextWidth(text) / layout.MmPerInch
}

// Render renders every sheet of doc as one PDF page.
func (r *Renderer) Render(ctx context.Context, doc *printsheet.Document) ([]byte, error) {
	if doc == nil || len(doc.Sheets) == 0 {
		return nil, ErrEmptyDocument
	}
	if err := r.preloadImages(ctx, doc); err != nil {
		return nil, err
	}
	if cm := doc.Config.CardCropMarks; cm.Visible && len(doc.Grid.CardCropMarks(0, cm.Length)) == 0 {
		// 卡牌裁切线画在出血区内，长度受出血限制
		r.log.Warn("出血或裁切线长度为 0，卡牌裁切线不会绘制",
			zap.Float64("bleedX", doc.Grid.BleedX),
			zap.Float64("bleedY", doc.Grid.BleedY),
			zap.Float64("length", cm.Length))
	}

	paper := doc.Grid.Paper
	palette := doc.Config.Palette()
	var buf bytes.Buffer
	writer := pdf.New(&buf, mm(paper.W), mm(paper.H), nil)
	r.applyMeta(writer)
	for i, sheet := range doc.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			writer.NewPage(mm(paper.W), mm(paper.H))
		}
		c := canvas.New(mm(paper.W), mm(paper.H))
		cctx := canvas.NewContext(c)
		cctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
		r.drawSheet(cctx, doc, sheet, palette)
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	r.log.Info("PDF 渲染完成",
		zap.Int("sheets", len(doc.Sheets)),
		zap.Int("pages", doc.Pages),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	if writer == nil {
		return
	}
	creator := r.meta.Creator
	if creator == "" {
		creator = "dnd-portal"
	}
	writer.SetInfo(r.meta.Title, r.meta.Subject, strings.Join(r.meta.Keywords, ", "), r.meta.Author, creator)
}

func (r *Renderer) drawSheet(ctx *canvas.Context, doc *printsheet.Document, sheet printsheet.Sheet, pal layout.Palette) {
	grid := doc.Grid
	for _, slot := range sheet.Slots {
		if slot.Card == nil || slot.Page < 0 || slot.Page >= len(slot.Card.Pages) {
			continue
		}
		card := slot.Card
		// 出血区底色：打印设置开启且卡牌模板声明了出血颜色时绘制。
		if doc.Config.BleedVisible && card.Bleed.Visible && (grid.BleedX > 0 || grid.BleedY > 0) {
			ctx.SetFillColor(colorFromLayout(pal.Apply(card.Bleed.Color)))
			ctx.SetStrokeColor(canvas.Transparent)
			ctx.SetStrokeWidth(0)
			ctx.DrawPath(mm(slot.X), mm(slot.Y), canvas.Rectangle(mm(grid.Cell.W), mm(grid.Cell.H)))
		}
		ox, oy := slot.X+grid.BleedX, slot.Y+grid.BleedY
		for _, el := range card.Pages[slot.Page].Elements {
			switch {
			case el.Rect != nil:
				r.drawRect(ctx, *el.Rect, ox, oy, pal)
			case el.Line != nil:
				r.drawLine(ctx, *el.Line, ox, oy, pal)
			case el.Image != nil:
				r.drawImage(ctx, *el.Image, ox, oy)
			case el.Text != nil:
				r.drawChunk(ctx, *el.Text, ox, oy, pal)
			}
		}
	}
	marks := append(append([]printsheet.Mark{}, sheet.PageMarks...), sheet.CardMarks...)
	if len(marks) == 0 {
		return
	}
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(colorFromLayout(pal.Apply(layout.Black)))
	ctx.SetStrokeWidth(mm(layout.Hairline))
	for _, m := range marks {
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(mm(m.X2-m.X1), mm(m.Y2-m.Y1))
		ctx.DrawPath(mm(m.X1), mm(m.Y1), p)
	}
}

// drawRect 绘制矩形，颜色为空时不填充或不描边。
func (r *Renderer) drawRect(ctx *canvas.Context, rc layout.Rect, ox, oy float64, pal layout.Palette) {
	if rc.FillColor != nil {
		ctx.SetFillColor(colorFromLayout(pal.Apply(*rc.FillColor)))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if rc.StrokeColor != nil {
		w := rc.StrokeWidth
		if w <= 0 {
			w = layout.Hairline
		}
		ctx.SetStrokeColor(colorFromLayout(pal.Apply(*rc.StrokeColor)))
		ctx.SetStrokeWidth(mm(w))
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.SetStrokeWidth(0)
	}
	ctx.DrawPath(mm(ox+rc.X), mm(oy+rc.Y), canvas.Rectangle(mm(rc.Width), mm(rc.Height)))
}

// drawLine 绘制线段，线宽缺省为一个设备像素。
func (r *Renderer) drawLine(ctx *canvas.Context, ln layout.Line, ox, oy float64, pal layout.Palette) {
	w := ln.Width
	if w <= 0 {
		w = layout.Hairline
	}
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(colorFromLayout(pal.Apply(ln.Color)))
	ctx.SetStrokeWidth(mm(w))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(mm(ln.X2-ln.X1), mm(ln.Y2-ln.Y1))
	ctx.DrawPath(mm(ox+ln.X1), mm(oy+ln.Y1), p)
}

// drawImage 按比例缩放图片放入框内并居中；加载失败的图片留空。
func (r *Renderer) drawImage(ctx *canvas.Context, box layout.ImageBox, ox, oy float64) {
	img, ok := r.cachedImage(box.Path)
	if !ok {
		return
	}
	if box.Shadow {
		drawShadow(ctx, ox+box.X, oy+box.Y, box.Width, box.Height)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return
	}
	wmm, hmm := mm(box.Width), mm(box.Height)
	dpmm := 0.0
	if wmm > 0 {
		dpmm = float64(bounds.Dx()) / wmm
	}
	if hmm > 0 {
		dpmm = math.Max(dpmm, float64(bounds.Dy())/hmm)
	}
	if dpmm <= 0 {
		dpmm = 1
	}
	x := mm(ox+box.X) + (wmm-float64(bounds.Dx())/dpmm)/2
	y := mm(oy+box.Y) + (hmm-float64(bounds.Dy())/dpmm)/2
	if wmm <= 0 {
		x = mm(ox + box.X)
	}
	if hmm <= 0 {
		y = mm(oy + box.Y)
	}
	ctx.DrawImage(x, y, img, canvas.DPMM(dpmm))
}

// drawChunk 绘制一个排版块：文本按行高垂直居中，符号块绘制为行高大小的图标。
func (r *Renderer) drawChunk(ctx *canvas.Context, chunk layout.TextChunkRect, ox, oy float64, pal layout.Palette) {
	if chunk.Symbol != nil {
		box := layout.ImageBox{Path: chunk.Symbol.Path, X: chunk.X, Y: chunk.Y, Width: chunk.W, Height: chunk.H, Shadow: chunk.Symbol.Shadow}
		r.drawImage(ctx, box, ox, oy)
		return
	}
	if strings.TrimSpace(chunk.Text) == "" || chunk.FontSize <= 0 {
		return
	}
	face := r.fontFace(chunk.Font, chunk.FontSize, pal.Apply(chunk.Color))
	metrics := face.Metrics()
	ascent, descent := math.Abs(metrics.Ascent), math.Abs(metrics.Descent)
	// 基线：行顶部加上（行高 - 字形高度）/2，再加上升部
	baseline := mm(oy+chunk.Y) + (mm(chunk.H)-(ascent+descent))/2 + ascent
	ctx.DrawText(mm(ox+chunk.X), baseline, canvas.NewTextLine(face, chunk.Text, canvas.Left))
}

// drawShadow 在框后绘制半透明圆形阴影。
func drawShadow(ctx *canvas.Context, x, y, w, h float64) {
	radius := math.Min(w, h) / 2
	if radius <= 0 {
		return
	}
	ctx.SetFillColor(canvas.RGBA(0, 0, 0, shadowAlpha))
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetStrokeWidth(0)
	ctx.DrawPath(mm(x+w/2-radius), mm(y+h/2-radius), canvas.Circle(mm(radius)))
}

// preloadImages 并发解码文档引用的全部图片与符号图标。
// 单张图片失败只记录警告，渲染时留空；只有上下文取消会中止渲染。
func (r *Renderer) preloadImages(ctx context.Context, doc *printsheet.Document) error {
	paths := imagePaths(doc)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, path := range paths {
		if _, ok := r.cachedImage(path); ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := r.loadImage(path)
			if err != nil {
				r.log.Warn("图片加载失败，留空绘制", zap.String("path", path), zap.Error(err))
				return nil
			}
			r.imageMu.Lock()
			r.images[path] = img
			r.imageMu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func imagePaths(doc *printsheet.Document) []string {
	seen := map[string]bool{}
	var paths []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, sheet := range doc.Sheets {
		for _, slot := range sheet.Slots {
			if slot.Card == nil || slot.Page < 0 || slot.Page >= len(slot.Card.Pages) {
				continue
			}
			for _, el := range slot.Card.Pages[slot.Page].Elements {
				if el.Image != nil {
					add(el.Image.Path)
				}
				if el.Text != nil && el.Text.Symbol != nil {
					add(el.Text.Symbol.Path)
				}
			}
		}
	}
	return paths
}

func (r *Renderer) cachedImage(path string) (image.Image, bool) {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	img, ok := r.images[path]
	return img, ok
}

func (r *Renderer) loadImage(orig string) (image.Image, error) {
	// built-in resources take precedence
	if strings.HasPrefix(orig, "built-in:") || strings.HasPrefix(orig, "builtin:") {
		name := strings.TrimPrefix(strings.TrimPrefix(orig, "built-in:"), "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("%w: 找不到内置图片资源 built-in:%s", ErrImageSource, name)
		}
		img, _, err := image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 built-in:%s 失败: %w", name, err)
		}
		return img, nil
	}
	if strings.HasPrefix(orig, "embed:") {
		return nil, fmt.Errorf("%w: %s（embed 仅支持内置字体）", ErrImageSource, orig)
	}
	if r.baseDir == "" && !filepath.IsAbs(orig) {
		return nil, fmt.Errorf("%w: 未指定资源目录时不允许直接使用相对路径 %s", ErrImageSource, orig)
	}
	file, err := os.Open(r.resolvePath(orig))
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", orig, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", orig, err)
	}
	return img, nil
}

func (r *Renderer) fontFace(font layout.Font, sizePt float64, col layout.Color) *canvas.FontFace {
	family := r.fontFamily(font.Family)
	return family.Face(sizePt, colorFromLayout(col), fontStyle(font), canvas.FontNormal)
}

// fontFamily 返回字体族，未知或加载失败时回退到内置默认字体族。
func (r *Renderer) fontFamily(name string) *canvas.FontFamily {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = strings.ToLower(fonts.DefaultFamily)
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if family, ok := r.families[key]; ok {
		return family
	}

	src, ok := r.fontBlobs[key]
	if !ok {
		src, ok = fonts.Lookup(key)
	}
	if ok {
		if family, err := loadFamily(key, src); err == nil {
			r.families[key] = family
			return family
		} else if !r.missing[key] {
			r.log.Warn("字体加载失败，使用默认字体", zap.String("family", name), zap.Error(err))
		}
	} else if !r.missing[key] {
		r.log.Debug("未知字体族，使用默认字体", zap.String("family", name))
	}
	r.missing[key] = true

	fallbackKey := strings.ToLower(fonts.DefaultFamily)
	if family, ok := r.families[fallbackKey]; ok {
		r.families[key] = family
		return family
	}
	def, _ := fonts.Lookup(fallbackKey)
	family, err := loadFamily(fallbackKey, def)
	if err != nil {
		// 内置字体来自 x/image，加载失败只能是程序错误
		panic(fmt.Sprintf("加载内置字体失败: %v", err))
	}
	r.families[fallbackKey] = family
	r.families[key] = family
	return family
}

// loadFamily 为四种样式各载入一份字体，缺失的变体使用最相近的数据。
func loadFamily(name string, src fonts.Family) (*canvas.FontFamily, error) {
	if len(src.Regular) == 0 && len(src.Bold) == 0 && len(src.Italic) == 0 && len(src.BoldItalic) == 0 {
		return nil, fmt.Errorf("字体族 %s 没有任何字体数据", name)
	}
	family := canvas.NewFontFamily(name)
	for _, v := range []struct {
		face  fonts.Face
		style canvas.FontStyle
	}{
		{fonts.Face{}, canvas.FontRegular},
		{fonts.Face{Bold: true}, canvas.FontBold},
		{fonts.Face{Italic: true}, canvas.FontRegular | canvas.FontItalic},
		{fonts.Face{Bold: true, Italic: true}, canvas.FontBold | canvas.FontItalic},
	} {
		data := src.Data(v.face)
		if len(data) == 0 {
			data = firstNonEmpty(src.Regular, src.Bold, src.Italic, src.BoldItalic)
		}
		if err := family.LoadFont(data, 0, v.style); err != nil {
			return nil, fmt.Errorf("载入字体 %s 失败: %w", name, err)
		}
	}
	return family, nil
}

func firstNonEmpty(blobs ...[]byte) []byte {
	for _, b := range blobs {
		if len(b) > 0 {
			return b
		}
	}
	return nil
}

func fontStyle(font layout.Font) canvas.FontStyle {
	style := canvas.FontRegular
	if font.Bold() {
		style = canvas.FontBold
	}
	if font.Italic() {
		style |= canvas.FontItalic
	}
	return style
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// mm 将英寸转换为 canvas 使用的毫米。
func mm(in float64) float64 { return layout.InToMm(in) }
