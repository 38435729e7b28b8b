// Package printsheet tiles finished card faces onto paper sheets.
//
// All lengths are inches. A cell on the sheet is the card's trim size plus
// the configured bleed on every side; the grid of cells is centred on the
// paper and crop marks are placed on the 1/96 in device pixel grid.
package printsheet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zuccha/dnd-portal-sub000/layout"
)

var (
	// ErrUnknownPaper is returned for a paper type missing from Papers.
	ErrUnknownPaper = errors.New("printsheet: unknown paper type")
	// ErrUnknownOrientation is returned for a layout other than portrait or landscape.
	ErrUnknownOrientation = errors.New("printsheet: unknown orientation")
	// ErrCardTooLarge is returned when not even one card fits on the paper.
	ErrCardTooLarge = errors.New("printsheet: card does not fit on paper")
	// ErrInvalidCard is returned for a non-positive card size or negative bleed.
	ErrInvalidCard = errors.New("printsheet: invalid card size")
	// ErrMixedSizes is returned when the cards of a document differ in size.
	ErrMixedSizes = errors.New("printsheet: cards have different sizes")
	// ErrNoCards is returned when there is nothing to print.
	ErrNoCards = errors.New("printsheet: no cards to print")
)

// PaperType names a physical paper size.
type PaperType string

const (
	A3      PaperType = "a3"
	A4      PaperType = "a4"
	A5      PaperType = "a5"
	Letter  PaperType = "letter"
	Legal   PaperType = "legal"
	Tabloid PaperType = "tabloid"
)

// Papers maps paper types to their portrait size in inches.
var Papers = map[PaperType]layout.Size{
	A3:      {W: 11.69, H: 16.54},
	A4:      {W: 8.27, H: 11.69},
	A5:      {W: 5.83, H: 8.27},
	Letter:  {W: 8.5, H: 11},
	Legal:   {W: 8.5, H: 14},
	Tabloid: {W: 11, H: 17},
}

// Orientation is the paper layout.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// CropMarks toggles a family of crop marks and sets their length.
type CropMarks struct {
	Visible bool    `json:"visible"`
	Length  float64 `json:"length" validate:"gte=0,lte=2"`
}

// Config is the persisted print configuration.
type Config struct {
	PaperType     PaperType   `json:"paperType" validate:"required,oneof=a3 a4 a5 letter legal tabloid"`
	Layout        Orientation `json:"layout" validate:"required,oneof=portrait landscape"`
	BleedX        float64     `json:"bleedX" validate:"gte=0,lte=1"`
	BleedY        float64     `json:"bleedY" validate:"gte=0,lte=1"`
	BleedVisible  bool        `json:"bleedVisible"`
	PageCropMarks CropMarks   `json:"pageCropMarks"`
	CardCropMarks CropMarks   `json:"cardCropMarks"`
	PaletteName   string      `json:"paletteName" validate:"omitempty,oneof=color grayscale ink-saver"`
}

// DefaultConfig returns A4 portrait with a small bleed and page crop marks.
func DefaultConfig() Config {
	return Config{
		PaperType:     A4,
		Layout:        Portrait,
		BleedX:        0.05,
		BleedY:        0.05,
		BleedVisible:  true,
		PageCropMarks: CropMarks{Visible: true, Length: 0.125},
		CardCropMarks: CropMarks{Visible: false, Length: 0.05},
		PaletteName:   string(layout.PaletteColor),
	}
}

// Palette returns the palette selected by the configuration.
func (c Config) Palette() layout.Palette {
	if c.PaletteName == "" {
		return layout.PaletteColor
	}
	return layout.Palette(c.PaletteName)
}

// PaperSize returns the paper width and height for the orientation.
func PaperSize(t PaperType, o Orientation) (layout.Size, error) {
	size, ok := Papers[t]
	if !ok {
		return layout.Size{}, fmt.Errorf("%w: %q", ErrUnknownPaper, t)
	}
	switch o {
	case Portrait, "":
		return size, nil
	case Landscape:
		return layout.Size{W: size.H, H: size.W}, nil
	default:
		return layout.Size{}, fmt.Errorf("%w: %q", ErrUnknownOrientation, o)
	}
}

// fitEpsilon absorbs rounding when a card fits exactly.
const fitEpsilon = 1e-9

// Grid is the derived tiling of one card size on one paper size.
type Grid struct {
	Paper  layout.Size `json:"paper"`
	Trim   layout.Size `json:"trim"`
	Cell   layout.Size `json:"cell"` // trim plus bleed on both sides
	BleedX float64     `json:"bleedX"`
	BleedY float64     `json:"bleedY"`

	Columns       int     `json:"columns"`
	Rows          int     `json:"rows"`
	CardsPerSheet int     `json:"cardsPerSheet"`
	PaddingX      float64 `json:"paddingX"`
	PaddingY      float64 `json:"paddingY"`
}

// Compute derives the grid for cards of trim size card under cfg.
// A card that does not fit on either axis yields ErrCardTooLarge.
func Compute(card layout.Size, cfg Config) (Grid, error) {
	if card.W <= 0 || card.H <= 0 || cfg.BleedX < 0 || cfg.BleedY < 0 {
		return Grid{}, fmt.Errorf("%w: %gx%g in, bleed %gx%g in", ErrInvalidCard, card.W, card.H, cfg.BleedX, cfg.BleedY)
	}
	paper, err := PaperSize(cfg.PaperType, cfg.Layout)
	if err != nil {
		return Grid{}, err
	}
	g := Grid{
		Paper:  paper,
		Trim:   card,
		Cell:   layout.Size{W: card.W + 2*cfg.BleedX, H: card.H + 2*cfg.BleedY},
		BleedX: cfg.BleedX,
		BleedY: cfg.BleedY,
	}
	g.Columns = int(math.Floor(paper.W/g.Cell.W + fitEpsilon))
	g.Rows = int(math.Floor(paper.H/g.Cell.H + fitEpsilon))
	if g.Columns == 0 || g.Rows == 0 {
		return g, fmt.Errorf("%w: cell %.3gx%.3g in on %s %s paper %.4gx%.4g in (%d columns, %d rows)",
			ErrCardTooLarge, g.Cell.W, g.Cell.H, cfg.PaperType, cfg.Layout, paper.W, paper.H, g.Columns, g.Rows)
	}
	g.CardsPerSheet = g.Columns * g.Rows
	g.PaddingX = (paper.W - float64(g.Columns)*g.Cell.W) / 2
	g.PaddingY = (paper.H - float64(g.Rows)*g.Cell.H) / 2
	return g, nil
}

// TotalSheets returns ceil(totalPages / CardsPerSheet).
func (g Grid) TotalSheets(totalPages int) int {
	if totalPages <= 0 || g.CardsPerSheet <= 0 {
		return 0
	}
	return (totalPages + g.CardsPerSheet - 1) / g.CardsPerSheet
}

// CellOrigin returns the top-left corner of slot i's cell (bleed included).
// Slots fill the sheet row by row.
func (g Grid) CellOrigin(i int) (x, y float64) {
	col, row := i%g.Columns, i/g.Columns
	return g.PaddingX + float64(col)*g.Cell.W, g.PaddingY + float64(row)*g.Cell.H
}

// TrimOrigin returns the top-left corner of slot i's trim box.
func (g Grid) TrimOrigin(i int) (x, y float64) {
	x, y = g.CellOrigin(i)
	return x + g.BleedX, y + g.BleedY
}

// Mark is one crop-mark segment.
type Mark struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// PageCropMarks returns marks at every trim line of the grid, drawn outside
// the grid from its bleed edge outward by length and clipped to the paper.
// Identical inputs always give identical marks.
func (g Grid) PageCropMarks(length float64) []Mark {
	if length <= 0 || g.CardsPerSheet == 0 {
		return nil
	}
	left, top := g.PaddingX, g.PaddingY
	right := left + float64(g.Columns)*g.Cell.W
	bottom := top + float64(g.Rows)*g.Cell.H

	var marks []Mark
	for _, x := range trimLines(left, g.Cell.W, g.BleedX, g.Trim.W, g.Columns) {
		marks = append(marks,
			Mark{X1: x, Y1: snap(math.Max(0, top-length)), X2: x, Y2: snap(top)},
			Mark{X1: x, Y1: snap(bottom), X2: x, Y2: snap(math.Min(g.Paper.H, bottom+length))},
		)
	}
	for _, y := range trimLines(top, g.Cell.H, g.BleedY, g.Trim.H, g.Rows) {
		marks = append(marks,
			Mark{X1: snap(math.Max(0, left-length)), Y1: y, X2: snap(left), Y2: y},
			Mark{X1: snap(right), Y1: y, X2: snap(math.Min(g.Paper.W, right+length)), Y2: y},
		)
	}
	return dropEmpty(marks)
}

// CardCropMarks returns the marks around slot i's trim corners, drawn inside
// its bleed. Their length is capped by the bleed, so without bleed there are none.
func (g Grid) CardCropMarks(i int, length float64) []Mark {
	lx, ly := math.Min(length, g.BleedX), math.Min(length, g.BleedY)
	if lx <= 0 && ly <= 0 {
		return nil
	}
	x0, y0 := g.TrimOrigin(i)
	x1, y1 := x0+g.Trim.W, y0+g.Trim.H
	var marks []Mark
	for _, c := range [][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		dx, dy := -lx, -ly
		if c[0] == x1 {
			dx = lx
		}
		if c[1] == y1 {
			dy = ly
		}
		cx, cy := snap(c[0]), snap(c[1])
		marks = append(marks,
			Mark{X1: snap(c[0] + dx), Y1: cy, X2: cx, Y2: cy},
			Mark{X1: cx, Y1: snap(c[1] + dy), X2: cx, Y2: cy},
		)
	}
	return dropEmpty(marks)
}

// trimLines lists the distinct, pixel-snapped trim positions along one axis.
func trimLines(origin, cell, bleed, trim float64, n int) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for i := 0; i < n; i++ {
		start := origin + float64(i)*cell + bleed
		for _, v := range []float64{snap(start), snap(start + trim)} {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Float64s(out)
	return out
}

func dropEmpty(marks []Mark) []Mark {
	out := marks[:0]
	for _, m := range marks {
		if m.X1 != m.X2 || m.Y1 != m.Y2 {
			out = append(out, m)
		}
	}
	return out
}

func snap(v float64) float64 { return layout.SnapToPixel(v) }
