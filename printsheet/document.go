package printsheet

import (
	"fmt"
	"math"

	"github.com/zuccha/dnd-portal-sub000/layout"
)

// Slot places one card face on a sheet. X and Y locate the cell's top-left
// corner, bleed included.
type Slot struct {
	Card *layout.Card `json:"-"`
	Page int          `json:"page"`
	X    float64      `json:"x"`
	Y    float64      `json:"y"`
}

// Sheet is one physical sheet of paper.
type Sheet struct {
	Index     int    `json:"index"`
	Slots     []Slot `json:"slots"`
	PageMarks []Mark `json:"pageMarks,omitempty"`
	CardMarks []Mark `json:"cardMarks,omitempty"`
}

// Document is every sheet needed to print a set of cards.
type Document struct {
	Config Config  `json:"config"`
	Grid   Grid    `json:"grid"`
	Pages  int     `json:"pages"` // total number of card faces
	Sheets []Sheet `json:"sheets"`
}

// sizeTolerance accepts cards whose sizes differ only by rounding.
const sizeTolerance = 1e-6

// Assign lays the pages of cards, in order, onto sheets row by row.
// All cards must share one trim size.
func Assign(cards []*layout.Card, cfg Config) (*Document, error) {
	var size layout.Size
	total := 0
	for _, c := range cards {
		if c == nil || len(c.Pages) == 0 {
			continue
		}
		if total == 0 {
			size = c.Size
		} else if math.Abs(c.Size.W-size.W) > sizeTolerance || math.Abs(c.Size.H-size.H) > sizeTolerance {
			return nil, fmt.Errorf("%w: %s is %gx%g in, expected %gx%g in", ErrMixedSizes, c.ID, c.Size.W, c.Size.H, size.W, size.H)
		}
		total += len(c.Pages)
	}
	if total == 0 {
		return nil, ErrNoCards
	}
	grid, err := Compute(size, cfg)
	if err != nil {
		return nil, err
	}

	doc := &Document{Config: cfg, Grid: grid, Pages: total}
	var pageMarks []Mark
	if cfg.PageCropMarks.Visible {
		pageMarks = grid.PageCropMarks(cfg.PageCropMarks.Length)
	}
	slot := 0
	for _, c := range cards {
		if c == nil {
			continue
		}
		for p := range c.Pages {
			if slot%grid.CardsPerSheet == 0 {
				doc.Sheets = append(doc.Sheets, Sheet{Index: len(doc.Sheets), PageMarks: pageMarks})
			}
			sheet := &doc.Sheets[len(doc.Sheets)-1]
			i := slot % grid.CardsPerSheet
			x, y := grid.CellOrigin(i)
			sheet.Slots = append(sheet.Slots, Slot{Card: c, Page: p, X: x, Y: y})
			if cfg.CardCropMarks.Visible {
				sheet.CardMarks = append(sheet.CardMarks, grid.CardCropMarks(i, cfg.CardCropMarks.Length)...)
			}
			slot++
		}
	}
	return doc, nil
}
