// Package richtext splits a string into styled and symbol runs using
// ordered delimiter patterns.
//
// Every run remembers where it came from in the source string, so callers
// that consume text piecewise (for example across several card faces) can
// translate a position inside a run back into a source offset.
package richtext

import (
	"strings"

	"github.com/zuccha/dnd-portal-sub000/binding"
)

// DelimiterMode controls whether the delimiters stay in the emitted text.
type DelimiterMode string

const (
	Include DelimiterMode = "include"
	Exclude DelimiterMode = "exclude"
)

// PatternType distinguishes styling patterns from symbol patterns.
type PatternType string

const (
	TypeText   PatternType = "text"
	TypeSymbol PatternType = "symbol"
)

// Style is the inline formatting applied to a run. Empty fields inherit.
type Style struct {
	FontWeight      string `json:"fontWeight,omitempty"`
	FontStyle       string `json:"fontStyle,omitempty"`
	TextColorCustom bool   `json:"textColorCustom,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
	TextTransform   string `json:"textTransform,omitempty"`
}

// Merge returns s overridden by every non-empty field of o.
func (s Style) Merge(o Style) Style {
	if o.FontWeight != "" {
		s.FontWeight = o.FontWeight
	}
	if o.FontStyle != "" {
		s.FontStyle = o.FontStyle
	}
	if o.TextColorCustom {
		s.TextColorCustom = true
		s.TextColor = o.TextColor
	}
	if o.TextTransform != "" {
		s.TextTransform = o.TextTransform
	}
	return s
}

// IsZero reports whether the style carries no override.
func (s Style) IsZero() bool { return s == Style{} }

// Color returns the custom text color, if the style sets one.
func (s Style) Color() (string, bool) {
	if !s.TextColorCustom || s.TextColor == "" {
		return "", false
	}
	return s.TextColor, true
}

// Pattern is an inline formatting rule.
//
// Delimiter is either a single token that opens and closes a span ("*"),
// or an opening and closing token separated by one space ("[[ ]]").
type Pattern struct {
	Type          PatternType   `json:"type,omitempty"`
	Delimiter     string        `json:"delimiter"`
	DelimiterMode DelimiterMode `json:"delimiterMode,omitempty"`
	Styles        Style         `json:"styles,omitempty"`
	SymbolPath    string        `json:"symbolPath,omitempty"`
	SymbolShadow  bool          `json:"symbolShadow,omitempty"`
}

// Delimiters returns the opening and closing tokens.
func (p Pattern) Delimiters() (string, string) {
	if open, closing, ok := strings.Cut(p.Delimiter, " "); ok && open != "" && closing != "" {
		return open, closing
	}
	return p.Delimiter, p.Delimiter
}

// Symbol identifies an icon drawn in place of text.
type Symbol struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Shadow bool   `json:"shadow,omitempty"`
}

// Run is one typed piece of parsed text.
//
// Text is always the substring source[Start:Start+len(Text)]. SrcStart and
// SrcEnd cover the run including any stripped delimiters; the spans of
// consecutive runs tile the source without gaps.
type Run struct {
	Text     string  `json:"text"`
	Style    Style   `json:"style"`
	Symbol   *Symbol `json:"symbol,omitempty"`
	Start    int     `json:"start"`
	SrcStart int     `json:"srcStart"`
	SrcEnd   int     `json:"srcEnd"`
}

// IsSymbol reports whether the run renders as an icon.
func (r Run) IsSymbol() bool { return r.Symbol != nil }

// Parse applies patterns in order. Runs produced by a pattern are scanned
// by later patterns but not by the same one; symbol runs are terminal.
// Unmatched delimiters stay literal text.
func Parse(text string, patterns []Pattern) []Run {
	if text == "" {
		return nil
	}
	runs := []Run{{Text: text, Start: 0, SrcStart: 0, SrcEnd: len(text)}}
	for _, p := range patterns {
		open, closing := p.Delimiters()
		if open == "" {
			continue
		}
		out := make([]Run, 0, len(runs))
		for _, r := range runs {
			if r.IsSymbol() {
				out = append(out, r)
				continue
			}
			out = append(out, split(r, p, open, closing)...)
		}
		runs = out
	}
	return runs
}

// Shift moves every offset of runs by delta, for runs parsed from a
// substring of a larger source.
func Shift(runs []Run, delta int) []Run {
	for i := range runs {
		runs[i].Start += delta
		runs[i].SrcStart += delta
		runs[i].SrcEnd += delta
	}
	return runs
}

func split(r Run, p Pattern, open, closing string) []Run {
	var out []Run
	srcCursor := r.SrcStart
	emit := func(piece Run, naturalEnd int) {
		piece.SrcStart = srcCursor
		piece.SrcEnd = naturalEnd
		srcCursor = naturalEnd
		out = append(out, piece)
	}

	text := r.Text
	pos := 0
	search := 0
	for search < len(text) {
		i := strings.Index(text[search:], open)
		if i < 0 {
			break
		}
		i += search
		innerStart := i + len(open)
		j := strings.Index(text[innerStart:], closing)
		if j < 0 {
			break
		}
		j += innerStart
		if j == innerStart {
			// 空内容不构成匹配，按字面量处理
			search = innerStart
			continue
		}
		if i > pos {
			emit(Run{Text: text[pos:i], Style: r.Style, Start: r.Start + pos}, r.Start+i)
		}
		matchEnd := j + len(closing)
		inner := text[innerStart:j]
		piece := Run{Style: r.Style}
		switch {
		case p.Type == TypeSymbol:
			piece.Text = inner
			piece.Start = r.Start + innerStart
			piece.Symbol = &Symbol{
				Name:   inner,
				Path:   symbolPath(p.SymbolPath, inner),
				Shadow: p.SymbolShadow,
			}
		case p.DelimiterMode == Include:
			piece.Text = text[i:matchEnd]
			piece.Start = r.Start + i
			piece.Style = r.Style.Merge(p.Styles)
		default:
			piece.Text = inner
			piece.Start = r.Start + innerStart
			piece.Style = r.Style.Merge(p.Styles)
		}
		emit(piece, r.Start+matchEnd)
		pos = matchEnd
		search = matchEnd
	}
	if pos == 0 && len(out) == 0 {
		return []Run{r}
	}
	if pos < len(text) {
		emit(Run{Text: text[pos:], Style: r.Style, Start: r.Start + pos}, r.SrcEnd)
	}
	out[len(out)-1].SrcEnd = r.SrcEnd
	return out
}

func symbolPath(tpl, name string) string {
	if tpl == "" {
		return name
	}
	return binding.Interpolate(tpl, map[string]any{"name": name})
}
