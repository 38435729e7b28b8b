package layout

import (
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers. Internally every length is
// stored in inches and every font size in points.

// Unit represents the original unit of a length value as written in a template.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitIN               // inches
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitPT               // points
	UnitPX               // device pixels (1/96 in)
)

// Conversion constants.
const (
	PointsPerInch = 72.0
	PixelsPerInch = 96.0
	MmPerInch     = 25.4
	PtToMm        = MmPerInch / PointsPerInch
	MmToPt        = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitIN:
		return "in"
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// String formats the length as written, e.g. "63mm".
func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'g', -1, 64) + UnitToString(l.Unit)
}

// Inches converts the length to inches. Unit-less values are already inches.
func (l Length) Inches() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value / MmPerInch
	case UnitCM:
		return l.Value * 10 / MmPerInch
	case UnitPT:
		return l.Value / PointsPerInch
	case UnitPX:
		return l.Value / PixelsPerInch
	default:
		return l.Value
	}
}

// Points converts the length to points. Unit-less values are already points,
// which is how font sizes are written.
func (l Length) Points() float64 {
	if l.Unit == UnitNone {
		return l.Value
	}
	return l.Inches() * PointsPerInch
}

// ParseLength parses a length string such as "2.5in", "9pt" or "3mm".
func ParseLength(value string) (Length, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"in", UnitIN}, {"mm", UnitMM}, {"cm", UnitCM}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// ParseFactor parses a multiplier written as "1.2" or "1.2x".
func ParseFactor(value string) (float64, bool) {
	v := strings.TrimSuffix(strings.TrimSpace(value), "x")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// PtToIn converts a font size in points to inches.
func PtToIn(pt float64) float64 { return pt / PointsPerInch }

// InToMm converts inches to millimeters.
func InToMm(in float64) float64 { return in * MmPerInch }

// SnapToPixel rounds v (inches) to the nearest device pixel.
func SnapToPixel(v float64) float64 { return math.Round(v*PixelsPerInch) / PixelsPerInch }

// Hairline is the width of one device pixel, in inches.
const Hairline = 1 / PixelsPerInch
