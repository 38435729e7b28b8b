package layout

import "testing"

func TestParseColorForms(t *testing.T) {
	cases := map[string]Color{
		"#abc":      {R: 170, G: 187, B: 204},
		"#7a1f1f":   {R: 122, G: 31, B: 31},
		"#11223344": {R: 17, G: 34, B: 51},
		"ffffff":    White,
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %+v, want %+v", in, got, want)
		}
	}
	if _, err := ParseColor("#zz"); err == nil {
		t.Fatalf("expected error for invalid colour")
	}
	if hex := (Color{R: 255, B: 16}).Hex(); hex != "#ff0010" {
		t.Fatalf("unexpected hex %s", hex)
	}
}

func TestPaletteApply(t *testing.T) {
	red := Color{R: 200, G: 30, B: 30}
	if got := PaletteColor.Apply(red); got != red {
		t.Fatalf("color palette should keep colours, got %+v", got)
	}
	gray := PaletteGrayscale.Apply(red)
	if abs(gray.R-gray.G) > 1 || abs(gray.G-gray.B) > 1 {
		t.Fatalf("grayscale should be neutral, got %+v", gray)
	}
	light := PaletteInkSaver.Apply(Black)
	if light.R <= 0 || light.R >= 255 {
		t.Fatalf("ink saver should lighten black, got %+v", light)
	}
	if got := Palette("sepia").Apply(red); got != red {
		t.Fatalf("unknown palette should keep colours")
	}
	if Palette("sepia").Valid() || !PaletteInkSaver.Valid() {
		t.Fatalf("unexpected palette validity")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
