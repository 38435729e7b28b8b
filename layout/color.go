package layout

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color 采用 0-255 的 RGB 数值，JSON 中以 "#rrggbb" 表示。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var (
	Black = Color{}
	White = Color{R: 255, G: 255, B: 255}
)

// ParseColor 解析 #rgb、#rrggbb 与 #rrggbbaa（忽略透明度）形式的颜色。
func ParseColor(value string) (Color, error) {
	v := strings.TrimSpace(value)
	if !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	switch len(v) {
	case 4:
		v = "#" + strings.Repeat(v[1:2], 2) + strings.Repeat(v[2:3], 2) + strings.Repeat(v[3:4], 2)
	case 9:
		v = v[:7]
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return fromColorful(c), nil
}

// Hex 返回 #rrggbb 形式。
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", clamp255(c.R), clamp255(c.G), clamp255(c.B))
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: int(r), G: int(g), B: int(b)}
}

func clamp255(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Palette 在绘制阶段统一转换颜色，例如打印省墨或灰度输出。
type Palette string

const (
	PaletteColor     Palette = "color"
	PaletteGrayscale Palette = "grayscale"
	PaletteInkSaver  Palette = "ink-saver"
)

// Palettes 列出可选的调色板名称。
var Palettes = []Palette{PaletteColor, PaletteGrayscale, PaletteInkSaver}

// inkSaverBlend 是省墨模式向白色混合的比例。
const inkSaverBlend = 0.55

// Apply 按调色板转换颜色，未知名称按原色处理。
func (p Palette) Apply(c Color) Color {
	switch p {
	case PaletteGrayscale:
		l, _, _ := c.colorful().Lab()
		return fromColorful(colorful.Lab(l, 0, 0))
	case PaletteInkSaver:
		return fromColorful(c.colorful().BlendLab(White.colorful(), inkSaverBlend))
	default:
		return c
	}
}

// Valid reports whether p names a known palette.
func (p Palette) Valid() bool {
	for _, known := range Palettes {
		if p == known {
			return true
		}
	}
	return false
}
