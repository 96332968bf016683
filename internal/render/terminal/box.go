package terminal

import "strings"

// Unicode box-drawing characters, used only when Config.Unicode is set.
const (
	BoxHorizontal = "─"
	barFilled     = "█"
	barEmpty      = "░"
)

// ASCII fallbacks for the same roles.
const (
	asciiHorizontal = "-"
	asciiBarFilled  = "#"
	asciiBarEmpty   = "-"
)

// Rule draws a horizontal rule of the given width, using box-drawing
// characters when cfg.Unicode, else ASCII dashes.
func (cfg Config) Rule(width int) string {
	if width <= 0 {
		return ""
	}

	ch := asciiHorizontal
	if cfg.Unicode {
		ch = BoxHorizontal
	}

	return strings.Repeat(ch, width)
}

// Bar draws a filled/empty block bar of the given width representing
// value in [0, 1].
func (cfg Config) Bar(value float64, width int) string {
	if value < 0 {
		value = 0
	}

	if value > 1 {
		value = 1
	}

	filled := int(value * float64(width))
	empty := width - filled

	fch, ech := asciiBarFilled, asciiBarEmpty
	if cfg.Unicode {
		fch, ech = barFilled, barEmpty
	}

	return strings.Repeat(fch, filled) + strings.Repeat(ech, empty)
}

// TableBorders returns the corner/edge glyphs go-pretty's table style
// should use for this config: unicode box characters, or the ASCII
// `|`/`-`/`+` fallback set.
func (cfg Config) TableBorders() (horizontal, vertical, corner string) {
	if cfg.Unicode {
		return "─", "│", "┼"
	}

	return "-", "|", "+"
}
