package terminal

import "github.com/fatih/color"

// Color identifies a semantic role, not a literal ANSI code, so callers
// stay free of escape-sequence details.
type Color int

// Supported colors.
const (
	ColorNone Color = iota
	ColorGreen
	ColorRed
	ColorYellow
	ColorGray
	ColorCyan
)

func attrsFor(c Color) []color.Attribute {
	switch c {
	case ColorGreen:
		return []color.Attribute{color.FgGreen}
	case ColorRed:
		return []color.Attribute{color.FgRed}
	case ColorYellow:
		return []color.Attribute{color.FgYellow}
	case ColorGray:
		return []color.Attribute{color.FgHiBlack}
	case ColorCyan:
		return []color.Attribute{color.FgCyan}
	default:
		return nil
	}
}

// Colorize wraps text in the ANSI sequence for c, or returns text
// unchanged when cfg.NoColor is set.
func (cfg Config) Colorize(text string, c Color) string {
	attrs := attrsFor(c)
	if cfg.NoColor || len(attrs) == 0 {
		return text
	}

	cc := color.New(attrs...)
	cc.EnableColor()

	return cc.Sprint(text)
}

// Badge renders an inverse-video tag (e.g. " PASS ", " FAIL ") in the
// given semantic color, falling back to plain bracketed text when color is
// disabled.
func (cfg Config) Badge(text string, c Color) string {
	if cfg.NoColor {
		return "[" + text + "]"
	}

	var bg color.Attribute

	switch c {
	case ColorGreen:
		bg = color.BgGreen
	case ColorRed:
		bg = color.BgRed
	case ColorYellow:
		bg = color.BgYellow
	default:
		bg = color.BgHiBlack
	}

	cc := color.New(bg, color.FgBlack)
	cc.EnableColor()

	return cc.Sprint(text)
}
