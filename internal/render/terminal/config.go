// Package terminal provides the low-level rendering primitives the
// internal/render package composes into headlamp's run output: width/color
// detection, ANSI colorization, box-drawing with ASCII fallbacks, padding,
// and OSC-8 hyperlinks.
package terminal

import (
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
)

// Default/minimum width constants.
const (
	DefaultWidth = 80
	MinWidth     = 20
)

// Config holds the rendering decisions derived once per run from the
// environment and the output file descriptor.
type Config struct {
	Width   int
	NoColor bool
	IsTTY   bool
	Unicode bool
}

// DetectConfig inspects the classic environment hints (NO_COLOR,
// FORCE_COLOR, CLICOLOR, TERM, COLUMNS) plus whether out is a real
// terminal, and returns the resulting Config. FORCE_COLOR wins over a
// non-tty destination; NO_COLOR wins over everything except FORCE_COLOR.
func DetectConfig(out *os.File) Config {
	isTTY := out != nil && isatty.IsTerminal(out.Fd())

	term := os.Getenv("TERM")
	forceColor := os.Getenv("FORCE_COLOR") != ""
	noColor := os.Getenv("NO_COLOR") != ""
	clicolorOff := os.Getenv("CLICOLOR") == "0"

	colorEnabled := forceColor || (isTTY && term != "dumb" && !clicolorOff)
	if noColor && !forceColor {
		colorEnabled = false
	}

	return Config{
		Width:   DetectWidth(),
		NoColor: !colorEnabled,
		IsTTY:   isTTY,
		Unicode: term != "dumb" && term != "",
	}
}

// DetectWidth returns the terminal width from the COLUMNS environment
// variable, enforcing the documented 20-column minimum, or DefaultWidth
// when COLUMNS is unset or invalid.
func DetectWidth() int {
	columnsEnv := os.Getenv("COLUMNS")
	if columnsEnv == "" {
		return DefaultWidth
	}

	width, err := strconv.Atoi(columnsEnv)
	if err != nil {
		return DefaultWidth
	}

	if width < MinWidth {
		return MinWidth
	}

	return width
}
