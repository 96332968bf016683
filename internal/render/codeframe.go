package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/headlamp-run/headlamp/internal/render/terminal"
)

// inlineFrameLineRe matches a code-frame line a runner already formatted
// itself, e.g. "> 10 | assertEquals(a, b)" or "  10 | ...".
var inlineFrameLineRe = regexp.MustCompile(`^\s*>?\s*\d+\s*\|`)

// HasInlineFrame reports whether message already contains a runner-
// rendered code frame, so the renderer should pass it through (colorized)
// rather than opening the source file itself.
func HasInlineFrame(message string) bool {
	for _, line := range strings.Split(message, "\n") {
		if inlineFrameLineRe.MatchString(line) {
			return true
		}
	}

	return false
}

// RenderInlineFrame highlights the caret-marked target line of a
// runner-provided inline frame in red, dimming the surrounding context
// lines, and passes everything else through unchanged.
func RenderInlineFrame(message string, tc terminal.Config) string {
	lines := strings.Split(message, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if !inlineFrameLineRe.MatchString(line) {
			out = append(out, line)
			continue
		}

		if strings.TrimLeft(line, " ")[0] == '>' {
			out = append(out, tc.Colorize(line, terminal.ColorRed))
		} else {
			out = append(out, tc.Colorize(line, terminal.ColorGray))
		}
	}

	return strings.Join(out, "\n")
}

// codeFrameRadius is how many lines of context to show on either side of
// the failing line when opening the source file directly.
const codeFrameRadius = 3

// RenderSourceFrame opens absPath and renders ±codeFrameRadius lines
// around line, highlighting the target line and appending a caret marker
// under col. Returns ok=false if the file can't be read or line is out of
// range — callers should skip the frame entirely in that case, not fail
// the render.
func RenderSourceFrame(absPath string, line, col int, tc terminal.Config) (string, bool) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", false
	}

	lines := strings.Split(string(data), "\n")
	if line < 1 || line > len(lines) {
		return "", false
	}

	start := line - codeFrameRadius
	if start < 1 {
		start = 1
	}

	end := line + codeFrameRadius
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder

	gutterWidth := len(fmt.Sprintf("%d", end))

	for i := start; i <= end; i++ {
		marker := "  "
		if i == line {
			marker = "> "
		}

		content := lines[i-1]
		row := fmt.Sprintf("%s%*d | %s", marker, gutterWidth, i, content)

		if i == line {
			row = tc.Colorize(row, terminal.ColorRed)
		} else {
			row = tc.Colorize(row, terminal.ColorGray)
		}

		b.WriteString(row)
		b.WriteString("\n")

		if i == line {
			caretCol := gutterWidth + 4 + col
			if caretCol < 0 {
				caretCol = 0
			}

			caretLine := strings.Repeat(" ", caretCol) + "^"
			b.WriteString(tc.Colorize(caretLine, terminal.ColorRed))
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n"), true
}

// AbsPath resolves file against cwd when it isn't already absolute.
func AbsPath(cwd, file string) string {
	if filepath.IsAbs(file) {
		return file
	}

	return filepath.Join(cwd, file)
}
