package render

import (
	"fmt"
	"regexp"
	"strings"
)

// noisyFramePatterns match stack-frame lines that add no debugging value:
// bundled dependency code, the Node.js runtime itself, and the test
// runner's own internals.
var noisyFramePatterns = []*regexp.Regexp{
	regexp.MustCompile(`node_modules[/\\]`),
	regexp.MustCompile(`^\s*at node:`),
	regexp.MustCompile(`internal/(process|modules)/`),
	regexp.MustCompile(`jest-(circus|runtime|jasmine2|runner)`),
	regexp.MustCompile(`vitest/dist`),
	regexp.MustCompile(`^\s*at Generator\.`),
	regexp.MustCompile(`^\s*at processTicksAndRejections`),
}

func isNoisyFrame(line string) bool {
	for _, re := range noisyFramePatterns {
		if re.MatchString(line) {
			return true
		}
	}

	return false
}

// FilterStackFrames drops frames matched by noisyFramePatterns, collapsing
// each contiguous run of hidden frames into a single
// "… N stack frame(s) hidden" marker rather than deleting them silently.
func FilterStackFrames(lines []string) []string {
	out := make([]string, 0, len(lines))
	hidden := 0

	flush := func() {
		if hidden == 0 {
			return
		}

		out = append(out, fmt.Sprintf("… %d stack frame(s) hidden", hidden))
		hidden = 0
	}

	for _, line := range lines {
		if isNoisyFrame(line) {
			hidden++
			continue
		}

		flush()

		out = append(out, line)
	}

	flush()

	return out
}

// SplitStackTrace splits a multi-line failure message into the leading
// non-frame lines (the message proper) and the trailing stack-frame
// lines, using "at " / "  at" prefixes as the frame marker, matching both
// JS (" at func (file:line:col)") and Rust-style backtraces ("   N: func").
var stackFrameLineRe = regexp.MustCompile(`^\s*(at\s|\d+:\s)`)

func SplitStackTrace(message string) (head []string, frames []string) {
	lines := strings.Split(message, "\n")

	i := 0
	for ; i < len(lines); i++ {
		if stackFrameLineRe.MatchString(lines[i]) {
			break
		}
	}

	return lines[:i], lines[i:]
}
