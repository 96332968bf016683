package parsers

import (
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/headlamp-run/headlamp/internal/model"
)

// rustPanicRe matches a Rust panic header: an optional "<name>: " prefix
// (nextest embeds the thread name there), the source file, and a
// line:column pair, with an optional trailing colon.
var rustPanicRe = regexp.MustCompile(`panicked at (?:([^:\s]+): )?([^\s:][^:]*):(\d+):(\d+):?`)

// rustPanicLocation extracts the file/line/column from a Rust panic header
// found anywhere in text, returning ok=false if no header is present.
func rustPanicLocation(text string) (file string, loc model.Location, ok bool) {
	m := rustPanicRe.FindStringSubmatch(text)
	if m == nil {
		return "", model.Location{}, false
	}

	line, errLine := strconv.Atoi(m[3])
	col, errCol := strconv.Atoi(m[4])

	if errLine != nil || errCol != nil {
		return "", model.Location{}, false
	}

	return m[2], model.Location{Line: line, Column: col}, true
}

// locationIfSuiteMatches resolves a Rust panic location from text, but
// only assigns it when the panicking file's basename matches the suite's
// own source basename — the same file a different codegen unit reports
// under a slightly different path otherwise gets attributed incorrectly.
func locationIfSuiteMatches(text, suiteFilePath string) *model.Location {
	file, loc, ok := rustPanicLocation(text)
	if !ok {
		return nil
	}

	if filepath.Base(file) != filepath.Base(suiteFilePath) {
		return nil
	}

	return &loc
}

// pytestTracebackRe matches a Python traceback frame line:
// `File "<path>", line <n>, in <func>`.
var pytestTracebackRe = regexp.MustCompile(`File "([^"]+)", line (\d+)`)

// firstPytestLocation returns the first traceback frame location found in
// text, if any.
func firstPytestLocation(text string) *model.Location {
	m := pytestTracebackRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	line, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}

	return &model.Location{Line: line}
}
