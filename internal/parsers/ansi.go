package parsers

import "regexp"

// ansiRe matches a CSI escape sequence (colors, cursor moves) the way
// runner output commonly embeds them.
var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")

// StripANSI removes terminal escape sequences from a line of runner
// output. Shared by all four dialect parsers before pattern matching, since
// a colorized runner can otherwise break every regex below.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// consoleOriginPrefixes maps a leading console-call prefix to the origin
// label used to classify a captured console line as error-level or not.
var consoleOriginPrefixes = []struct {
	prefix string
	origin string
}{
	{"console.error", "error"},
	{"console.warn", "warn"},
	{"console.info", "info"},
	{"console.debug", "debug"},
	{"console.log", "log"},
}

// ClassifyConsoleOrigin returns the console origin a captured line implies,
// defaulting to "log" when no known console call prefixes the line. Only
// tests call it: the JS bridge dialect (C2) takes each console event's
// origin from its payload, and the renderer's capped default view decides
// "error-level" entries with IsErrorLevelOrigin.
func ClassifyConsoleOrigin(line string) string {
	for _, p := range consoleOriginPrefixes {
		if len(line) >= len(p.prefix) && line[:len(p.prefix)] == p.prefix {
			return p.origin
		}
	}

	return "log"
}

// IsErrorLevelOrigin reports whether origin should count toward the
// default capped error-level console view (4.E).
func IsErrorLevelOrigin(origin string) bool {
	return origin == "error" || origin == "warn"
}
