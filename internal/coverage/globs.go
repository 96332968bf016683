package coverage

import "github.com/bmatcuk/doublestar/v4"

// ApplyGlobs filters files by repo-relative POSIX path against include
// globs (keep only matches; no includes means keep everything) and then
// exclude globs (drop any match), in that order, per the include-then-
// exclude precedence the roll-up documents.
func ApplyGlobs(files map[string]*FileCoverage, root string, include, exclude []string) map[string]*FileCoverage {
	out := make(map[string]*FileCoverage, len(files))

	for abs, f := range files {
		rel := RelativeTo(root, abs)

		if len(include) > 0 && !matchesAny(include, rel) {
			continue
		}

		if matchesAny(exclude, rel) {
			continue
		}

		out[abs] = f
	}

	return out
}

func matchesAny(globs []string, path string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return true
		}
	}

	return false
}
