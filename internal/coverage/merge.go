package coverage

import (
	"path/filepath"
	"strings"
)

// ResolvePaths rewrites every file's path to an absolute POSIX path
// resolved against root, merging entries that collide after resolution
// (multiple reports covering the same file) by summing their hit counts.
func ResolvePaths(files map[string]*FileCoverage, root string) map[string]*FileCoverage {
	resolved := make(map[string]*FileCoverage, len(files))

	for _, f := range files {
		abs := toPOSIXAbs(root, f.Path)

		if existing, ok := resolved[abs]; ok {
			mergeInto(existing, f)
			continue
		}

		clone := newFileCoverage(abs)
		mergeInto(clone, f)
		resolved[abs] = clone
	}

	return resolved
}

func toPOSIXAbs(root, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	return filepath.ToSlash(filepath.Clean(path))
}

func mergeInto(dst, src *FileCoverage) {
	for name, fn := range src.Functions {
		existing := dst.Functions[name]
		existing.Hits += fn.Hits

		if existing.Line == 0 {
			existing.Line = fn.Line
		}

		dst.Functions[name] = existing
	}

	for line, hits := range src.Lines {
		dst.Lines[line] += hits
	}

	for line, hits := range src.Statements {
		dst.Statements[line] += hits
	}

	for key, hits := range src.Branches {
		dst.Branches[key] += hits
	}
}

// RelativeTo returns path relative to root in POSIX form, falling back to
// the unchanged path when it isn't under root.
func RelativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return filepath.ToSlash(rel)
}
