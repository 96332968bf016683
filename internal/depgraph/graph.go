package depgraph

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// jsResolutionSuffixes are tried, in order, when a JS/TS specifier resolves
// to a directory or an extensionless file.
var jsResolutionSuffixes = []string{
	"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

// Graph is a file-level dependency graph: edges point from an importer to
// the files it imports, plus the reverse adjacency used to answer "what
// depends on this file".
type Graph struct {
	repoRoot    string
	imports     map[string][]string
	importedBy  map[string][]string
}

// Build parses every file in files (paths relative to repoRoot) with ex and
// resolves their import specifiers into repo-relative paths, keeping only
// edges that land on another file in files.
func Build(repoRoot string, files []string, ex *Extractor) (*Graph, error) {
	g := &Graph{
		repoRoot:   repoRoot,
		imports:    make(map[string][]string, len(files)),
		importedBy: make(map[string][]string, len(files)),
	}

	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[filepath.ToSlash(f)] = struct{}{}
	}

	for _, rel := range files {
		lang := LanguageForPath(rel)
		if lang == LanguageUnsupported {
			continue
		}

		source, err := os.ReadFile(filepath.Join(repoRoot, rel))
		if err != nil {
			continue
		}

		specs, err := ex.Imports(lang, source)
		if err != nil {
			continue
		}

		var resolved []string

		for _, spec := range specs {
			target, ok := resolve(lang, repoRoot, rel, spec, known)
			if !ok {
				continue
			}

			resolved = append(resolved, target)
		}

		resolved = dedupStrings(resolved)
		if len(resolved) > 0 {
			g.imports[filepath.ToSlash(rel)] = resolved

			for _, target := range resolved {
				g.importedBy[target] = append(g.importedBy[target], filepath.ToSlash(rel))
			}
		}
	}

	for k := range g.importedBy {
		g.importedBy[k] = dedupStrings(g.importedBy[k])
	}

	return g, nil
}

// resolve maps a raw import specifier, written inside file `from`, to a
// repo-relative path in `known`. Returns ok=false when the specifier names
// an external package/crate/module that isn't part of the scanned file set.
func resolve(lang Language, repoRoot, from, spec string, known map[string]struct{}) (string, bool) {
	switch lang {
	case LanguageJS, LanguageTS, LanguageTSX:
		return resolveJS(repoRoot, from, spec, known)
	case LanguagePython:
		return resolvePython(from, spec, known)
	case LanguageRust:
		return resolveRust(from, spec, known)
	case LanguageUnsupported:
		return "", false
	default:
		return "", false
	}
}

func resolveJS(repoRoot, from, spec string, known map[string]struct{}) (string, bool) {
	if !strings.HasPrefix(spec, ".") {
		return "", false
	}

	base := filepath.Join(filepath.Dir(from), filepath.FromSlash(spec))

	for _, suffix := range jsResolutionSuffixes {
		candidate := filepath.ToSlash(base + suffix)
		if _, ok := known[candidate]; ok {
			return candidate, true
		}
	}

	_ = repoRoot

	return "", false
}

func resolvePython(from, spec string, known map[string]struct{}) (string, bool) {
	parts := strings.Split(spec, ".")

	dir := filepath.Dir(from)
	if strings.HasPrefix(spec, ".") {
		// Relative import: leading dots climb directories above `from`.
		leading := 0
		for leading < len(spec) && spec[leading] == '.' {
			leading++
		}

		for i := 1; i < leading; i++ {
			dir = filepath.Dir(dir)
		}

		parts = strings.Split(strings.TrimLeft(spec, "."), ".")
	}

	rel := filepath.Join(append([]string{dir}, parts...)...)

	for _, candidate := range []string{rel + ".py", filepath.Join(rel, "__init__.py")} {
		slashed := filepath.ToSlash(candidate)
		if _, ok := known[slashed]; ok {
			return slashed, true
		}
	}

	return "", false
}

func resolveRust(from, spec string, known map[string]struct{}) (string, bool) {
	if strings.HasPrefix(spec, "mod::") {
		name := strings.TrimPrefix(spec, "mod::")
		dir := filepath.Dir(from)

		for _, candidate := range []string{
			filepath.Join(dir, name+".rs"),
			filepath.Join(dir, name, "mod.rs"),
		} {
			slashed := filepath.ToSlash(candidate)
			if _, ok := known[slashed]; ok {
				return slashed, true
			}
		}

		return "", false
	}

	if strings.HasPrefix(spec, "crate::") || strings.HasPrefix(spec, "self::") || strings.HasPrefix(spec, "super::") {
		return "", false
	}

	return "", false
}

// Dependents returns the files that directly import rel.
func (g *Graph) Dependents(rel string) []string {
	return append([]string(nil), g.importedBy[filepath.ToSlash(rel)]...)
}

// Imports returns the files that rel directly imports.
func (g *Graph) Imports(rel string) []string {
	return append([]string(nil), g.imports[filepath.ToSlash(rel)]...)
}

// TransitiveDependents returns every file reachable by walking "is imported
// by" edges from the given set of changed files, excluding the seeds
// themselves unless they are also reached via another path.
func (g *Graph) TransitiveDependents(changed []string) []string {
	visited := make(map[string]struct{})
	queue := make([]string, 0, len(changed))

	for _, c := range changed {
		queue = append(queue, filepath.ToSlash(c))
	}

	result := make(map[string]struct{})

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if _, ok := visited[cur]; ok {
			continue
		}

		visited[cur] = struct{}{}

		for _, dependent := range g.importedBy[cur] {
			result[dependent] = struct{}{}

			if _, ok := visited[dependent]; !ok {
				queue = append(queue, dependent)
			}
		}
	}

	out := make([]string, 0, len(result))
	for f := range result {
		out = append(out, f)
	}

	sort.Strings(out)

	return out
}
