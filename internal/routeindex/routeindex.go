// Package routeindex scans a repository for HTTP route registrations
// (Express-style router.get/post/.../use call sites, and their Python
// counterparts) and builds a cached map between normalized HTTP paths and
// the source files that register them, closed over router-mount edges.
package routeindex

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// preFilterTokens are literal byte sequences a candidate router file must
// contain. Files without any of these are skipped before the more
// expensive regex pass.
var preFilterTokens = [][]byte{
	[]byte("express("),
	[]byte(".route("),
	[]byte(".get("),
	[]byte(".post("),
	[]byte(".put("),
	[]byte(".delete("),
	[]byte(".patch("),
	[]byte(".use("),
	[]byte("@app.route"),
	[]byte("@router."),
	[]byte("APIRouter("),
}

var routeCallRe = regexp.MustCompile(
	`\.(?:get|post|put|delete|patch|route|all)\(\s*['"` + "`" + `]([^'"` + "`" + `]*)['"` + "`" + `]`,
)

var decoratorRouteRe = regexp.MustCompile(
	`@(?:app|router)\.(?:get|post|put|delete|patch|route)\(\s*['"` + "`" + `]([^'"` + "`" + `]*)['"` + "`" + `]`,
)

var mountCallRe = regexp.MustCompile(
	`\.use\(\s*['"` + "`" + `]([^'"` + "`" + `]*)['"` + "`" + `]\s*,\s*([A-Za-z_$][A-Za-z0-9_$]*)`,
)

var jsImportRe = regexp.MustCompile(
	`(?:import\s+([A-Za-z_$][A-Za-z0-9_$]*)\s+from\s+['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]` +
		`|(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*require\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]\s*\))`,
)

// mountEdge records that fromFile mounts the router default-exported by the
// module at specifier, prefixed with prefix.
type mountEdge struct {
	fromFile  string
	prefix    string
	specifier string
}

// Index maps files to the HTTP routes they register (directly or via
// mounted sub-routers) and the inverse.
type Index struct {
	routesByFile map[string][]string
	filesByRoute map[string][]string
}

// Build scans files (repo-relative paths) under repoRoot and returns the
// resulting route index.
func Build(repoRoot string, files []string) (*Index, error) {
	directRoutes := make(map[string][]string)
	imports := make(map[string]map[string]string) // file -> localName -> specifier
	var mounts []mountEdge

	for _, rel := range files {
		if !isRouteCandidateExt(rel) {
			continue
		}

		source, err := os.ReadFile(filepath.Join(repoRoot, rel))
		if err != nil {
			continue
		}

		if !hasAnyToken(source) {
			continue
		}

		slashed := filepath.ToSlash(rel)

		directRoutes[slashed] = extractDirectRoutes(source)
		imports[slashed] = extractImports(source)
		mounts = append(mounts, extractMounts(slashed, source)...)
	}

	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[filepath.ToSlash(f)] = struct{}{}
	}

	resolvedMounts := resolveMounts(mounts, imports, known)

	effective := propagate(directRoutes, resolvedMounts)

	idx := &Index{
		routesByFile: effective,
		filesByRoute: make(map[string][]string),
	}

	for file, routes := range effective {
		for _, route := range dedupStrings(routes) {
			idx.filesByRoute[route] = append(idx.filesByRoute[route], file)
		}
	}

	for route := range idx.filesByRoute {
		idx.filesByRoute[route] = dedupStrings(idx.filesByRoute[route])
	}

	return idx, nil
}

func isRouteCandidateExt(rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".py":
		return true
	default:
		return false
	}
}

func hasAnyToken(source []byte) bool {
	for _, tok := range preFilterTokens {
		if bytes.Contains(source, tok) {
			return true
		}
	}

	return false
}

func extractDirectRoutes(source []byte) []string {
	var routes []string

	for _, m := range routeCallRe.FindAllSubmatch(source, -1) {
		routes = append(routes, string(m[1]))
	}

	for _, m := range decoratorRouteRe.FindAllSubmatch(source, -1) {
		routes = append(routes, string(m[1]))
	}

	return routes
}

func extractImports(source []byte) map[string]string {
	out := make(map[string]string)

	for _, m := range jsImportRe.FindAllSubmatch(source, -1) {
		switch {
		case len(m[1]) > 0:
			out[string(m[1])] = string(m[2])
		case len(m[3]) > 0:
			out[string(m[3])] = string(m[4])
		}
	}

	return out
}

func extractMounts(file string, source []byte) []mountEdge {
	var edges []mountEdge

	for _, m := range mountCallRe.FindAllSubmatch(source, -1) {
		edges = append(edges, mountEdge{fromFile: file, prefix: string(m[1]), specifier: string(m[2])})
	}

	return edges
}

// resolveMounts turns {fromFile, prefix, localName} edges into
// {fromFile, prefix, targetFile} edges by resolving localName back through
// fromFile's import table to a concrete file in the known set.
func resolveMounts(edges []mountEdge, imports map[string]map[string]string, known map[string]struct{}) []mountEdge {
	resolved := make([]mountEdge, 0, len(edges))

	for _, e := range edges {
		localImports := imports[e.fromFile]
		if localImports == nil {
			continue
		}

		spec, ok := localImports[e.specifier]
		if !ok {
			continue
		}

		target, ok := resolveRelativeJS(e.fromFile, spec, known)
		if !ok {
			continue
		}

		resolved = append(resolved, mountEdge{fromFile: e.fromFile, prefix: e.prefix, specifier: target})
	}

	return resolved
}

var jsResolutionSuffixes = []string{
	"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

func resolveRelativeJS(from, spec string, known map[string]struct{}) (string, bool) {
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

	return "", false
}

// propagate closes the direct-route map under mount edges: every route a
// mounted file defines becomes available, prefix-joined, on the mounting
// file, transitively. Cycles are broken by visited-set tracking per root.
func propagate(direct map[string][]string, mounts []mountEdge) map[string][]string {
	mountsByFile := make(map[string][]mountEdge)
	for _, e := range mounts {
		mountsByFile[e.fromFile] = append(mountsByFile[e.fromFile], e)
	}

	effective := make(map[string][]string, len(direct))

	for file := range direct {
		effective[file] = collectEffectiveRoutes(file, "", direct, mountsByFile, map[string]bool{})
	}

	return effective
}

func collectEffectiveRoutes(
	file, prefix string,
	direct map[string][]string,
	mountsByFile map[string][]mountEdge,
	visiting map[string]bool,
) []string {
	if visiting[file] {
		return nil
	}

	visiting[file] = true
	defer delete(visiting, file)

	var out []string

	for _, route := range direct[file] {
		out = append(out, joinPath(prefix, route))
	}

	for _, edge := range mountsByFile[file] {
		joined := joinPath(prefix, edge.prefix)
		out = append(out, collectEffectiveRoutes(edge.specifier, joined, direct, mountsByFile, visiting)...)
	}

	return out
}

// joinPath joins an HTTP path prefix and suffix, collapsing slashes and
// stripping any query string, fragment, or scheme+host the suffix carries.
func joinPath(prefix, suffix string) string {
	suffix = stripQueryFragment(suffix)
	suffix = stripSchemeHost(suffix)

	joined := path.Join("/", prefix, suffix)
	if joined == "" {
		joined = "/"
	}

	return joined
}

func stripQueryFragment(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	return p
}

func stripSchemeHost(p string) string {
	if idx := strings.Index(p, "://"); idx >= 0 {
		rest := p[idx+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			return rest[slash:]
		}

		return "/"
	}

	return p
}

// RoutesForFile returns the normalized HTTP routes file registers, directly
// or via mounted sub-routers.
func (idx *Index) RoutesForFile(file string) []string {
	return dedupStrings(idx.routesByFile[filepath.ToSlash(file)])
}

// FilesForRoute returns the router files that register route.
func (idx *Index) FilesForRoute(route string) []string {
	return append([]string(nil), idx.filesByRoute[route]...)
}

// StripParams returns route with every ":param"/"{param}" segment replaced
// by a wildcard marker, for the "route with param segments stripped" match
// variant used by selection's route augmentation.
func StripParams(route string) string {
	segments := strings.Split(route, "/")

	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") || (strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")) {
			segments[i] = "*"
		}
	}

	return strings.Join(segments, "/")
}

// ParentPrefix returns route with its final path segment removed, i.e. the
// mount prefix a sub-router would have been registered under.
func ParentPrefix(route string) string {
	idx := strings.LastIndex(strings.TrimSuffix(route, "/"), "/")
	if idx <= 0 {
		return "/"
	}

	return route[:idx]
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}

		out = append(out, s)
	}

	sort.Strings(out)

	return out
}
