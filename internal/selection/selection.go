// Package selection maps a user's seed (explicit paths, a changed-files
// mode, or nothing) to the runner-specific argument vector that executes
// exactly the relevant tests. It composes internal/gitscan for seed
// gathering, internal/depgraph for transitive import refinement, and
// internal/routeindex for HTTP route augmentation.
package selection

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/headlamp-run/headlamp/internal/depgraph"
	"github.com/headlamp-run/headlamp/internal/routeindex"
)

// Language identifies which test runner family drives argv construction.
type Language string

// Supported languages.
const (
	LanguageTSJS   Language = "tsjs"
	LanguageRust   Language = "rust"
	LanguagePython Language = "python"
)

// Runner identifies the concrete test runner within a language family.
type Runner string

// Supported runners.
const (
	RunnerJest          Runner = "jest"
	RunnerVitest        Runner = "vitest"
	RunnerPytest        Runner = "pytest"
	RunnerCargoTest     Runner = "cargo-test"
	RunnerCargoNextest  Runner = "cargo-nextest"
)

// Input is everything the pipeline needs to produce a Plan.
type Input struct {
	RepoRoot       string
	SelectionPaths []string // explicit paths/glob-ish tokens from the CLI.
	ChangedFiles   []string // files reported by the git collaborator; nil when changed_mode=none.
	ChangedDepth   int      // max BFS depth for transitive import refinement.
	Language       Language
	Runner         Runner
	AllFiles       []string // every repo-relative source file under consideration, for classification/import resolution.
}

// Plan is component A's output: a runner argv, optional environment
// variables, and a selected-test count (nil means "no selection made",
// i.e. the runner executes its own default set).
type Plan struct {
	Argv          []string
	Env           map[string]string
	SelectedCount *int
}

// Select runs the full selection pipeline described by the state machine:
// no seeds -> default; direct test seeds -> those; production seeds only
// -> transitive + route refinement; no seeds of either kind -> empty plan.
func Select(in Input) (*Plan, error) {
	seeds := gatherSeeds(in)
	if len(seeds) == 0 {
		return &Plan{SelectedCount: nil}, nil
	}

	classified := classifyAll(in.RepoRoot, in.Language, seeds)

	var directTests, productionSeeds []string

	for _, seed := range seeds {
		switch classified[seed] {
		case KindTest, KindMixed:
			directTests = append(directTests, seed)
		case KindProduction:
			productionSeeds = append(productionSeeds, seed)
		case KindUnknown:
		}
	}

	if len(directTests) > 0 {
		ranked := make([]rankedTest, 0, len(directTests))
		for _, t := range directTests {
			ranked = append(ranked, rankedTest{path: t, rank: rankDirect})
		}

		return planFromRanked(in, ranked)
	}

	if len(productionSeeds) == 0 {
		count := 0

		return &Plan{Argv: nil, SelectedCount: &count}, nil
	}

	ranked, err := refine(in, productionSeeds)
	if err != nil {
		return nil, err
	}

	return planFromRanked(in, ranked)
}

func gatherSeeds(in Input) []string {
	if len(in.SelectionPaths) > 0 {
		return append([]string(nil), in.SelectionPaths...)
	}

	return append([]string(nil), in.ChangedFiles...)
}

// Kind classifies a seed file.
type Kind int

// Classification outcomes.
const (
	KindUnknown Kind = iota
	KindTest
	KindProduction
	KindMixed
)

func planFromRanked(in Input, ranked []rankedTest) (*Plan, error) {
	sortRanked(ranked)

	argv, env := buildArgv(in.Language, in.Runner, ranked)
	count := len(ranked)

	return &Plan{Argv: argv, Env: env, SelectedCount: &count}, nil
}

// rankDirect/rankTransitive/rankRoute order the three match origins for
// the deterministic tie-break described by the selection ranking rules.
const (
	rankDirect = iota
	rankTransitive
	rankRoute
)

type rankedTest struct {
	path  string
	rank  int
	depth int
}

func sortRanked(tests []rankedTest) {
	sort.SliceStable(tests, func(i, j int) bool {
		a, b := tests[i], tests[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}

		if a.rank == rankTransitive && a.depth != b.depth {
			return a.depth < b.depth
		}

		return a.path < b.path
	})
}

// refine performs transitive import refinement and route-based
// augmentation over the production seeds, returning every matching test
// file ranked per the selection tie-break rules.
func refine(in Input, productionSeeds []string) ([]rankedTest, error) {
	testFiles := testFilesIn(classifyAll(in.RepoRoot, in.Language, in.AllFiles))

	ex := depgraph.NewExtractor()

	graph, err := depgraph.Build(in.RepoRoot, in.AllFiles, ex)
	if err != nil {
		return nil, err
	}

	depth := in.ChangedDepth
	if depth <= 0 {
		depth = defaultChangedDepth
	}

	matched := make(map[string]rankedTest)

	for testFile := range testFiles {
		hit, ok := matchesAnySeed(in.RepoRoot, graph, testFile, productionSeeds, depth)
		if !ok {
			continue
		}

		if existing, seen := matched[testFile]; !seen || hit.depth < existing.depth {
			matched[testFile] = hit
		}
	}

	if isRouteCapableLanguage(in.Language) {
		idx, err := routeindex.Build(in.RepoRoot, in.AllFiles)
		if err != nil {
			return nil, err
		}

		for _, seed := range productionSeeds {
			for _, hit := range routeMatches(in.RepoRoot, idx, testFiles, seed) {
				if _, ok := matched[hit]; !ok {
					matched[hit] = rankedTest{path: hit, rank: rankRoute}
				}
			}
		}
	}

	out := make([]rankedTest, 0, len(matched))
	for _, v := range matched {
		out = append(out, v)
	}

	return out, nil
}

const defaultChangedDepth = 5

func testFilesIn(classified map[string]Kind) map[string]bool {
	out := make(map[string]bool)

	for path, kind := range classified {
		if kind == KindTest || kind == KindMixed {
			out[path] = true
		}
	}

	return out
}

// matchesAnySeed walks testFile's own import graph breadth-first up to
// maxDepth edges; at each visited file it checks whether the file's raw
// content contains any of the seed terms derived from any production seed.
// The first (shallowest) match wins.
func matchesAnySeed(
	repoRoot string,
	graph *depgraph.Graph,
	testFile string,
	productionSeeds []string,
	maxDepth int,
) (rankedTest, bool) {
	termsBySeed := make([][]string, len(productionSeeds))
	for i, seed := range productionSeeds {
		termsBySeed[i] = seedTerms(seed)
	}

	visited := map[string]int{filepath.ToSlash(testFile): 0}
	queue := []string{filepath.ToSlash(testFile)}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		depth := visited[cur]

		content, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(cur)))
		if err == nil {
			for _, terms := range termsBySeed {
				if containsAny(string(content), terms) {
					return rankedTest{path: testFile, rank: rankTransitive, depth: depth}, true
				}
			}
		}

		if depth >= maxDepth {
			continue
		}

		for _, imported := range graph.Imports(cur) {
			if _, seen := visited[imported]; seen {
				continue
			}

			visited[imported] = depth + 1
			queue = append(queue, imported)
		}
	}

	return rankedTest{}, false
}

func containsAny(haystack string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(haystack, term) {
			return true
		}
	}

	return false
}

func isRouteCapableLanguage(lang Language) bool {
	return lang == LanguageTSJS || lang == LanguagePython
}

// routeMatches finds the test files whose content contains any of the
// route match variants {full route, param-stripped route, parent prefix}
// for every route the seed file registers.
func routeMatches(repoRoot string, idx *routeindex.Index, testFiles map[string]bool, seed string) []string {
	routes := idx.RoutesForFile(seed)
	if len(routes) == 0 {
		return nil
	}

	var needles []string

	for _, route := range routes {
		needles = append(needles, route, routeindex.StripParams(route), routeindex.ParentPrefix(route))
	}

	needles = dedupStrings(needles)

	var hits []string

	for testFile := range testFiles {
		content, err := os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(testFile)))
		if err != nil {
			continue
		}

		if containsAny(string(content), needles) {
			hits = append(hits, testFile)
		}
	}

	return hits
}

// seedTerms derives the match terms for route/transitive augmentation from
// a repo-relative path: the full path without extension, the base name,
// and the last two path segments.
func seedTerms(seed string) []string {
	noExt := strings.TrimSuffix(seed, filepath.Ext(seed))
	base := filepath.Base(noExt)

	segments := strings.Split(filepath.ToSlash(noExt), "/")

	terms := []string{noExt, base}

	if len(segments) >= 2 {
		terms = append(terms, strings.Join(segments[len(segments)-2:], "/"))
	}

	return dedupStrings(terms)
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}

		out = append(out, s)
	}

	return out
}
