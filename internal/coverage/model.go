// Package coverage reads one or more LCOV streams, optionally enriched by
// a per-language statement-hit supplement (llvm-cov JSON for Rust,
// coveragepy JSON for Python, Istanbul JSON for TS/JS), merges and filters
// them, aggregates four coverage axes, checks configured thresholds, and
// renders the pretty roll-up table headlamp prints after a coverage run.
package coverage

import "sort"

// FunctionCoverage is one function's definition line and call count.
type FunctionCoverage struct {
	Line int
	Hits int
}

// FileCoverage accumulates LCOV records for a single source file,
// resolved to an absolute POSIX path.
type FileCoverage struct {
	Path string

	// Functions is keyed by the (already dedup-collapsed) function name.
	Functions map[string]FunctionCoverage

	// Lines maps 1-based line number to hit count.
	Lines map[int]int

	// Statements maps 1-based line/region identifier to hit count. Seeded
	// from Lines when no language-specific supplement is attached, then
	// replaced wholesale by AttachSupplements when one is.
	Statements map[int]int

	// Branches maps a "<line>,<block>,<branch>" key to its taken count.
	Branches map[string]int
}

func newFileCoverage(path string) *FileCoverage {
	return &FileCoverage{
		Path:       path,
		Functions:  make(map[string]FunctionCoverage),
		Lines:      make(map[int]int),
		Statements: make(map[int]int),
		Branches:   make(map[string]int),
	}
}

// Totals aggregates hit/total counts across the four coverage axes.
type Totals struct {
	LinesTotal, LinesCovered           int
	StatementsTotal, StatementsCovered int
	FunctionsTotal, FunctionsCovered   int
	BranchesTotal, BranchesCovered     int
}

// LinesPct, StatementsPct, FunctionsPct, BranchesPct report each axis as a
// 0–100 percentage, 100 when the axis has zero total (vacuously covered).
func (t Totals) LinesPct() float64 { return pct(t.LinesCovered, t.LinesTotal) }

func (t Totals) StatementsPct() float64 { return pct(t.StatementsCovered, t.StatementsTotal) }

func (t Totals) FunctionsPct() float64 { return pct(t.FunctionsCovered, t.FunctionsTotal) }

func (t Totals) BranchesPct() float64 { return pct(t.BranchesCovered, t.BranchesTotal) }

func pct(covered, total int) float64 {
	if total == 0 {
		return 100
	}

	return 100 * float64(covered) / float64(total)
}

// ComputeTotals sums the four axes of every file in files into one Totals.
func ComputeTotals(files []*FileCoverage) Totals {
	var t Totals

	for _, f := range files {
		t.LinesTotal += len(f.Lines)
		for _, hits := range f.Lines {
			if hits > 0 {
				t.LinesCovered++
			}
		}

		t.StatementsTotal += len(f.Statements)
		for _, hits := range f.Statements {
			if hits > 0 {
				t.StatementsCovered++
			}
		}

		t.FunctionsTotal += len(f.Functions)
		for _, fn := range f.Functions {
			if fn.Hits > 0 {
				t.FunctionsCovered++
			}
		}

		t.BranchesTotal += len(f.Branches)
		for _, hits := range f.Branches {
			if hits > 0 {
				t.BranchesCovered++
			}
		}
	}

	return t
}

// SortedPaths returns the file paths in files, sorted ascending.
func SortedPaths(files map[string]*FileCoverage) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}
