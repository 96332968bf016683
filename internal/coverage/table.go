package coverage

import (
	"fmt"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/headlamp-run/headlamp/internal/render/terminal"
)

// maxConcentrationPenalty is the largest number of composite-percent
// points a single dominant hotspot can shave off a file's bar.
const maxConcentrationPenalty = 15

// CompositePercent is min(lines%, functions%, branches%) for f, reduced by
// up to maxConcentrationPenalty points when a single contiguous uncovered
// hotspot covers a large fraction of the file.
func CompositePercent(f *FileCoverage) float64 {
	totals := ComputeTotals([]*FileCoverage{f})

	composite := totals.LinesPct()
	if p := totals.FunctionsPct(); p < composite {
		composite = p
	}

	if p := totals.BranchesPct(); p < composite {
		composite = p
	}

	concentration := HotspotConcentration(f)
	penalty := math.Round(concentration * 50)

	if penalty > maxConcentrationPenalty {
		penalty = maxConcentrationPenalty
	}

	if penalty < 0 {
		penalty = 0
	}

	composite -= penalty
	if composite < 0 {
		composite = 0
	}

	return composite
}

// Row is one rendered line of the coverage roll-up table.
type Row struct {
	File       string
	Section    string
	Where      string
	LinesPct   float64
	Composite  float64
	FuncsPct   float64
	BranchPct  float64
	Detail     string
}

const pathColumnBudget = 40

// BuildRows produces one Row per file, sorted ascending by composite
// percent and capped to maxFiles.
func BuildRows(files map[string]*FileCoverage, root string, maxFiles int, maxHotspots int, editorCmd string, isTTY bool) []Row {
	paths := SortedPaths(files)

	rows := make([]Row, 0, len(paths))

	for _, path := range paths {
		f := files[path]
		totals := ComputeTotals([]*FileCoverage{f})

		rel := RelativeTo(root, path)
		hotspots := FindHotspots(f, maxHotspots)

		rows = append(rows, Row{
			File:      terminal.ShortenPath(rel, pathColumnBudget),
			Section:   rel,
			Where:     hotspotDetail(hotspots, rel, editorCmd, isTTY),
			LinesPct:  totals.LinesPct(),
			Composite: CompositePercent(f),
			FuncsPct:  totals.FunctionsPct(),
			BranchPct: totals.BranchesPct(),
			Detail:    fmt.Sprintf("%d hotspot(s)", len(hotspots)),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Composite < rows[j].Composite })

	if maxFiles > 0 && len(rows) > maxFiles {
		rows = rows[:maxFiles]
	}

	return rows
}

func hotspotDetail(hotspots []Hotspot, relPath, editorCmd string, isTTY bool) string {
	if len(hotspots) == 0 {
		return ""
	}

	h := hotspots[0]
	label := fmt.Sprintf("%s:%d-%d", relPath, h.StartLine, h.EndLine)

	uri := ""
	if editorCmd != "" {
		uri = terminal.EditorURI(editorCmd, relPath, h.StartLine, 1)
	}

	return terminal.Hyperlink(label, uri, isTTY)
}

// RenderTable draws the File | Section | Where | Lines% | Bar | Funcs% |
// Branch% | Detail roll-up using go-pretty, borderless to match the
// renderer's own plain-text aesthetic.
func RenderTable(rows []Row, tc terminal.Config) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	tbl.AppendHeader(table.Row{"File", "Section", "Where", "Lines%", "Bar", "Funcs%", "Branch%", "Detail"})

	for _, r := range rows {
		tbl.AppendRow(table.Row{
			r.File,
			r.Section,
			r.Where,
			fmt.Sprintf("%.1f", r.LinesPct),
			tc.Bar(r.Composite/100, 20),
			fmt.Sprintf("%.1f", r.FuncsPct),
			fmt.Sprintf("%.1f", r.BranchPct),
			r.Detail,
		})
	}

	return tbl.Render()
}
