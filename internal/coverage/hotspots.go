package coverage

import (
	"sort"

	"github.com/headlamp-run/headlamp/pkg/alg/interval"
)

// Hotspot is one contiguous run of uncovered lines in a file.
type Hotspot struct {
	StartLine int
	EndLine   int
}

// size is the number of lines the hotspot spans.
func (h Hotspot) size() int { return h.EndLine - h.StartLine + 1 }

// FindHotspots groups f's uncovered (hit count 0) lines into contiguous
// ranges, merging adjacent and overlapping runs with an interval tree, and
// returns up to max ranges ordered largest-first.
func FindHotspots(f *FileCoverage, maxHotspots int) []Hotspot {
	uncovered := make([]int, 0, len(f.Lines))

	for line, hits := range f.Lines {
		if hits == 0 {
			uncovered = append(uncovered, line)
		}
	}

	sort.Ints(uncovered)

	tree := interval.New[int, int]()

	for _, line := range uncovered {
		// Query one line past either edge so touching (not just
		// overlapping) ranges merge into a single run.
		overlapping := tree.QueryOverlap(line-1, line+1)

		start, end := line, line
		for _, iv := range overlapping {
			tree.Delete(iv.Low, iv.High, iv.Value)

			if iv.Low < start {
				start = iv.Low
			}

			if iv.High > end {
				end = iv.High
			}
		}

		tree.Insert(start, end, 0)
	}

	ranges := tree.QueryOverlap(minInt(uncovered), maxInt(uncovered))

	hotspots := make([]Hotspot, 0, len(ranges))
	for _, iv := range ranges {
		hotspots = append(hotspots, Hotspot{StartLine: iv.Low, EndLine: iv.High})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		return hotspots[i].size() > hotspots[j].size()
	})

	if maxHotspots > 0 && len(hotspots) > maxHotspots {
		hotspots = hotspots[:maxHotspots]
	}

	return hotspots
}

// HotspotConcentration is the fraction of a file's total lines covered by
// its single largest uncovered hotspot, used by the composite bar-percent
// penalty.
func HotspotConcentration(f *FileCoverage) float64 {
	if len(f.Lines) == 0 {
		return 0
	}

	hotspots := FindHotspots(f, 0)
	if len(hotspots) == 0 {
		return 0
	}

	return float64(hotspots[0].size()) / float64(len(f.Lines))
}

func minInt(xs []int) int {
	if len(xs) == 0 {
		return 0
	}

	m := xs[0]
	for _, x := range xs {
		if x < m {
			m = x
		}
	}

	return m
}

func maxInt(xs []int) int {
	if len(xs) == 0 {
		return 0
	}

	m := xs[0]
	for _, x := range xs {
		if x > m {
			m = x
		}
	}

	return m
}
