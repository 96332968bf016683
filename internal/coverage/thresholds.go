package coverage

import "fmt"

// Thresholds holds the configured minimum percentage for each axis; a nil
// pointer means that axis is unchecked.
type Thresholds struct {
	Lines      *float64
	Statements *float64
	Functions  *float64
	Branches   *float64
}

// axisCheck pairs an axis label with its configured/actual percentages.
type axisCheck struct {
	label    string
	expected *float64
	actual   float64
}

// CheckThresholds compares t's configured minimums against totals and
// returns one "<Axis>: <actual>% < <expected>% (short <delta>%)" line per
// axis that falls short, in Lines/Statements/Functions/Branches order. An
// empty result means every configured threshold was met.
func CheckThresholds(thr Thresholds, totals Totals) []string {
	checks := []axisCheck{
		{"Lines", thr.Lines, totals.LinesPct()},
		{"Statements", thr.Statements, totals.StatementsPct()},
		{"Functions", thr.Functions, totals.FunctionsPct()},
		{"Branches", thr.Branches, totals.BranchesPct()},
	}

	var lines []string

	for _, c := range checks {
		if c.expected == nil {
			continue
		}

		if c.actual >= *c.expected {
			continue
		}

		delta := *c.expected - c.actual
		lines = append(lines, fmt.Sprintf("%s: %.2f%% < %.0f%% (short %.2f%%)", c.label, c.actual, *c.expected, delta))
	}

	return lines
}
