package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/headlamp-run/headlamp/internal/model"
	"github.com/headlamp-run/headlamp/internal/parsers"
	"github.com/headlamp-run/headlamp/internal/render/terminal"
)

// maxConsoleLines caps the console section when show_logs is set; older
// entries are dropped, newest last.
const maxConsoleLines = 150

// Render turns m into the full text report: a run header, one block per
// suite, and a summary footer. When onlyFailures is true, passing suites
// (and the run header) are omitted entirely.
func Render(m *model.TestRunModel, ctx Ctx, onlyFailures bool) string {
	tc := ctx.terminalConfig()

	view := *m
	if onlyFailures {
		view = m.OnlyFailures()
	}

	suites := append([]model.TestSuiteResult(nil), view.Suites...)
	sort.Slice(suites, func(i, j int) bool {
		return suites[i].FilePath < suites[j].FilePath
	})

	var b strings.Builder

	if !onlyFailures {
		fmt.Fprintf(&b, " RUN %s\n\n", ctx.Cwd)
	}

	for i, suite := range suites {
		b.WriteString(renderSuite(suite, ctx, tc))

		if i < len(suites)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderFooter(view, tc))

	return b.String()
}

func renderSuite(suite model.TestSuiteResult, ctx Ctx, tc terminal.Config) string {
	var b strings.Builder

	badge := " PASS "
	badgeColor := terminal.ColorGreen
	if suite.Status == model.SuiteFailed {
		badge = " FAIL "
		badgeColor = terminal.ColorRed
	}

	path := terminal.ShortenPath(suite.FilePath, ctx.Width-len(badge)-1)
	fmt.Fprintf(&b, "%s %s\n", tc.Badge(badge, badgeColor), path)

	for _, c := range suite.Cases {
		glyph := StatusGlyph(c.Status, ctx.Unicode)

		glyphColor := terminal.ColorGreen
		switch c.Status {
		case model.CaseFailed:
			glyphColor = terminal.ColorRed
		case model.CasePending, model.CaseTodo:
			glyphColor = terminal.ColorYellow
		}

		fmt.Fprintf(&b, "  %s %s\n", tc.Colorize(glyph, glyphColor), c.Title)
	}

	if console := renderConsole(suite.Console, ctx, tc); console != "" {
		b.WriteString(console)
	}

	for _, c := range suite.Cases {
		if c.Status != model.CaseFailed {
			continue
		}

		b.WriteString(renderFailedCase(suite, c, ctx, tc))
	}

	return b.String()
}

func renderConsole(entries []model.ConsoleEntry, ctx Ctx, tc terminal.Config) string {
	if len(entries) == 0 {
		return ""
	}

	filtered := entries
	if !ctx.ShowLogs {
		kept := make([]model.ConsoleEntry, 0, len(entries))

		for _, e := range entries {
			if parsers.IsErrorLevelOrigin(e.Origin) {
				kept = append(kept, e)
			}
		}

		filtered = kept
	} else if len(filtered) > maxConsoleLines {
		filtered = filtered[len(filtered)-maxConsoleLines:]
	}

	if len(filtered) == 0 {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(tc.Colorize("  stderr/stdout:", terminal.ColorGray))
	b.WriteString("\n")

	for _, e := range filtered {
		fmt.Fprintf(&b, "  %s\n", e.Message)
	}

	return b.String()
}

func renderFailedCase(suite model.TestSuiteResult, c model.TestCaseResult, ctx Ctx, tc terminal.Config) string {
	var b strings.Builder

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", tc.Colorize("FAIL", terminal.ColorRed), c.FullName)

	for _, msg := range c.FailureMessages {
		head, frames := SplitStackTrace(msg)

		if a := ExtractAssertion(msg); a.Found {
			fmt.Fprintf(&b, "\n  %s %s\n", tc.Colorize("Expected:", terminal.ColorGreen), a.Expected)
			fmt.Fprintf(&b, "  %s %s\n", tc.Colorize("Received:", terminal.ColorRed), a.Received)
		}

		for _, line := range head {
			if line == "" {
				continue
			}

			fmt.Fprintf(&b, "  %s\n", line)
		}

		if HasInlineFrame(msg) {
			b.WriteString(RenderInlineFrame(msg, tc))
			b.WriteString("\n")
		} else if c.Location != nil {
			abs := AbsPath(ctx.Cwd, suite.FilePath)
			if frame, ok := RenderSourceFrame(abs, c.Location.Line, c.Location.Column, tc); ok {
				b.WriteString(frame)
				b.WriteString("\n")
			}
		}

		if filtered := FilterStackFrames(frames); len(filtered) > 0 {
			for _, line := range filtered {
				fmt.Fprintf(&b, "  %s\n", tc.Colorize(line, terminal.ColorGray))
			}
		}
	}

	if c.Location != nil {
		label := suite.FilePath + ":" + strconv.Itoa(c.Location.Line)

		uri := ""
		if ctx.EditorCmd != "" {
			uri = terminal.EditorURI(ctx.EditorCmd, AbsPath(ctx.Cwd, suite.FilePath), c.Location.Line, c.Location.Column)
		}

		fmt.Fprintf(&b, "  %s\n", terminal.Hyperlink(label, uri, ctx.IsTTY))
	}

	return b.String()
}

func renderFooter(m model.TestRunModel, tc terminal.Config) string {
	var b strings.Builder

	if m.Aggregate.FailedTests > 0 {
		fmt.Fprintf(&b, " %s %s\n", tc.Colorize("Failed Tests", terminal.ColorRed), strconv.Itoa(m.Aggregate.FailedTests))
		b.WriteString(tc.Rule(20))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, " Test Files  %d failed | %d passed (%d)\n",
		m.Aggregate.FailedSuites, m.Aggregate.PassedSuites, m.Aggregate.TotalSuites)
	fmt.Fprintf(&b, "      Tests  %d failed | %d passed (%d)\n",
		m.Aggregate.FailedTests, m.Aggregate.PassedTests, m.Aggregate.TotalTests)

	if m.Aggregate.RunTimeMS != nil {
		fmt.Fprintf(&b, "       Time  %s\n", PrettyDuration(*m.Aggregate.RunTimeMS))
	}

	return b.String()
}
