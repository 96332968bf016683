package commands

import (
	"fmt"

	"github.com/headlamp-run/headlamp/internal/headlamperr"
	"github.com/headlamp-run/headlamp/internal/parsers"
	"github.com/headlamp-run/headlamp/internal/selection"
)

// dialect pairs a runner's invocation shape with the incremental parser
// that understands its output stream.
type dialect struct {
	language   selection.Language
	executable string
	baseArgs   []string
	newParser  func() parsers.Parser
}

// dialectFor resolves the --runner value to its language, executable, base
// argument vector, and output parser. jest and vitest both speak the
// bridge-JSON wire format (§4.C's C2); only their invocation differs.
func dialectFor(runnerName string) (dialect, error) {
	switch selection.Runner(runnerName) {
	case selection.RunnerJest:
		return dialect{
			language:   selection.LanguageTSJS,
			executable: "jest",
			baseArgs:   []string{"--reporters=default", "--reporters=./headlamp-jest-reporter"},
			newParser:  func() parsers.Parser { return parsers.NewJSBridgeParser() },
		}, nil
	case selection.RunnerVitest:
		return dialect{
			language:   selection.LanguageTSJS,
			executable: "vitest",
			baseArgs:   []string{"run", "--reporter=./headlamp-vitest-reporter.mjs"},
			newParser:  func() parsers.Parser { return parsers.NewJSBridgeParser() },
		}, nil
	case selection.RunnerPytest:
		return dialect{
			language:   selection.LanguagePython,
			executable: "pytest",
			baseArgs:   []string{"-q"},
			newParser:  func() parsers.Parser { return parsers.NewPytestParser() },
		}, nil
	case selection.RunnerCargoTest:
		return dialect{
			language:   selection.LanguageRust,
			executable: "cargo",
			baseArgs:   []string{"test"},
			newParser:  func() parsers.Parser { return parsers.NewCargoTestParser() },
		}, nil
	case selection.RunnerCargoNextest:
		return dialect{
			language:   selection.LanguageRust,
			executable: "cargo",
			baseArgs:   []string{"nextest", "run", "--message-format", "libtest-json"},
			newParser:  func() parsers.Parser { return parsers.NewNextestParser() },
		}, nil
	default:
		return dialect{}, fmt.Errorf("%w: unknown --runner %q", headlamperr.ErrMisuse, runnerName)
	}
}
