// Package parsers implements the four runner-output dialect state machines
// described for headlamp's streaming result model: two structured JSON
// drivers (nextest-style, JS bridge) and two unstructured text drivers
// (cargo test, pytest). Every dialect shares the same incremental shape:
// PushLine consumes one line and returns zero or more Events; Finalize
// freezes whatever has been parsed so far into a model.TestRunModel.
// Finalize is idempotent; PushLine is stateful.
package parsers

import "github.com/headlamp-run/headlamp/internal/model"

// EventKind discriminates the Event variants a dialect parser can emit.
// Represented as a tagged variant rather than a class hierarchy: each
// dialect is a small state machine that owns its own buffered context and
// only surfaces these three shapes to callers (e.g. the live-progress
// adapter in internal/runner).
type EventKind string

// Supported event kinds.
const (
	EventSuiteStarted EventKind = "suite_started"
	EventTestFinished EventKind = "test_finished"
	EventOutputLine   EventKind = "output_line"
)

// Event is one state transition surfaced while a dialect parser consumes
// lines. Only the fields relevant to Kind are populated.
type Event struct {
	Kind       EventKind
	Suite      string
	Name       string
	Status     model.CaseStatus
	DurationMS float64
	Line       string
}

// Parser is the shape every dialect implements.
type Parser interface {
	// PushLine feeds one line of runner output and returns any events it
	// produced. Malformed lines are swallowed, never returned as an error:
	// per the error-handling policy, a parser never aborts a run over one
	// bad line.
	PushLine(line string) []Event

	// Finalize freezes the parser's state into a TestRunModel with a
	// freshly computed Aggregate. It returns nil if no suite was ever
	// observed. Calling it more than once returns byte-stable results.
	Finalize() *model.TestRunModel
}
