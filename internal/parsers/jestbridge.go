package parsers

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/headlamp-run/headlamp/internal/model"
)

// bridgeEventPrefix marks a console/log line emitted by the JS bridge
// reporter carrying a JSON payload, distinct from the structured JSON
// result lines it shares the stream with.
const bridgeEventPrefix = "[JEST-BRIDGE-EVENT] "

// bridgeLine is one structured JSON result line from the JS bridge.
type bridgeLine struct {
	Type            string    `json:"type"`
	Event           string    `json:"event"`
	TestPath        string    `json:"testPath,omitempty"`
	Title           string    `json:"title,omitempty"`
	FullName        string    `json:"fullName,omitempty"`
	Status          string    `json:"status,omitempty"`
	DurationMS      float64   `json:"durationMs,omitempty"`
	Location        *location `json:"location,omitempty"`
	FailureMessages []string  `json:"failureMessages,omitempty"`
}

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// bridgeConsolePayload is the JSON body of a "[JEST-BRIDGE-EVENT] <json>"
// console line.
type bridgeConsolePayload struct {
	TestPath string `json:"testPath"`
	Origin   string `json:"origin"`
	Message  string `json:"message"`
}

type jsBridgeSuiteState struct {
	suite model.TestSuiteResult
	cases map[string]int
}

// JSBridgeParser implements the C2 structured-JSON dialect (JS bridge).
type JSBridgeParser struct {
	suites  map[string]*jsBridgeSuiteState
	order   []string
	console []bridgeConsolePayload
}

// NewJSBridgeParser constructs an empty C2 parser.
func NewJSBridgeParser() *JSBridgeParser {
	return &JSBridgeParser{suites: make(map[string]*jsBridgeSuiteState)}
}

// PushLine implements Parser.
func (p *JSBridgeParser) PushLine(line string) []Event {
	stripped := StripANSI(line)

	if payload, ok := strings.CutPrefix(stripped, bridgeEventPrefix); ok {
		var console bridgeConsolePayload
		if err := json.Unmarshal([]byte(payload), &console); err == nil {
			p.console = append(p.console, console)
		}

		return []Event{{Kind: EventOutputLine, Line: line}}
	}

	var raw bridgeLine
	if err := json.Unmarshal([]byte(stripped), &raw); err != nil {
		return nil
	}

	switch raw.Type {
	case "suite":
		return p.handleSuite(raw)
	case "test":
		return p.handleTest(raw)
	default:
		return nil
	}
}

func (p *JSBridgeParser) handleSuite(raw bridgeLine) []Event {
	if raw.Event != "started" {
		return nil
	}

	if _, exists := p.suites[raw.TestPath]; !exists {
		p.suites[raw.TestPath] = &jsBridgeSuiteState{
			suite: model.TestSuiteResult{FilePath: raw.TestPath},
			cases: make(map[string]int),
		}
		p.order = append(p.order, raw.TestPath)
	}

	return []Event{{Kind: EventSuiteStarted, Suite: raw.TestPath}}
}

func (p *JSBridgeParser) handleTest(raw bridgeLine) []Event {
	if raw.Event == "started" {
		return nil
	}

	state, exists := p.suites[raw.TestPath]
	if !exists {
		state = &jsBridgeSuiteState{
			suite: model.TestSuiteResult{FilePath: raw.TestPath},
			cases: make(map[string]int),
		}
		p.suites[raw.TestPath] = state
		p.order = append(p.order, raw.TestPath)
	}

	status := model.CaseStatus(raw.Status)
	if status == "" {
		switch raw.Event {
		case "ok":
			status = model.CasePassed
		case "failed":
			status = model.CaseFailed
		case "ignored", "pending":
			status = model.CasePending
		default:
			status = model.CasePending
		}
	}

	caseResult := model.TestCaseResult{
		Title:           raw.Title,
		FullName:        raw.FullName,
		Status:          status,
		DurationMS:      raw.DurationMS,
		FailureMessages: raw.FailureMessages,
	}

	if raw.Location != nil {
		caseResult.Location = &model.Location{Line: raw.Location.Line, Column: raw.Location.Column}
	}

	key := raw.FullName
	if key == "" {
		key = raw.Title
	}

	if idx, ok := state.cases[key]; ok {
		state.suite.Cases[idx] = caseResult
	} else {
		state.cases[key] = len(state.suite.Cases)
		state.suite.Cases = append(state.suite.Cases, caseResult)
	}

	return []Event{{Kind: EventTestFinished, Suite: raw.TestPath, Name: key, Status: status, DurationMS: raw.DurationMS}}
}

// Finalize implements Parser. Buffered console events are merged into
// their matching suite here, after all lines have been consumed, per the
// dialect's documented ordering (console lines can arrive interleaved with
// or after the structured result line for the same test path).
func (p *JSBridgeParser) Finalize() *model.TestRunModel {
	if len(p.order) == 0 {
		return nil
	}

	order := append([]string(nil), p.order...)
	sort.Strings(order)

	result := &model.TestRunModel{}

	for _, testPath := range order {
		state := p.suites[testPath]

		suite := state.suite
		suite.Status = modelSuiteStatus(suite.Cases)

		for _, entry := range p.console {
			if entry.TestPath != testPath {
				continue
			}

			suite.Console = append(suite.Console, model.ConsoleEntry{Origin: entry.Origin, Message: entry.Message})
		}

		result.Suites = append(result.Suites, suite)
	}

	result.ComputeAggregate()

	return result
}
