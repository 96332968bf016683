package parsers

import (
	"encoding/json"
	"sort"

	"github.com/headlamp-run/headlamp/internal/model"
)

// nextestLine is one JSON object from a structured Rust test driver's
// stdout, one per line, discriminated by Type/Event.
type nextestLine struct {
	Type       string  `json:"type"`
	Event      string  `json:"event"`
	Name       string  `json:"name,omitempty"`
	ExecTime   float64 `json:"exec_time,omitempty"`
	Stdout     string  `json:"stdout,omitempty"`
	Crate      string  `json:"crate,omitempty"`
	TestBinary string  `json:"test_binary,omitempty"`
	Kind       string  `json:"kind,omitempty"`
}

// nextestSuiteKey is the (crate, test_binary, kind) triple a JSON run
// groups its test events under.
type nextestSuiteKey struct {
	crate      string
	testBinary string
	kind       string
}

type nextestSuiteState struct {
	key   nextestSuiteKey
	suite model.TestSuiteResult
	cases map[string]int // case name -> index into suite.Cases
}

// NextestParser implements the C1 structured-JSON dialect (nextest-style
// driver).
type NextestParser struct {
	suites  map[nextestSuiteKey]*nextestSuiteState
	order   []nextestSuiteKey
	current nextestSuiteKey
	hasCur  bool
}

// NewNextestParser constructs an empty C1 parser.
func NewNextestParser() *NextestParser {
	return &NextestParser{suites: make(map[nextestSuiteKey]*nextestSuiteState)}
}

// PushLine implements Parser.
func (p *NextestParser) PushLine(line string) []Event {
	line = StripANSI(line)

	var raw nextestLine
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
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

func (p *NextestParser) handleSuite(raw nextestLine) []Event {
	key := nextestSuiteKey{crate: raw.Crate, testBinary: raw.TestBinary, kind: raw.Kind}

	if raw.Event == "started" {
		if _, exists := p.suites[key]; !exists {
			p.suites[key] = &nextestSuiteState{
				key:   key,
				suite: model.TestSuiteResult{FilePath: suiteFilePath(key)},
				cases: make(map[string]int),
			}
			p.order = append(p.order, key)
		}

		p.current = key
		p.hasCur = true

		return []Event{{Kind: EventSuiteStarted, Suite: suiteFilePath(key)}}
	}

	// Any other suite event (ok/failed) just ends the current grouping;
	// the suite's own pass/fail status is derived from its cases at
	// Finalize time so case-by-case streaming stays the source of truth.
	if p.hasCur && p.current == key {
		p.hasCur = false
	}

	return nil
}

func suiteFilePath(key nextestSuiteKey) string {
	switch {
	case key.crate != "" && key.testBinary != "":
		return key.crate + "::" + key.testBinary
	case key.testBinary != "":
		return key.testBinary
	case key.crate != "":
		return key.crate
	default:
		return "unknown"
	}
}

func (p *NextestParser) handleTest(raw nextestLine) []Event {
	if raw.Event == "started" {
		return nil
	}

	key := p.current
	if !p.hasCur {
		key = nextestSuiteKey{}

		if _, exists := p.suites[key]; !exists {
			p.suites[key] = &nextestSuiteState{
				key:   key,
				suite: model.TestSuiteResult{FilePath: suiteFilePath(key)},
				cases: make(map[string]int),
			}
			p.order = append(p.order, key)
		}
	}

	state := p.suites[key]

	status := model.CasePending

	switch raw.Event {
	case "ok":
		status = model.CasePassed
	case "failed":
		status = model.CaseFailed
	case "ignored":
		status = model.CasePending
	}

	durationMS := raw.ExecTime * 1000

	caseResult := model.TestCaseResult{
		Title:      raw.Name,
		FullName:   raw.Name,
		Status:     status,
		DurationMS: durationMS,
	}

	if status == model.CaseFailed && raw.Stdout != "" {
		caseResult.FailureMessages = []string{raw.Stdout}
		caseResult.Location = locationIfSuiteMatches(raw.Stdout, state.suite.FilePath)
	}

	if idx, exists := state.cases[raw.Name]; exists {
		state.suite.Cases[idx] = caseResult
	} else {
		state.cases[raw.Name] = len(state.suite.Cases)
		state.suite.Cases = append(state.suite.Cases, caseResult)
	}

	return []Event{{Kind: EventTestFinished, Suite: state.suite.FilePath, Name: raw.Name, Status: status, DurationMS: durationMS}}
}

// Finalize implements Parser.
func (p *NextestParser) Finalize() *model.TestRunModel {
	if len(p.order) == 0 {
		return nil
	}

	keys := append([]nextestSuiteKey(nil), p.order...)
	sort.Slice(keys, func(i, j int) bool { return suiteFilePath(keys[i]) < suiteFilePath(keys[j]) })

	result := &model.TestRunModel{}

	for _, key := range keys {
		state := p.suites[key]

		suite := state.suite
		suite.Status = modelSuiteStatus(suite.Cases)
		result.Suites = append(result.Suites, suite)
	}

	result.ComputeAggregate()

	return result
}

func modelSuiteStatus(cases []model.TestCaseResult) model.SuiteStatus {
	for _, c := range cases {
		if c.Status == model.CaseFailed {
			return model.SuiteFailed
		}
	}

	return model.SuitePassed
}
