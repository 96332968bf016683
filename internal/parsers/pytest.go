package parsers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/headlamp-run/headlamp/internal/model"
)

var (
	pytestFailuresHdrRe = regexp.MustCompile(`^=+\s*FAILURES\s*=+$`)
	pytestSectionHdrRe  = regexp.MustCompile(`^_+ (.+?) _+$`)
	pytestResultLineRe  = regexp.MustCompile(`^(\S+\.py)::(\S+)\s+(PASSED|FAILED|SKIPPED|XFAIL|XPASS)\b`)
	pytestAssertLineRe  = regexp.MustCompile(`^E(?:\s(.*))?$`)
)

// PytestParser implements the C4 unstructured-text dialect (pytest).
type PytestParser struct {
	suites map[string]*pytestSuiteState
	order  []string

	inFailures   bool
	currentBlock string // test name between "___ name ___" markers
	assertLines  []string
	tracebackLoc *model.Location
}

type pytestSuiteState struct {
	suite model.TestSuiteResult
	cases map[string]int
}

// NewPytestParser constructs an empty C4 parser.
func NewPytestParser() *PytestParser {
	return &PytestParser{suites: make(map[string]*pytestSuiteState)}
}

// PushLine implements Parser.
func (p *PytestParser) PushLine(rawLine string) []Event {
	line := StripANSI(rawLine)
	trimmed := strings.TrimRight(line, " \t")

	switch {
	case pytestFailuresHdrRe.MatchString(trimmed):
		p.endBlock()
		p.inFailures = true

		return nil

	case pytestSectionHdrRe.MatchString(trimmed) && p.inFailures:
		p.endBlock()
		p.currentBlock = pytestSectionHdrRe.FindStringSubmatch(trimmed)[1]

		return nil

	case pytestResultLineRe.MatchString(trimmed):
		m := pytestResultLineRe.FindStringSubmatch(trimmed)
		suitePath, name, verdict := m[1], m[2], m[3]

		status := model.CasePending

		switch verdict {
		case "PASSED":
			status = model.CasePassed
		case "FAILED", "XPASS":
			status = model.CaseFailed
		case "SKIPPED", "XFAIL":
			status = model.CasePending
		}

		p.upsertCase(suitePath, name, status)

		return []Event{{Kind: EventTestFinished, Suite: suitePath, Name: name, Status: status}}

	default:
		if p.inFailures && p.currentBlock != "" {
			if m := pytestAssertLineRe.FindStringSubmatch(trimmed); m != nil {
				p.assertLines = append(p.assertLines, m[1])
			}

			if loc := firstPytestLocation(line); loc != nil && p.tracebackLoc == nil {
				p.tracebackLoc = loc
			}

			return nil
		}

		return []Event{{Kind: EventOutputLine, Line: rawLine}}
	}
}

func (p *PytestParser) endBlock() {
	if p.currentBlock == "" {
		return
	}

	suitePath, name := p.resolveBlockTarget(p.currentBlock)

	if suitePath != "" {
		state := p.suiteState(suitePath)

		if idx, ok := state.cases[name]; ok {
			caseResult := state.suite.Cases[idx]
			caseResult.Status = model.CaseFailed

			if len(p.assertLines) > 0 {
				caseResult.FailureMessages = []string{strings.Join(p.assertLines, "\n")}
			}

			if p.tracebackLoc != nil {
				caseResult.Location = p.tracebackLoc
			}

			state.suite.Cases[idx] = caseResult
		}
	}

	p.currentBlock = ""
	p.assertLines = nil
	p.tracebackLoc = nil
}

// resolveBlockTarget maps a "___ <name> ___" block header to the
// (suitePath, caseName) it refers to. pytest's failure block header uses
// the bare test name (optionally "Class.method"); the matching case was
// already upserted from a "<path>::<name> <VERDICT>" result line, so the
// suite is found by scanning for a case with that name.
func (p *PytestParser) resolveBlockTarget(blockName string) (string, string) {
	for _, suitePath := range p.order {
		state := p.suites[suitePath]
		if _, ok := state.cases[blockName]; ok {
			return suitePath, blockName
		}
	}

	return "", blockName
}

func (p *PytestParser) suiteState(suitePath string) *pytestSuiteState {
	state, exists := p.suites[suitePath]
	if !exists {
		state = &pytestSuiteState{
			suite: model.TestSuiteResult{FilePath: suitePath},
			cases: make(map[string]int),
		}
		p.suites[suitePath] = state
		p.order = append(p.order, suitePath)
	}

	return state
}

func (p *PytestParser) upsertCase(suitePath, name string, status model.CaseStatus) {
	state := p.suiteState(suitePath)

	caseResult := model.TestCaseResult{Title: name, FullName: name, Status: status}

	if idx, ok := state.cases[name]; ok {
		caseResult.FailureMessages = state.suite.Cases[idx].FailureMessages
		caseResult.Location = state.suite.Cases[idx].Location
		state.suite.Cases[idx] = caseResult
	} else {
		state.cases[name] = len(state.suite.Cases)
		state.suite.Cases = append(state.suite.Cases, caseResult)
	}
}

// Finalize implements Parser.
func (p *PytestParser) Finalize() *model.TestRunModel {
	p.endBlock()

	if len(p.order) == 0 {
		return nil
	}

	order := append([]string(nil), p.order...)
	sort.Strings(order)

	result := &model.TestRunModel{}

	for _, suitePath := range order {
		state := p.suites[suitePath]

		suite := state.suite
		suite.Status = modelSuiteStatus(suite.Cases)
		result.Suites = append(result.Suites, suite)
	}

	result.ComputeAggregate()

	return result
}
