package parsers

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/headlamp-run/headlamp/internal/model"
)

var (
	cargoRunningRe     = regexp.MustCompile(`^\s*Running(?: unittests)? (\S+)(?:\s*\(.*\))?\s*$`)
	cargoRunningNRe    = regexp.MustCompile(`^running (\d+) tests?$`)
	cargoTestOkRe      = regexp.MustCompile(`^test (.+?) \.\.\. ok(?: \(([0-9.]+)(s|ms|µs|us|ns)\))?\s*$`)
	cargoTestFailedRe  = regexp.MustCompile(`^test (.+?) \.\.\. FAILED\s*$`)
	cargoTestIgnoreRe  = regexp.MustCompile(`^test (.+?) \.\.\. ignored\s*$`)
	cargoStdoutHdrRe   = regexp.MustCompile(`^---- (.+?) stdout ----\s*$`)
	cargoPanicHdrRe    = regexp.MustCompile(`^thread '(.+?)' panicked at `)
	cargoTestResultRe  = regexp.MustCompile(`^test result: `)
	cargoFailuresHdrRe = regexp.MustCompile(`^failures:\s*$`)
)

type cargoSuiteState struct {
	suite     model.TestSuiteResult
	cases     map[string]int
	testCount int
	sawCount  bool
}

// CargoTestParser implements the C3 unstructured-text dialect (cargo
// test).
type CargoTestParser struct {
	suites  []cargoSuiteState
	current *cargoSuiteState

	capturing    string // case name currently capturing output, "" if none
	captureLines []string
	pendingBlank bool

	captured map[string]string // case name -> captured output, per current suite
}

// NewCargoTestParser constructs an empty C3 parser.
func NewCargoTestParser() *CargoTestParser {
	return &CargoTestParser{}
}

// PushLine implements Parser.
func (p *CargoTestParser) PushLine(rawLine string) []Event {
	line := StripANSI(rawLine)
	trimmed := strings.TrimRight(line, " \t")

	if p.capturing != "" {
		if trimmed == "" {
			p.pendingBlank = true
			return nil
		}

		endsSection := cargoFailuresHdrRe.MatchString(trimmed) || cargoTestResultRe.MatchString(trimmed) || cargoRunningRe.MatchString(trimmed)

		if endsSection {
			p.endCapture()
			p.pendingBlank = false
			// fall through: this line is processed normally below.
		} else {
			if p.pendingBlank {
				p.captureLines = append(p.captureLines, "")
				p.pendingBlank = false
			}

			if !cargoStdoutHdrRe.MatchString(trimmed) {
				p.captureLines = append(p.captureLines, line)
				return nil
			}
			// a nested "---- name stdout ----" header starts a fresh
			// capture; fall through to the switch below.
		}
	}

	switch {
	case cargoRunningRe.MatchString(trimmed):
		return p.startSuite(cargoRunningRe.FindStringSubmatch(trimmed)[1])

	case cargoRunningNRe.MatchString(trimmed):
		if p.current != nil {
			n, _ := strconv.Atoi(cargoRunningNRe.FindStringSubmatch(trimmed)[1])
			p.current.testCount = n
			p.current.sawCount = true
		}

		return nil

	case cargoTestOkRe.MatchString(trimmed):
		m := cargoTestOkRe.FindStringSubmatch(trimmed)
		durationMS := 0.0

		if m[2] != "" {
			durationMS = parseRustDuration(m[2], m[3])
		}

		p.upsertCase(m[1], model.CasePassed, durationMS)

		return []Event{{Kind: EventTestFinished, Name: m[1], Status: model.CasePassed, DurationMS: durationMS}}

	case cargoTestFailedRe.MatchString(trimmed):
		name := cargoTestFailedRe.FindStringSubmatch(trimmed)[1]
		p.upsertCase(name, model.CaseFailed, 0)

		return []Event{{Kind: EventTestFinished, Name: name, Status: model.CaseFailed}}

	case cargoTestIgnoreRe.MatchString(trimmed):
		name := cargoTestIgnoreRe.FindStringSubmatch(trimmed)[1]
		p.upsertCase(name, model.CasePending, 0)

		return []Event{{Kind: EventTestFinished, Name: name, Status: model.CasePending}}

	case cargoStdoutHdrRe.MatchString(trimmed):
		p.beginCapture(cargoStdoutHdrRe.FindStringSubmatch(trimmed)[1])
		return nil

	case cargoPanicHdrRe.MatchString(trimmed):
		p.beginCapture(cargoPanicHdrRe.FindStringSubmatch(trimmed)[1])
		p.captureLines = append(p.captureLines, line)

		return nil

	case cargoTestResultRe.MatchString(trimmed):
		p.endCapture()
		p.closeSuite()

		return nil

	default:
		return []Event{{Kind: EventOutputLine, Line: rawLine}}
	}
}

func (p *CargoTestParser) startSuite(path string) []Event {
	p.closeSuite()

	p.suites = append(p.suites, cargoSuiteState{
		suite: model.TestSuiteResult{FilePath: path},
		cases: make(map[string]int),
	})
	p.current = &p.suites[len(p.suites)-1]
	p.captured = make(map[string]string)

	return []Event{{Kind: EventSuiteStarted, Suite: path}}
}

func (p *CargoTestParser) beginCapture(name string) {
	p.endCapture()
	p.capturing = name
	p.captureLines = nil
	p.pendingBlank = false
}

func (p *CargoTestParser) endCapture() {
	if p.capturing == "" {
		return
	}

	if p.captured == nil {
		p.captured = make(map[string]string)
	}

	text := strings.Join(p.captureLines, "\n")
	if existing, ok := p.captured[p.capturing]; ok {
		text = existing + "\n" + text
	}

	p.captured[p.capturing] = text
	p.capturing = ""
	p.captureLines = nil
	p.pendingBlank = false
}

func (p *CargoTestParser) upsertCase(name string, status model.CaseStatus, durationMS float64) {
	if p.current == nil {
		p.startSuite("unknown")
	}

	caseResult := model.TestCaseResult{Title: name, FullName: name, Status: status, DurationMS: durationMS}

	if idx, ok := p.current.cases[name]; ok {
		caseResult.FailureMessages = p.current.suite.Cases[idx].FailureMessages
		p.current.suite.Cases[idx] = caseResult
	} else {
		p.current.cases[name] = len(p.current.suite.Cases)
		p.current.suite.Cases = append(p.current.suite.Cases, caseResult)
	}
}

func (p *CargoTestParser) closeSuite() {
	p.endCapture()

	if p.current == nil {
		return
	}

	p.attachCaptures()

	if p.current.sawCount && p.current.testCount == 0 {
		p.suites = p.suites[:len(p.suites)-1]
	}

	p.current = nil
	p.captured = nil
}

func (p *CargoTestParser) attachCaptures() {
	if p.current == nil {
		return
	}

	for name, text := range p.captured {
		idx, ok := p.current.cases[name]
		if !ok {
			continue
		}

		caseResult := p.current.suite.Cases[idx]
		if caseResult.Status != model.CaseFailed {
			continue
		}

		caseResult.FailureMessages = append(caseResult.FailureMessages, text)
		caseResult.Location = locationIfSuiteMatches(text, p.current.suite.FilePath)
		p.current.suite.Cases[idx] = caseResult
	}
}

// parseRustDuration converts a cargo test "(<n><unit>)" report-time suffix
// to milliseconds, preserving sub-millisecond precision.
func parseRustDuration(value, unit string) float64 {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	switch unit {
	case "s":
		return n * 1000
	case "ms":
		return n
	case "µs", "us":
		return n / 1000
	case "ns":
		return n / 1_000_000
	default:
		return n
	}
}

// Finalize implements Parser.
func (p *CargoTestParser) Finalize() *model.TestRunModel {
	p.closeSuite()

	if len(p.suites) == 0 {
		return nil
	}

	ordered := append([]cargoSuiteState(nil), p.suites...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].suite.FilePath < ordered[j].suite.FilePath })

	result := &model.TestRunModel{}

	for _, state := range ordered {
		suite := state.suite
		suite.Status = modelSuiteStatus(suite.Cases)
		result.Suites = append(result.Suites, suite)
	}

	result.ComputeAggregate()

	return result
}
