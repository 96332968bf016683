package parsers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headlamp-run/headlamp/internal/model"
	"github.com/headlamp-run/headlamp/internal/parsers"
)

func pushAll(p parsers.Parser, lines []string) {
	for _, line := range lines {
		p.PushLine(line)
	}
}

func findCase(t *testing.T, m *model.TestRunModel, name string) model.TestCaseResult {
	t.Helper()

	for _, suite := range m.Suites {
		for _, c := range suite.Cases {
			if c.Title == name || c.FullName == name {
				return c
			}
		}
	}

	t.Fatalf("case %q not found", name)

	return model.TestCaseResult{}
}

func TestNextestParser_SubMillisecondExecTime(t *testing.T) {
	t.Parallel()

	p := parsers.NewNextestParser()
	pushAll(p, []string{
		`{"type":"suite","event":"started","crate":"p","test_binary":"s","kind":"test"}`,
		`{"type":"test","event":"ok","name":"p::s$t","exec_time":0.0004}`,
		`{"type":"suite","event":"ok"}`,
	})

	run := p.Finalize()
	require.NotNil(t, run)

	c := findCase(t, run, "p::s$t")
	assert.Equal(t, model.CasePassed, c.Status)
	assert.Greater(t, c.DurationMS, 0.0)
	assert.Less(t, c.DurationMS, 1.0)
}

func TestNextestParser_FailedCaseCapturesStdoutAsFailureMessage(t *testing.T) {
	t.Parallel()

	p := parsers.NewNextestParser()
	pushAll(p, []string{
		`{"type":"suite","event":"started","crate":"p","test_binary":"s","kind":"test"}`,
		`{"type":"test","event":"failed","name":"p::s$t","exec_time":0.01,"stdout":"assertion failed"}`,
	})

	run := p.Finalize()
	require.NotNil(t, run)

	c := findCase(t, run, "p::s$t")
	assert.Equal(t, model.CaseFailed, c.Status)
	require.Len(t, c.FailureMessages, 1)
	assert.Contains(t, c.FailureMessages[0], "assertion failed")
	assert.False(t, run.Aggregate.Success)
}

func TestNextestParser_Finalize_NilWhenNoLinesSeen(t *testing.T) {
	t.Parallel()

	p := parsers.NewNextestParser()
	assert.Nil(t, p.Finalize())
}

func TestNextestParser_MalformedLineIsSwallowed(t *testing.T) {
	t.Parallel()

	p := parsers.NewNextestParser()
	events := p.PushLine("not json at all")
	assert.Nil(t, events)
	assert.Nil(t, p.Finalize())
}

func TestJSBridgeParser_MergesConsoleEventsByTestPath(t *testing.T) {
	t.Parallel()

	p := parsers.NewJSBridgeParser()
	pushAll(p, []string{
		`{"type":"suite","event":"started","testPath":"src/a.test.ts"}`,
		`[JEST-BRIDGE-EVENT] {"testPath":"src/a.test.ts","origin":"error","message":"console.error: boom"}`,
		`{"type":"test","event":"ok","testPath":"src/a.test.ts","fullName":"a test","title":"a test","durationMs":12.5}`,
	})

	run := p.Finalize()
	require.NotNil(t, run)
	require.Len(t, run.Suites, 1)
	require.Len(t, run.Suites[0].Console, 1)
	assert.Equal(t, "error", run.Suites[0].Console[0].Origin)
	assert.Contains(t, run.Suites[0].Console[0].Message, "boom")
}

func TestJSBridgeParser_FailedCaseKeepsFailureMessages(t *testing.T) {
	t.Parallel()

	p := parsers.NewJSBridgeParser()
	pushAll(p, []string{
		`{"type":"suite","event":"started","testPath":"src/a.test.ts"}`,
		`{"type":"test","event":"failed","testPath":"src/a.test.ts","fullName":"a test","title":"a test","failureMessages":["Expected: 1\nReceived: 2"]}`,
	})

	run := p.Finalize()
	require.NotNil(t, run)
	assert.Equal(t, model.SuiteFailed, run.Suites[0].Status)
	assert.Contains(t, run.Suites[0].Cases[0].FailureMessages[0], "Expected: 1")
}

func TestCargoTestParser_FailureScenario(t *testing.T) {
	t.Parallel()

	p := parsers.NewCargoTestParser()
	pushAll(p, []string{
		"Running tests/basic.rs (target/debug/deps/basic-abc123)",
		"running 2 tests",
		"test passes ... ok",
		"test fails ... FAILED",
		"",
		"---- fails stdout ----",
		"thread 'fails' panicked at tests/basic.rs:3:1:",
		"boom",
		"failures:",
		"    fails",
		"test result: FAILED. 1 passed; 1 failed; 0 ignored; 0 measured; 0 filtered out; finished in 0.00s",
	})

	run := p.Finalize()
	require.NotNil(t, run)
	require.Len(t, run.Suites, 1)

	c := findCase(t, run, "fails")
	assert.Equal(t, model.CaseFailed, c.Status)
	require.Len(t, c.FailureMessages, 1)
	assert.Contains(t, c.FailureMessages[0], "panicked at")
	assert.Contains(t, c.FailureMessages[0], "boom")
	assert.False(t, run.Aggregate.Success)

	passes := findCase(t, run, "passes")
	assert.Equal(t, model.CasePassed, passes.Status)
}

func TestCargoTestParser_ReportTimeDurationParsed(t *testing.T) {
	t.Parallel()

	p := parsers.NewCargoTestParser()
	pushAll(p, []string{
		"Running tests/basic.rs (target/debug/deps/basic-abc123)",
		"running 1 test",
		"test slow ... ok (1.500s)",
		"test result: ok. 1 passed; 0 failed; 0 ignored; 0 measured; 0 filtered out; finished in 1.50s",
	})

	run := p.Finalize()
	require.NotNil(t, run)

	c := findCase(t, run, "slow")
	assert.InDelta(t, 1500.0, c.DurationMS, 0.001)
}

func TestCargoTestParser_EmptySuiteDroppedAtFinalize(t *testing.T) {
	t.Parallel()

	p := parsers.NewCargoTestParser()
	pushAll(p, []string{
		"Running tests/empty.rs (target/debug/deps/empty-abc123)",
		"running 0 tests",
		"test result: ok. 0 passed; 0 failed; 0 ignored; 0 measured; 0 filtered out; finished in 0.00s",
	})

	run := p.Finalize()
	assert.Nil(t, run)
}

func TestPytestParser_FailureBlockAttachesAssertionAndLocation(t *testing.T) {
	t.Parallel()

	p := parsers.NewPytestParser()
	pushAll(p, []string{
		"tests/test_math.py::test_add PASSED",
		"tests/test_math.py::test_sub FAILED",
		"=================================== FAILURES ===================================",
		"___________________________________ test_sub ____________________________________",
		"    def test_sub():",
		">       assert sub(2, 1) == 0",
		"E       assert 1 == 0",
		`tests/test_math.py:10: AssertionError`,
		`File "tests/test_math.py", line 10, in test_sub`,
	})

	run := p.Finalize()
	require.NotNil(t, run)

	c := findCase(t, run, "test_sub")
	assert.Equal(t, model.CaseFailed, c.Status)
	require.Len(t, c.FailureMessages, 1)
	assert.Contains(t, c.FailureMessages[0], "assert 1 == 0")
	require.NotNil(t, c.Location)
	assert.Equal(t, 10, c.Location.Line)

	passed := findCase(t, run, "test_add")
	assert.Equal(t, model.CasePassed, passed.Status)
}

func TestPytestParser_NoFailures_NoSectionProduced(t *testing.T) {
	t.Parallel()

	p := parsers.NewPytestParser()
	pushAll(p, []string{
		"tests/test_math.py::test_add PASSED",
	})

	run := p.Finalize()
	require.NotNil(t, run)
	assert.True(t, run.Aggregate.Success)
}

func TestStripANSI_RemovesColorCodes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", parsers.StripANSI("\x1b[32mhello\x1b[0m"))
}

func TestClassifyConsoleOrigin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", parsers.ClassifyConsoleOrigin("console.error: boom"))
	assert.Equal(t, "log", parsers.ClassifyConsoleOrigin("plain line"))
	assert.True(t, parsers.IsErrorLevelOrigin("error"))
	assert.False(t, parsers.IsErrorLevelOrigin("log"))
}
