package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/headlamp-run/headlamp/internal/model"
)

func TestComputeAggregate_CountsAcrossSuites(t *testing.T) {
	t.Parallel()

	run := model.TestRunModel{
		Suites: []model.TestSuiteResult{
			{
				FilePath: "/repo/a.test.ts",
				Status:   model.SuitePassed,
				Cases: []model.TestCaseResult{
					{Title: "one", Status: model.CasePassed},
					{Title: "two", Status: model.CasePending},
				},
			},
			{
				FilePath: "/repo/b.test.ts",
				Status:   model.SuiteFailed,
				Cases: []model.TestCaseResult{
					{Title: "three", Status: model.CaseFailed},
					{Title: "four", Status: model.CaseTodo},
				},
			},
		},
	}

	agg := run.ComputeAggregate()

	assert.Equal(t, 2, agg.TotalSuites)
	assert.Equal(t, 1, agg.PassedSuites)
	assert.Equal(t, 1, agg.FailedSuites)
	assert.Equal(t, 4, agg.TotalTests)
	assert.Equal(t, 1, agg.PassedTests)
	assert.Equal(t, 1, agg.FailedTests)
	assert.Equal(t, 1, agg.PendingTests)
	assert.Equal(t, 1, agg.TodoTests)
	assert.False(t, agg.Success)
}

func TestComputeAggregate_SuccessWhenNoFailures(t *testing.T) {
	t.Parallel()

	run := model.TestRunModel{
		Suites: []model.TestSuiteResult{
			{
				FilePath: "/repo/a.test.ts",
				Status:   model.SuitePassed,
				Cases:    []model.TestCaseResult{{Title: "one", Status: model.CasePassed}},
			},
		},
	}

	agg := run.ComputeAggregate()
	assert.True(t, agg.Success)
}

func TestComputeAggregate_IsIdempotent(t *testing.T) {
	t.Parallel()

	run := model.TestRunModel{
		Suites: []model.TestSuiteResult{
			{
				FilePath: "/repo/a.test.ts",
				Status:   model.SuiteFailed,
				Cases:    []model.TestCaseResult{{Title: "one", Status: model.CaseFailed}},
			},
		},
	}

	first := run.ComputeAggregate()
	second := run.ComputeAggregate()
	assert.Equal(t, first, second)
}

func TestOnlyFailures_DropsPassingSuitesAndCases(t *testing.T) {
	t.Parallel()

	run := model.TestRunModel{
		Suites: []model.TestSuiteResult{
			{
				FilePath: "/repo/a.test.ts",
				Status:   model.SuitePassed,
				Cases:    []model.TestCaseResult{{Title: "one", Status: model.CasePassed}},
			},
			{
				FilePath: "/repo/b.test.ts",
				Status:   model.SuiteFailed,
				Cases: []model.TestCaseResult{
					{Title: "two", Status: model.CasePassed},
					{Title: "three", Status: model.CaseFailed},
				},
			},
		},
	}
	run.ComputeAggregate()

	filtered := run.OnlyFailures()

	if assert.Len(t, filtered.Suites, 1) {
		assert.Equal(t, "/repo/b.test.ts", filtered.Suites[0].FilePath)
		if assert.Len(t, filtered.Suites[0].Cases, 1) {
			assert.Equal(t, "three", filtered.Suites[0].Cases[0].Title)
		}
	}
	assert.Equal(t, run.Aggregate, filtered.Aggregate)
}

func TestOnlyFailures_EmptyWhenAllPassed(t *testing.T) {
	t.Parallel()

	run := model.TestRunModel{
		Suites: []model.TestSuiteResult{
			{
				FilePath: "/repo/a.test.ts",
				Status:   model.SuitePassed,
				Cases:    []model.TestCaseResult{{Title: "one", Status: model.CasePassed}},
			},
		},
	}

	filtered := run.OnlyFailures()
	assert.Empty(t, filtered.Suites)
}
