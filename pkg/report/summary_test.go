package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
	"github.com/Sumatoshi-tech/tracecov/pkg/report"
	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

func sampleModel() *coverage.Model {
	model := coverage.NewModel()

	for _, in := range []trace.Instruction{
		{Script: "a:1", PC: 0, File: "/src/a.js", Line: 5, Count: 3},
		{Script: "a:1", PC: 2, File: "/src/a.js", Line: 5, Count: 0},
		{Script: "a:1", PC: 4, File: "/src/a.js", Line: 6, Count: 0, Unreachable: true},
		{Script: "a:1", PC: 6, File: "/src/a.js", Line: 7, Count: 2},
		{Script: "b:1", PC: 0, File: "/src/b.py", Line: 1, Count: 0},
		{Script: "v:1", PC: 0, File: "/src/node_modules/dep/index.js", Line: 1, Count: 1},
	} {
		model.Add(in)
	}

	return model
}

func TestBuild(t *testing.T) {
	t.Parallel()

	model := sampleModel()
	s := report.Build(model.Files())

	require.Len(t, s.Files, 3)

	a := s.Files[0]
	assert.Equal(t, "/src/a.js", a.Name)
	assert.Equal(t, "JavaScript", a.Language)
	assert.Equal(t, 3, a.ExecutableLines)
	assert.Equal(t, coverage.Tally{Covered: 1, Partial: 1, Dead: 1}, a.Tally)
	assert.InDelta(t, 100.0/3, a.Percent.Full, 1e-9)
	assert.Equal(t, []report.LineEntry{
		{Line: 5, Verdict: "some", Instructions: 2, Executed: 1},
		{Line: 6, Verdict: "dead", Instructions: 1, Executed: 0},
		{Line: 7, Verdict: "full", Instructions: 1, Executed: 1},
	}, a.Lines)

	assert.Equal(t, "Python", s.Files[1].Language)

	assert.Equal(t, 3, s.Overall.Files)
	assert.Equal(t, 5, s.Overall.ExecutableLines)
	assert.Equal(t, coverage.Tally{Covered: 2, Partial: 1, Uncovered: 1, Dead: 1}, s.Overall.Tally)
	assert.InDelta(t, 60.0, s.Overall.Hit(), 1e-9)
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	s := report.Build(nil)

	assert.Empty(t, s.Files)
	assert.Equal(t, 0, s.Overall.ExecutableLines)
	assert.Equal(t, report.Percentages{}, s.Overall.Percent)
}

func TestSummary_Below(t *testing.T) {
	t.Parallel()

	s := report.Build(sampleModel().Files())

	assert.False(t, s.Below(0))
	assert.False(t, s.Below(60))
	assert.True(t, s.Below(60.1))
	assert.True(t, report.Build(nil).Below(1))
}

func TestSummary_WithWarnings(t *testing.T) {
	t.Parallel()

	model := sampleModel()
	files, warnings := model.Select([]string{"missing.js"})

	s := report.Build(files).WithWarnings(warnings)

	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "missing.js")
}

func TestSelectFiles(t *testing.T) {
	t.Parallel()

	model := sampleModel()

	t.Run("all_files", func(t *testing.T) {
		t.Parallel()

		files, warnings := report.SelectFiles(model, nil, report.SelectOptions{})
		assert.Len(t, files, 3)
		assert.Empty(t, warnings)
	})

	t.Run("skip_vendor", func(t *testing.T) {
		t.Parallel()

		files, _ := report.SelectFiles(model, nil, report.SelectOptions{SkipVendor: true})
		require.Len(t, files, 2)

		for _, f := range files {
			assert.NotContains(t, f.Name(), "node_modules")
		}
	})

	t.Run("targets_with_warning", func(t *testing.T) {
		t.Parallel()

		files, warnings := report.SelectFiles(model, []string{"b.py", "nope.js"}, report.SelectOptions{})
		require.Len(t, files, 1)
		assert.Equal(t, "/src/b.py", files[0].Name())
		require.Len(t, warnings, 1)
		assert.ErrorIs(t, warnings[0], coverage.ErrUnknownTarget)
	})
}
