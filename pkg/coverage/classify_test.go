package coverage_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

func ins(pc int, count uint64, unreachable bool) trace.Instruction {
	return trace.Instruction{Script: "s", PC: pc, File: "a.js", Line: 1, Count: count, Unreachable: unreachable}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		instructions []trace.Instruction
		want         coverage.Verdict
	}{
		{"single_hit", []trace.Instruction{ins(0, 1, false)}, coverage.VerdictFull},
		{"all_hit", []trace.Instruction{ins(0, 1, false), ins(1, 900, false)}, coverage.VerdictFull},
		{"mixed", []trace.Instruction{ins(0, 3, false), ins(1, 0, false)}, coverage.VerdictSome},
		{"mixed_reversed", []trace.Instruction{ins(0, 0, false), ins(1, 3, false)}, coverage.VerdictSome},
		{"never_run", []trace.Instruction{ins(0, 0, false), ins(1, 0, false)}, coverage.VerdictNone},
		{"dead", []trace.Instruction{ins(0, 0, true)}, coverage.VerdictDead},
		{"dead_with_plain_miss", []trace.Instruction{ins(0, 0, true), ins(1, 0, false)}, coverage.VerdictDead},
		{"unreachable_but_executed", []trace.Instruction{ins(0, 5, true)}, coverage.VerdictFull},
		{"unreachable_miss_next_to_hit", []trace.Instruction{ins(0, 0, true), ins(1, 2, false)}, coverage.VerdictSome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := coverage.Classify(tt.instructions)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_EmptyIsNotExecutable(t *testing.T) {
	t.Parallel()

	_, ok := coverage.Classify(nil)
	assert.False(t, ok)
}

func TestClassify_MixedIsAlwaysSome(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	for range 200 {
		n := 2 + rng.Intn(6)
		set := make([]trace.Instruction, n)

		set[0] = ins(0, 0, false)
		set[1] = ins(1, uint64(1+rng.Intn(1<<20)), false)

		for i := 2; i < n; i++ {
			set[i] = ins(i, uint64(rng.Intn(2)*rng.Intn(1000)), false)
		}

		rng.Shuffle(n, func(i, j int) { set[i], set[j] = set[j], set[i] })

		got, ok := coverage.Classify(set)
		require.True(t, ok)
		assert.Equal(t, coverage.VerdictSome, got)
	}
}

func TestVerdict_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range coverage.Verdicts {
		text, err := v.MarshalText()
		require.NoError(t, err)

		var back coverage.Verdict
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, v, back)
	}

	_, err := coverage.ParseVerdict("partial")
	require.ErrorIs(t, err, coverage.ErrUnknownVerdict)

	_, err = coverage.Verdict(0).MarshalText()
	require.ErrorIs(t, err, coverage.ErrUnknownVerdict)
}

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, coverage.Percent(1, 2), 1e-9)
	assert.Equal(t, 0.0, coverage.Percent(3, 0))
	assert.Equal(t, "33.3", coverage.FormatPercent(1, 3))
	assert.Equal(t, "66.7", coverage.FormatPercent(2, 3))
	assert.Equal(t, "0.0", coverage.FormatPercent(0, 0))
	assert.Equal(t, "100.0", coverage.FormatPercent(4, 4))
}

func TestTally(t *testing.T) {
	t.Parallel()

	a := coverage.Tally{Covered: 1, Partial: 2, Uncovered: 3, Dead: 4}
	b := coverage.Tally{Covered: 10, Dead: 1}

	sum := a.Add(b)
	assert.Equal(t, coverage.Tally{Covered: 11, Partial: 2, Uncovered: 3, Dead: 5}, sum)
	assert.Equal(t, 21, sum.Total())
	assert.Equal(t, 5, sum.Count(coverage.VerdictDead))
	assert.InDelta(t, 100.0*11/21, sum.Percent(coverage.VerdictFull), 1e-9)
	assert.Equal(t, 0.0, coverage.Tally{}.Percent(coverage.VerdictFull))
}
