package agent

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/ashureev/stepwise/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBasedExecutorScenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		question  string
		rule      Rule
		answer    string
		firstStep []int
		lastStep  int
	}{
		{
			name:      "journey duration",
			question:  "A train leaves at 14:30 and arrives at 18:05. How long is the journey?",
			rule:      RuleTimeDifference,
			answer:    "3 hours 35 minutes",
			firstStep: []int{870, 1085},
			lastStep:  215,
		},
		{
			name:      "whole hours omit minutes",
			question:  "The shop opens at 9:00 and closes at 17:00.",
			rule:      RuleTimeDifference,
			answer:    "8 hours",
			firstStep: []int{540, 1020},
			lastStep:  480,
		},
		{
			name:      "same time",
			question:  "From 10:15 to 10:15, nothing happened.",
			rule:      RuleTimeDifference,
			answer:    "0 hours",
			firstStep: []int{615, 615},
			lastStep:  0,
		},
		{
			name:      "flour per batch",
			question:  "A recipe needs 2 cups of flour per batch. How much flour is needed for 3 batches?",
			rule:      RulePerUnit,
			answer:    "6",
			firstStep: []int{2, 3},
			lastStep:  6,
		},
		{
			name:      "extra numbers ignored by product",
			question:  "Each box holds 12 eggs. There are 4 boxes and 7 crates.",
			rule:      RulePerUnit,
			answer:    "48",
			firstStep: []int{12, 4, 7},
			lastStep:  48,
		},
		{
			name:      "apples summed",
			question:  "Alice has 3 red apples and 5 green apples. How many total?",
			rule:      RuleSummation,
			answer:    "8",
			firstStep: []int{3, 5},
			lastStep:  8,
		},
		{
			name:      "single number with keyword falls through to sum",
			question:  "Each student brought 4 pencils.",
			rule:      RuleSummation,
			answer:    "4",
			firstStep: []int{4},
			lastStep:  4,
		},
		{
			name:      "one clock token is just numbers",
			question:  "At 14:30 I bought 2 coffees.",
			rule:      RuleSummation,
			answer:    "46",
			firstStep: []int{14, 30, 2},
			lastStep:  46,
		},
		{
			name:      "third clock token ignored",
			question:  "Depart 08:10, arrive 09:40, return 07:00.",
			rule:      RuleTimeDifference,
			answer:    "1 hours 30 minutes",
			firstStep: []int{490, 580},
			lastStep:  90,
		},
	}

	exec := NewRuleBasedExecutor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rule, Classify(tt.question))

			sol, err := exec.Execute(context.Background(), tt.question, "ignored plan")
			require.NoError(t, err)
			assert.Equal(t, tt.answer, sol.FinalAnswer)
			require.Len(t, sol.Steps, 2)
			assert.Equal(t, 1, sol.Steps[0].Index)
			assert.Equal(t, 2, sol.Steps[1].Index)
			assert.True(t, sol.Steps[0].Result.IsList())
			assert.Equal(t, tt.firstStep, sol.Steps[0].Result.Values())
			assert.False(t, sol.Steps[1].Result.IsList())
			assert.Equal(t, tt.lastStep, sol.Steps[1].Result.Value())
		})
	}
}

func TestRuleBasedExecutorIgnoresPlan(t *testing.T) {
	t.Parallel()

	exec := NewRuleBasedExecutor()
	q := "Alice has 3 red apples and 5 green apples."
	a, err := exec.Execute(context.Background(), q, "")
	require.NoError(t, err)
	b, err := exec.Execute(context.Background(), q, "1. multiply everything by ten")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRuleBasedExecutorInvalidTimeRange(t *testing.T) {
	t.Parallel()

	_, err := NewRuleBasedExecutor().Execute(context.Background(), "We start at 09:00 and end at 08:00.", "")
	require.ErrorIs(t, err, ErrInvalidTimeRange)
	assert.Equal(t, "End time is earlier than start time", err.Error())
}

func TestRuleBasedExecutorUnsolvable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RuleNone, Classify("What is the meaning of life?"))
	_, err := NewRuleBasedExecutor().Execute(context.Background(), "What is the meaning of life?", "")
	assert.ErrorIs(t, err, ErrUnsolvable)

	assert.Equal(t, RuleNone, Classify("٣ and ٥"), "only ASCII digits count")
}

func TestRuleBasedExecutorNumberOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := NewRuleBasedExecutor().Execute(context.Background(), "I own 123456789012345678901234567890 marbles.", "")
	assert.ErrorIs(t, err, ErrNumberOutOfRange)
}

func TestRuleBasedExecutorArithmeticOverflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		question string
	}{
		{"product", "Each crate holds 9999999999 jars and we have 9999999999 crates."},
		{"sum", "I have 9223372036854775807 coins and find 1 more."},
	}
	exec := NewRuleBasedExecutor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := exec.Execute(context.Background(), tt.question, "")
			require.ErrorIs(t, err, ErrNumberOutOfRange)
			assert.Nil(t, sol)

			res := NewLoop(generator.NewMock()).Solve(context.Background(), tt.question)
			assert.Equal(t, domain.StatusFailed, res.Status)
			assert.Nil(t, res.Answer)
			for _, c := range res.Metadata.Checks {
				assert.Equal(t, domain.CheckExecutionError, c.CheckName)
			}
		})
	}
}

func TestRuleBasedExecutorLargeButRepresentable(t *testing.T) {
	t.Parallel()

	sol, err := NewRuleBasedExecutor().Execute(context.Background(), "Each crate holds 3037000499 jars and we have 3037000499 crates.", "")
	require.NoError(t, err)
	assert.Equal(t, "9223372030926249001", sol.FinalAnswer)

	sol, err = NewRuleBasedExecutor().Execute(context.Background(), "I have 9223372036854775806 coins and find 1 more.", "")
	require.NoError(t, err)
	assert.Equal(t, "9223372036854775807", sol.FinalAnswer)
}

func TestTimeDifferenceProperties(t *testing.T) {
	t.Parallel()

	exec := NewRuleBasedExecutor()
	for start := 0; start < 24*60; start += 37 {
		for end := 0; end < 24*60; end += 53 {
			q := fmt.Sprintf("Leave at %d:%02d, arrive at %d:%02d.", start/60, start%60, end/60, end%60)
			sol, err := exec.Execute(context.Background(), q, "")
			if end < start {
				require.ErrorIs(t, err, ErrInvalidTimeRange, q)
				continue
			}
			require.NoError(t, err, q)

			diff := end - start
			want := strconv.Itoa(diff/60) + " hours"
			if diff%60 != 0 {
				want += " " + strconv.Itoa(diff%60) + " minutes"
			}
			require.Equal(t, want, sol.FinalAnswer, q)
		}
	}
}

func TestPerUnitAndSumProperties(t *testing.T) {
	t.Parallel()

	exec := NewRuleBasedExecutor()
	for a := 1; a < 40; a += 3 {
		for b := 1; b < 40; b += 7 {
			c := a + b

			perQ := fmt.Sprintf("There are %d seats per row, %d rows and %d ushers.", a, b, c)
			sol, err := exec.Execute(context.Background(), perQ, "")
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(a*b), sol.FinalAnswer, perQ)

			sumQ := fmt.Sprintf("Tom has %d marbles, Ann has %d and Bo has %d.", a, b, c)
			sol, err = exec.Execute(context.Background(), sumQ, "")
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(a+b+c), sol.FinalAnswer, sumQ)
		}
	}
}
