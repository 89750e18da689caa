package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/ashureev/stepwise/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelExecutorDecodesFixture(t *testing.T) {
	t.Parallel()

	sol, err := NewModelExecutor(generator.NewMock(), nil).Execute(context.Background(), "q", generator.MockPlan)
	require.NoError(t, err)
	assert.Equal(t, "3", sol.FinalAnswer)
	require.Len(t, sol.Steps, 2)
	assert.Equal(t, 1, sol.Steps[0].Result.Value())
	assert.Equal(t, 2, sol.Steps[1].Index)
}

func TestModelExecutorRepairsOutput(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	gen := generator.Func(func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "Sure!\n```json\n{\"steps\": [{\"description\": \"add\", \"result\": [1, 2],}], \"final_answer\": \"3\",}\n```", nil
	})

	sol, err := NewModelExecutor(gen, nil).Execute(context.Background(), "What is 1+2?", "1. add")
	require.NoError(t, err)
	assert.Contains(t, gotPrompt, "What is 1+2?")
	assert.Contains(t, gotPrompt, "1. add")
	assert.Equal(t, "3", sol.FinalAnswer)
	require.Len(t, sol.Steps, 1)
	assert.Equal(t, 1, sol.Steps[0].Index)
	assert.Equal(t, []int{1, 2}, sol.Steps[0].Result.Values())
}

func TestModelExecutorRejectsGarbage(t *testing.T) {
	t.Parallel()

	gen := generator.Func(func(context.Context, string) (string, error) { return "   ", nil })
	_, err := NewModelExecutor(gen, nil).Execute(context.Background(), "q", "p")
	assert.ErrorIs(t, err, ErrMalformedModelOutput)

	boom := errors.New("quota exceeded")
	gen = generator.Func(func(context.Context, string) (string, error) { return "", boom })
	_, err = NewModelExecutor(gen, nil).Execute(context.Background(), "q", "p")
	assert.ErrorIs(t, err, boom)
}

func TestModelVerifierWithFixture(t *testing.T) {
	t.Parallel()

	v := NewModelVerifier(generator.NewMock(), nil)
	verdict := v.Verify(context.Background(), "q", &domain.Solution{
		Steps:       []domain.Step{{Index: 1, Description: "add", Result: domain.Scalar(3)}},
		FinalAnswer: "3",
	})
	assert.True(t, verdict.Passed)
	assert.Equal(t, "consistency_check", verdict.CheckName)
}

func TestModelVerifierFailureModes(t *testing.T) {
	t.Parallel()

	sol := &domain.Solution{FinalAnswer: "3"}
	tests := []struct {
		name   string
		output string
		err    error
		check  string
		detail string
	}{
		{name: "not json", output: "looks fine to me", check: domain.CheckVerifierOutput},
		{name: "missing passed", output: `{"details": "ok"}`, check: domain.CheckVerifierOutput, detail: "no passed field"},
		{name: "call error", err: errors.New("timeout"), check: domain.CheckVerifierOutput, detail: "timeout"},
		{name: "rejected", output: `{"passed": false, "check_name": "unit_check", "details": "wrong unit"}`, check: "unit_check", detail: "wrong unit"},
		{name: "default check name", output: `{"passed": false}`, check: "consistency_check"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := generator.Func(func(context.Context, string) (string, error) { return tt.output, tt.err })
			verdict := NewModelVerifier(gen, nil).Verify(context.Background(), "q", sol)
			assert.False(t, verdict.Passed)
			assert.Equal(t, tt.check, verdict.CheckName)
			if tt.detail != "" {
				assert.Contains(t, verdict.Details, tt.detail)
			}
		})
	}
}

func TestModelVerifierShortCircuitsMissingAnswer(t *testing.T) {
	t.Parallel()

	called := false
	gen := generator.Func(func(context.Context, string) (string, error) {
		called = true
		return `{"passed": true}`, nil
	})
	verdict := NewModelVerifier(gen, nil).Verify(context.Background(), "q", &domain.Solution{})
	assert.False(t, called)
	assert.Equal(t, domain.CheckSolutionExistence, verdict.CheckName)
}

func TestModelStagesEndToEnd(t *testing.T) {
	t.Parallel()

	res := NewLoop(generator.NewMock(), WithModelStages(generator.NewMock())).
		Solve(context.Background(), "What is the meaning of life?")
	require.NotNil(t, res.Answer)
	assert.Equal(t, "3", *res.Answer)
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "consistency_check", res.Metadata.Checks[0].CheckName)
}

func TestFormatPromptSinglePass(t *testing.T) {
	t.Parallel()

	out := formatPrompt("Q={question} P={plan}", map[string]string{
		"question": "what is {plan}?",
		"plan":     "step",
	})
	assert.Equal(t, "Q=what is {plan}? P=step", out)
	assert.False(t, strings.Contains(PlannerPrompt, "{{"))
}
