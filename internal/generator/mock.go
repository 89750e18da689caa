package generator

import (
	"context"
	"strings"
)

// MockPlan is the plan text the fixture returns for planning prompts.
const MockPlan = "1. Parse the question and identify key numbers and relationships.\n" +
	"2. Extract quantities such as counts, times, or amounts.\n" +
	"3. Perform the necessary arithmetic or time calculations.\n" +
	"4. Validate that the result is consistent with the question.\n" +
	"5. Format and return the final answer."

const mockExecutorJSON = `
{
  "steps": [
    {"step": 1, "description": "Mock calculation step 1", "result": 1},
    {"step": 2, "description": "Mock calculation step 2", "result": 2}
  ],
  "final_answer": "3"
}
`

const mockVerifierJSON = `
{
  "passed": true,
  "check_name": "consistency_check",
  "details": "Mock verifier: assuming solution is consistent."
}
`

// MockFallback is returned for prompts the fixture does not recognise.
const MockFallback = "Mock response"

// Mock is a stateless fixture that recognises the agent's prompt shapes and
// answers each with canned text. It is safe for concurrent use.
type Mock struct{}

// NewMock returns the fixture generator.
func NewMock() *Mock {
	return &Mock{}
}

// Generate returns canned output keyed on markers in the prompt.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(prompt, "Plan:") && strings.Contains(prompt, "Question:"):
		return MockPlan, nil
	case strings.Contains(prompt, "PROPOSED SOLUTION:"):
		// Checked before the executor marker: the embedded solution carries "steps".
		return mockVerifierJSON, nil
	case strings.Contains(prompt, "OUTPUT JSON:") && strings.Contains(prompt, `"steps"`):
		return mockExecutorJSON, nil
	default:
		return MockFallback, nil
	}
}
