package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/ashureev/stepwise/internal/generator"
	"github.com/kaptinlin/jsonrepair"
)

// ModelExecutor asks a generator to execute the plan and decodes the JSON it
// returns. Unlike RuleBasedExecutor it consumes the plan.
type ModelExecutor struct {
	gen    generator.Generator
	logger *slog.Logger
}

// NewModelExecutor creates an executor backed by gen.
func NewModelExecutor(gen generator.Generator, logger *slog.Logger) *ModelExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelExecutor{gen: gen, logger: logger}
}

// Execute formats the executor prompt and decodes the response into a Solution.
func (e *ModelExecutor) Execute(ctx context.Context, question, plan string) (*domain.Solution, error) {
	prompt := formatPrompt(ExecutorPrompt, map[string]string{
		"question": question,
		"plan":     plan,
	})
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	var sol domain.Solution
	if err := decodeModelJSON(raw, &sol); err != nil {
		e.logger.Warn("executor output could not be decoded", "error", err, "output_len", len(raw))
		return nil, err
	}
	for i := range sol.Steps {
		if sol.Steps[i].Index <= 0 {
			sol.Steps[i].Index = i + 1
		}
	}
	return &sol, nil
}

// ModelVerifier asks a generator to judge a solution. Undecodable responses
// become failed verdicts rather than errors.
type ModelVerifier struct {
	gen    generator.Generator
	logger *slog.Logger
}

// NewModelVerifier creates a verifier backed by gen.
func NewModelVerifier(gen generator.Generator, logger *slog.Logger) *ModelVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelVerifier{gen: gen, logger: logger}
}

// Verify never returns an error; every failure mode is a failed verdict.
func (v *ModelVerifier) Verify(ctx context.Context, question string, solution *domain.Solution) domain.Verdict {
	if !solution.HasAnswer() {
		return NewExistenceVerifier().Verify(ctx, question, solution)
	}

	encoded, err := json.MarshalIndent(solution, "", "  ")
	if err != nil {
		return failedVerdict(fmt.Sprintf("encode solution: %v", err))
	}
	prompt := formatPrompt(VerifierPrompt, map[string]string{
		"question": question,
		"solution": string(encoded),
	})

	raw, err := v.gen.Generate(ctx, prompt)
	if err != nil {
		return failedVerdict(fmt.Sprintf("verifier call failed: %v", err))
	}

	var out struct {
		Passed    *bool  `json:"passed"`
		CheckName string `json:"check_name"`
		Details   string `json:"details"`
	}
	if err := decodeModelJSON(raw, &out); err != nil {
		v.logger.Warn("verifier output could not be decoded", "error", err, "output_len", len(raw))
		return failedVerdict(err.Error())
	}
	if out.Passed == nil {
		return failedVerdict("verifier output has no passed field")
	}
	if out.CheckName == "" {
		out.CheckName = "consistency_check"
	}
	return domain.Verdict{CheckName: out.CheckName, Passed: *out.Passed, Details: out.Details}
}

func failedVerdict(details string) domain.Verdict {
	return domain.Verdict{CheckName: domain.CheckVerifierOutput, Passed: false, Details: details}
}

// decodeModelJSON isolates the outermost JSON object in raw, repairs common
// model mistakes (trailing commas, single quotes, fences) and decodes it.
func decodeModelJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedModelOutput)
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}
	return nil
}
