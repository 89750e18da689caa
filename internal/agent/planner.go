package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/stepwise/internal/generator"
)

// Planner produces a free-text plan for a question.
type Planner interface {
	Plan(ctx context.Context, question string) (string, error)
}

// GeneratorPlanner asks a text generator for a plan. The output is not
// validated; empty plans are accepted.
type GeneratorPlanner struct {
	gen generator.Generator
}

// NewPlanner creates a planner backed by gen.
func NewPlanner(gen generator.Generator) *GeneratorPlanner {
	return &GeneratorPlanner{gen: gen}
}

// Plan formats the planning prompt and returns the trimmed generator output.
func (p *GeneratorPlanner) Plan(ctx context.Context, question string) (string, error) {
	prompt := formatPrompt(PlannerPrompt, map[string]string{"question": question})
	plan, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("plan: %w", err)
	}
	return strings.TrimSpace(plan), nil
}
