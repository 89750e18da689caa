package agent

import (
	"context"

	"github.com/ashureev/stepwise/internal/domain"
)

// Verifier judges a proposed solution. It never fails; a rejected solution is
// a verdict with Passed == false.
type Verifier interface {
	Verify(ctx context.Context, question string, solution *domain.Solution) domain.Verdict
}

// ExistenceVerifier only checks that a final answer exists. It does not
// compare the answer against the question.
type ExistenceVerifier struct{}

// NewExistenceVerifier returns the deterministic verifier.
func NewExistenceVerifier() *ExistenceVerifier {
	return &ExistenceVerifier{}
}

// Verify passes any solution with a non-empty final answer.
func (v *ExistenceVerifier) Verify(_ context.Context, _ string, solution *domain.Solution) domain.Verdict {
	if !solution.HasAnswer() {
		return domain.Verdict{
			CheckName: domain.CheckSolutionExistence,
			Passed:    false,
			Details:   "Final answer is missing",
		}
	}
	return domain.Verdict{
		CheckName: domain.CheckBasicConsistency,
		Passed:    true,
		Details:   "Final answer exists and basic checks passed",
	}
}
