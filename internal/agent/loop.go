// Package agent implements the plan / execute / verify reasoning loop.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/ashureev/stepwise/internal/generator"
)

// DefaultMaxRetries is the number of re-attempts after the first attempt.
const DefaultMaxRetries = 2

// Human-readable summaries attached to every result.
const (
	ReasoningSuccess = "The agent planned the solution, executed it step-by-step, " +
		"and verified the result successfully."
	ReasoningFailure = "The agent could not confidently solve and verify the problem."
)

// Attempt outcomes reported to an Observer.
const (
	OutcomePassed         = "passed"
	OutcomeFailedCheck    = "failed_check"
	OutcomeExecutionError = "execution_error"
)

// Observer receives loop telemetry. Implementations must be safe for
// concurrent use when the Loop is shared.
type Observer interface {
	ObserveAttempt(outcome string)
	ObserveSolve(status domain.Status, elapsed time.Duration)
}

// ExecutorMode selects the executor/verifier pair.
type ExecutorMode string

const (
	// ModeDeterministic uses RuleBasedExecutor and ExistenceVerifier.
	ModeDeterministic ExecutorMode = "deterministic"
	// ModeModel uses ModelExecutor and ModelVerifier.
	ModeModel ExecutorMode = "model"
)

// ParseExecutorMode validates a mode name.
func ParseExecutorMode(s string) (ExecutorMode, bool) {
	switch ExecutorMode(s) {
	case ModeDeterministic, ModeModel:
		return ExecutorMode(s), true
	default:
		return "", false
	}
}

// Loop drives planner, executor and verifier with bounded retries. A Loop is
// immutable after construction; each Solve call owns its own state.
type Loop struct {
	planner    Planner
	executor   Executor
	verifier   Verifier
	maxRetries int
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxRetries sets the retry bound. Negative values are treated as zero.
func WithMaxRetries(n int) Option {
	return func(l *Loop) {
		if n < 0 {
			n = 0
		}
		l.maxRetries = n
	}
}

// WithPlanner replaces the generator-backed planner.
func WithPlanner(p Planner) Option {
	return func(l *Loop) { l.planner = p }
}

// WithExecutor replaces the deterministic executor.
func WithExecutor(e Executor) Option {
	return func(l *Loop) { l.executor = e }
}

// WithVerifier replaces the deterministic verifier.
func WithVerifier(v Verifier) Option {
	return func(l *Loop) { l.verifier = v }
}

// WithModelStages swaps in the model-driven executor and verifier, both
// backed by gen.
func WithModelStages(gen generator.Generator) Option {
	return func(l *Loop) {
		l.executor = NewModelExecutor(gen, l.logger)
		l.verifier = NewModelVerifier(gen, l.logger)
	}
}

// WithObserver attaches telemetry.
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// WithLogger sets the logger. Pass it before WithModelStages to share it.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop builds a loop that plans with gen and, unless overridden, executes
// and verifies deterministically.
func NewLoop(gen generator.Generator, opts ...Option) *Loop {
	l := &Loop{
		planner:    NewPlanner(gen),
		executor:   NewRuleBasedExecutor(),
		verifier:   NewExistenceVerifier(),
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxRetries returns the configured retry bound.
func (l *Loop) MaxRetries() int {
	return l.maxRetries
}

// Solve runs up to MaxRetries+1 attempts and returns a structured result.
// Errors from any stage are recorded as execution_error checks and retried;
// Solve itself never fails. Metadata.Retries counts re-attempts performed, so
// len(Metadata.Checks) == Metadata.Retries+1 always holds.
func (l *Loop) Solve(ctx context.Context, question string) *domain.AgentResult {
	start := time.Now()
	logger := l.logger.With("question_len", len(question))

	retries := 0
	checks := make([]domain.Verdict, 0, l.maxRetries+1)
	lastPlan := ""

	for retries <= l.maxRetries {
		attempt := retries + 1
		logger.Debug("attempt started", "attempt", attempt)

		sol, verdict, err := l.runAttempt(ctx, question, &lastPlan)
		if err != nil {
			checks = append(checks, domain.Verdict{
				CheckName: domain.CheckExecutionError,
				Passed:    false,
				Details:   err.Error(),
			})
			l.observeAttempt(OutcomeExecutionError)
			logger.Warn("attempt failed", "attempt", attempt, "check", domain.CheckExecutionError, "error", err)
			retries++
			continue
		}

		checks = append(checks, verdict)
		if verdict.Passed {
			l.observeAttempt(OutcomePassed)
			answer := sol.FinalAnswer
			result := &domain.AgentResult{
				Answer:                 &answer,
				Status:                 domain.StatusSuccess,
				ReasoningVisibleToUser: ReasoningSuccess,
				Metadata: domain.Metadata{
					Plan:    lastPlan,
					Checks:  checks,
					Retries: retries,
				},
			}
			l.finish(logger, result, start)
			return result
		}

		l.observeAttempt(OutcomeFailedCheck)
		logger.Warn("verification failed", "attempt", attempt, "check", verdict.CheckName, "details", verdict.Details)
		retries++
	}

	result := &domain.AgentResult{
		Answer:                 nil,
		Status:                 domain.StatusFailed,
		ReasoningVisibleToUser: ReasoningFailure,
		Metadata: domain.Metadata{
			Plan:    lastPlan,
			Checks:  checks,
			Retries: len(checks) - 1,
		},
	}
	l.finish(logger, result, start)
	return result
}

// runAttempt performs one plan/execute/verify pass. A panic in any stage is
// converted into an error so it is recorded like any other failure.
func (l *Loop) runAttempt(ctx context.Context, question string, lastPlan *string) (sol *domain.Solution, verdict domain.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol = nil
			verdict = domain.Verdict{}
			err = fmt.Errorf("%w: %v", ErrAttemptPanic, r)
		}
	}()

	plan, err := l.planner.Plan(ctx, question)
	if err != nil {
		return nil, domain.Verdict{}, err
	}
	*lastPlan = plan

	sol, err = l.executor.Execute(ctx, question, plan)
	if err != nil {
		return nil, domain.Verdict{}, err
	}
	if sol == nil {
		return nil, domain.Verdict{}, errNoSolution
	}

	return sol, l.verifier.Verify(ctx, question, sol), nil
}

func (l *Loop) observeAttempt(outcome string) {
	if l.observer != nil {
		l.observer.ObserveAttempt(outcome)
	}
}

func (l *Loop) finish(logger *slog.Logger, result *domain.AgentResult, start time.Time) {
	elapsed := time.Since(start)
	if l.observer != nil {
		l.observer.ObserveSolve(result.Status, elapsed)
	}
	logger.Info("solve finished",
		"status", result.Status,
		"retries", result.Metadata.Retries,
		"checks", len(result.Metadata.Checks),
		"elapsed", elapsed,
	)
}

// Solve answers question with the fixture generator and the default retry
// bound.
func Solve(ctx context.Context, question string) *domain.AgentResult {
	return NewLoop(generator.NewMock()).Solve(ctx, question)
}
