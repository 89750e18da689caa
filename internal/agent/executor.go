package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/stepwise/internal/domain"
)

// Executor turns a question and its plan into a solution.
type Executor interface {
	Execute(ctx context.Context, question, plan string) (*domain.Solution, error)
}

// Rule names the classification branch the deterministic executor took.
type Rule string

const (
	RuleTimeDifference Rule = "time_difference"
	RulePerUnit        Rule = "per_unit"
	RuleSummation      Rule = "summation"
	RuleNone           Rule = "none"
)

var (
	clockPattern  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	numberPattern = regexp.MustCompile(`\d+`)

	perUnitKeywords = []string{"per", "each", "batch"}
)

// clockTime is an HH:MM token found in a question.
type clockTime struct {
	minutes int
}

// RuleBasedExecutor classifies a question with ordered pattern rules and
// computes the answer with integer arithmetic. The plan is accepted so that a
// plan-aware executor can be swapped in, but is not consulted here.
type RuleBasedExecutor struct{}

// NewRuleBasedExecutor returns the deterministic executor.
func NewRuleBasedExecutor() *RuleBasedExecutor {
	return &RuleBasedExecutor{}
}

// Classify reports which rule would handle question, without computing it.
func Classify(question string) Rule {
	if len(findClockTimes(question)) >= 2 {
		return RuleTimeDifference
	}
	numbers := numberPattern.FindAllString(question, -1)
	if len(numbers) >= 2 && hasPerUnitKeyword(question) {
		return RulePerUnit
	}
	if len(numbers) > 0 {
		return RuleSummation
	}
	return RuleNone
}

// Execute applies the first matching rule: time difference, per-unit
// product, then summation. It returns ErrUnsolvable when none applies.
func (e *RuleBasedExecutor) Execute(_ context.Context, question, _ string) (*domain.Solution, error) {
	if times := findClockTimes(question); len(times) >= 2 {
		return timeDifference(times[0], times[1])
	}

	numbers, err := extractNumbers(question)
	if err != nil {
		return nil, err
	}

	if hasPerUnitKeyword(question) && len(numbers) >= 2 {
		product, ok := mulInt(numbers[0], numbers[1])
		if !ok {
			return nil, fmt.Errorf("%w: %d * %d", ErrNumberOutOfRange, numbers[0], numbers[1])
		}
		return &domain.Solution{
			Steps: []domain.Step{
				{Index: 1, Description: "Extract quantities", Result: domain.List(numbers...)},
				{Index: 2, Description: "Multiply per-unit value", Result: domain.Scalar(product)},
			},
			FinalAnswer: strconv.Itoa(product),
		}, nil
	}

	if len(numbers) > 0 {
		total := 0
		for _, n := range numbers {
			if n > math.MaxInt-total {
				return nil, fmt.Errorf("%w: sum exceeds %d", ErrNumberOutOfRange, math.MaxInt)
			}
			total += n
		}
		return &domain.Solution{
			Steps: []domain.Step{
				{Index: 1, Description: "Extract numbers", Result: domain.List(numbers...)},
				{Index: 2, Description: "Add all numbers", Result: domain.Scalar(total)},
			},
			FinalAnswer: strconv.Itoa(total),
		}, nil
	}

	return nil, ErrUnsolvable
}

func timeDifference(start, end clockTime) (*domain.Solution, error) {
	if end.minutes < start.minutes {
		return nil, ErrInvalidTimeRange
	}

	diff := end.minutes - start.minutes
	hours := diff / 60
	minutes := diff % 60

	answer := fmt.Sprintf("%d hours", hours)
	if minutes != 0 {
		answer = fmt.Sprintf("%d hours %d minutes", hours, minutes)
	}

	return &domain.Solution{
		Steps: []domain.Step{
			{Index: 1, Description: "Convert times to minutes", Result: domain.List(start.minutes, end.minutes)},
			{Index: 2, Description: "Subtract start from end", Result: domain.Scalar(diff)},
		},
		FinalAnswer: answer,
	}, nil
}

// mulInt multiplies two non-negative ints, reporting false on overflow.
func mulInt(a, b int) (int, bool) {
	if a != 0 && b > math.MaxInt/a {
		return 0, false
	}
	return a * b, true
}

// findClockTimes returns every H:MM / HH:MM token in order of appearance.
// Minutes are not range checked.
func findClockTimes(question string) []clockTime {
	matches := clockPattern.FindAllStringSubmatch(question, -1)
	times := make([]clockTime, 0, len(matches))
	for _, m := range matches {
		// At most two digits each, so Atoi cannot fail.
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		times = append(times, clockTime{minutes: h*60 + mm})
	}
	return times
}

// extractNumbers returns every maximal run of ASCII digits as an int.
func extractNumbers(question string) ([]int, error) {
	runs := numberPattern.FindAllString(question, -1)
	numbers := make([]int, 0, len(runs))
	for _, r := range runs {
		n, err := strconv.Atoi(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNumberOutOfRange, r)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// hasPerUnitKeyword matches substrings, so "percent" or "eachother" count.
func hasPerUnitKeyword(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range perUnitKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
