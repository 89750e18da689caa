// Package domain contains core domain types for the stepwise agent.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StepResult is the numeric outcome of a single step: either one integer or
// an ordered list of integers.
type StepResult struct {
	value  int
	values []int
	list   bool
}

// Scalar returns a single-valued step result.
func Scalar(v int) StepResult {
	return StepResult{value: v}
}

// List returns a multi-valued step result. The slice is copied.
func List(vs ...int) StepResult {
	cp := make([]int, len(vs))
	copy(cp, vs)
	return StepResult{values: cp, list: true}
}

// IsList reports whether the result holds a sequence.
func (r StepResult) IsList() bool {
	return r.list
}

// Value returns the scalar value. It is zero for list results.
func (r StepResult) Value() int {
	return r.value
}

// Values returns a copy of the sequence, or a one-element slice for scalars.
func (r StepResult) Values() []int {
	if !r.list {
		return []int{r.value}
	}
	cp := make([]int, len(r.values))
	copy(cp, r.values)
	return cp
}

func (r StepResult) String() string {
	if !r.list {
		return strconv.Itoa(r.value)
	}
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes scalars as a JSON number and lists as an array.
func (r StepResult) MarshalJSON() ([]byte, error) {
	if r.list {
		if r.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.values)
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON accepts a number, an array of numbers, or a string holding an
// integer (model output often quotes numbers).
func (r *StepResult) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty step result")
	}
	switch data[0] {
	case '[':
		var vs []int
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("decode step result list: %w", err)
		}
		*r = List(vs...)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode step result string: %w", err)
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("step result %q is not an integer", s)
		}
		*r = Scalar(v)
		return nil
	default:
		var v int
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode step result: %w", err)
		}
		*r = Scalar(v)
		return nil
	}
}

// Step is one entry of a solution's computation trace.
type Step struct {
	Index       int        `json:"step"`
	Description string     `json:"description"`
	Result      StepResult `json:"result"`
}

// Solution is the executor's output for one attempt.
type Solution struct {
	Steps       []Step `json:"steps"`
	FinalAnswer string `json:"final_answer"`
}

// HasAnswer returns true if the solution carries a non-empty final answer.
func (s *Solution) HasAnswer() bool {
	return s != nil && s.FinalAnswer != ""
}
