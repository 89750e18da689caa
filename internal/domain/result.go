package domain

// Check names recorded in AgentResult metadata.
const (
	CheckSolutionExistence = "solution_existence_check"
	CheckBasicConsistency  = "basic_consistency_check"
	CheckExecutionError    = "execution_error"
	CheckVerifierOutput    = "verifier_output_check"
)

// Verdict is the pass/fail judgment for one attempt.
type Verdict struct {
	CheckName string `json:"check_name"`
	Passed    bool   `json:"passed"`
	Details   string `json:"details"`
}

// Status is the terminal state of a solve.
type Status string

const (
	// StatusSuccess means the last attempt produced a verified answer.
	StatusSuccess Status = "success"
	// StatusFailed means every attempt was used without a verified answer.
	StatusFailed Status = "failed"
)

// Metadata carries the trace of a solve for debugging and display.
type Metadata struct {
	Plan    string    `json:"plan"`
	Checks  []Verdict `json:"checks"`
	Retries int       `json:"retries"`
}

// AgentResult is the structured outcome of one solve request.
type AgentResult struct {
	Answer                 *string  `json:"answer"`
	Status                 Status   `json:"status"`
	ReasoningVisibleToUser string   `json:"reasoning_visible_to_user"`
	Metadata               Metadata `json:"metadata"`
}

// Succeeded returns true if the result carries a verified answer.
func (r *AgentResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess && r.Answer != nil
}

// PassedChecks returns how many recorded checks passed.
func (r *AgentResult) PassedChecks() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.Metadata.Checks {
		if c.Passed {
			n++
		}
	}
	return n
}

// LastCheck returns the most recent verdict, if any.
func (r *AgentResult) LastCheck() (Verdict, bool) {
	if r == nil || len(r.Metadata.Checks) == 0 {
		return Verdict{}, false
	}
	return r.Metadata.Checks[len(r.Metadata.Checks)-1], true
}
