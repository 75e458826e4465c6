package engine

import (
	"time"

	"github.com/testpilot-ai/testpilot/internal/plan"
)

// Status of a run or a single step. A step moves RUNNING to exactly one
// of PASS or FAIL and never back; SUGGESTED marks advisory steps that
// were never executed.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusPass      Status = "PASS"
	StatusFail      Status = "FAIL"
	StatusSuggested Status = "SUGGESTED"
)

// StepResult is the outcome record for one executed step. It is owned
// by the TestResult that contains it.
type StepResult struct {
	Description string `json:"description"`
	Status      Status `json:"status"`
	Details     any    `json:"details,omitempty"`
	Error       string `json:"error,omitempty"`
}

// TestResult is the evolving document for one run: created when the
// plan is accepted, mutated in place while steps execute, frozen at
// completion. Steps is append-only for the lifetime of the run.
type TestResult struct {
	ID          string        `json:"id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Steps       []*StepResult `json:"steps"`
	// Screenshot is a data URI of the most recent capture (web runs
	// only); each capture overwrites the previous one.
	Screenshot string `json:"screenshot,omitempty"`
}

// Clone returns a deep copy suitable for handing to a consumer while
// the run keeps mutating the original. Step Details values are shared:
// they are written once when the step finishes and never touched again.
func (r *TestResult) Clone() *TestResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Steps = make([]*StepResult, len(r.Steps))
	for i, s := range r.Steps {
		copied := *s
		out.Steps[i] = &copied
	}
	return &out
}

// FailedSteps returns the steps that ended in FAIL.
func (r *TestResult) FailedSteps() []*StepResult {
	var failed []*StepResult
	for _, s := range r.Steps {
		if s.Status == StatusFail {
			failed = append(failed, s)
		}
	}
	return failed
}

// ProgressEvent is one emission of the run's progress stream. Results,
// when present, is a snapshot of the full current state, not a delta.
type ProgressEvent struct {
	Message string      `json:"message"`
	Results *TestResult `json:"results,omitempty"`
}

// Policy governs whether execution proceeds past a failed step.
type Policy string

const (
	// ContinueOnFailure attempts every step regardless of prior
	// failures (API runs).
	ContinueOnFailure Policy = "continue_on_failure"
	// StopOnFailure terminates the run at the first failed step
	// (web runs).
	StopOnFailure Policy = "stop_on_failure"
)

// DefaultPolicy returns the continuation policy a domain uses unless a
// caller overrides it.
func DefaultPolicy(domain plan.Domain) Policy {
	if domain == plan.DomainWeb {
		return StopOnFailure
	}
	return ContinueOnFailure
}

// Policies collects the tunable thresholds of the interpreter. The zero
// value is unusable; start from DefaultPolicies.
type Policies struct {
	// ElementWait bounds find_element lookups.
	ElementWait time.Duration
	// SuccessProbe bounds each individual success-indicator lookup.
	SuccessProbe time.Duration
	// ContentMinimum is the minimum page content length accepted by
	// check_content.
	ContentMinimum int
	// Performance rating bands for measure_performance, in ascending
	// order. A duration beyond PerfFair rates "Poor".
	PerfExcellent time.Duration
	PerfGood      time.Duration
	PerfFair      time.Duration
	// Placeholder values used by fill_form.
	FormEmail    string
	FormPassword string
}

func DefaultPolicies() Policies {
	return Policies{
		ElementWait:    5 * time.Second,
		SuccessProbe:   1 * time.Second,
		ContentMinimum: 100,
		PerfExcellent:  100 * time.Millisecond,
		PerfGood:       500 * time.Millisecond,
		PerfFair:       1000 * time.Millisecond,
		FormEmail:      "test@example.com",
		FormPassword:   "password123",
	}
}

// perfRating classifies a request duration into a band.
func (p Policies) perfRating(d time.Duration) string {
	switch {
	case d < p.PerfExcellent:
		return "Excellent"
	case d < p.PerfGood:
		return "Good"
	case d < p.PerfFair:
		return "Fair"
	default:
		return "Poor"
	}
}
