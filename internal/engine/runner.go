package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
)

// Runner executes one plan at a time against the provider it was built
// with, streaming progress events to the caller. Steps run strictly in
// order; the continuation policy decides what a failed step does to the
// rest of the run.
type Runner struct {
	domain   plan.Domain
	policy   Policy
	policies Policies
	browser  provider.Browser
	api      provider.HTTPClient
	logger   *observability.Logger
}

// NewWebRunner builds a runner for web plans. Web runs stop at the
// first failed step and capture a screenshot after every step.
func NewWebRunner(b provider.Browser, policies Policies, logger *observability.Logger) *Runner {
	return &Runner{
		domain:   plan.DomainWeb,
		policy:   DefaultPolicy(plan.DomainWeb),
		policies: policies,
		browser:  b,
		logger:   logger,
	}
}

// NewAPIRunner builds a runner for API plans. API runs attempt every
// step regardless of prior failures.
func NewAPIRunner(c provider.HTTPClient, policies Policies, logger *observability.Logger) *Runner {
	return &Runner{
		domain:   plan.DomainAPI,
		policy:   DefaultPolicy(plan.DomainAPI),
		policies: policies,
		api:      c,
		logger:   logger,
	}
}

// WithPolicy overrides the domain's default continuation policy.
func (r *Runner) WithPolicy(p Policy) *Runner {
	r.policy = p
	return r
}

// session holds the single-run mutable state shared between steps.
type session struct {
	// last is the captured response of the most recent request step
	// (API domain). Overwritten by each request, read by validations.
	last *provider.Response
}

// Run starts the plan and returns the progress stream. The channel is
// unbuffered: production suspends at every event until the caller
// consumes it, and resumes from there. Cancelling ctx abandons the run;
// the channel is always closed when the run ends, however it ends.
func (r *Runner) Run(ctx context.Context, p plan.Plan) <-chan ProgressEvent {
	events := make(chan ProgressEvent)
	go func() {
		defer close(events)
		r.execute(ctx, p, events)
	}()
	return events
}

// emit pushes one event, cloning the result document so the consumer
// never sees later mutations. Returns false when the caller is gone.
func (r *Runner) emit(ctx context.Context, ch chan<- ProgressEvent, msg string, res *TestResult) bool {
	ev := ProgressEvent{Message: msg}
	if res != nil {
		ev.Results = res.Clone()
	}
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) execute(ctx context.Context, p plan.Plan, events chan<- ProgressEvent) {
	result := &TestResult{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Description: p.Description,
		Status:      StatusRunning,
		Steps:       []*StepResult{},
	}

	observability.SetActiveRun(string(r.domain), result.ID)
	defer observability.ClearActiveRun()

	label := "test"
	if r.domain == plan.DomainAPI {
		label = "API test"
	}

	if r.logger != nil {
		r.logger.LogPlan(result.ID, p.Title, len(p.Steps))
	}

	if !r.emit(ctx, events, fmt.Sprintf("I'll run this %s based on your instructions. Here's my plan:\n\n%s", label, p.Description), nil) {
		return
	}
	if !r.emit(ctx, events, fmt.Sprintf("Starting %s: %s...", label, p.Title), result) {
		return
	}

	sess := &session{}

	for i, step := range p.Steps {
		sr := &StepResult{Description: step.Description, Status: StatusRunning}
		result.Steps = append(result.Steps, sr)

		if !r.emit(ctx, events, fmt.Sprintf("Executing step %d/%d: %s...", i+1, len(p.Steps), step.Description), result) {
			return
		}

		details, err := r.exec(ctx, step, sess)
		if ctx.Err() != nil {
			// Abandoned mid-step; leave the document as-is.
			return
		}

		if err != nil {
			sr.Status = StatusFail
			sr.Error = err.Error()
			result.Status = StatusFail
			r.captureScreenshot(ctx, result)
			if r.logger != nil {
				r.logger.LogStep(result.ID, step.Description, string(StatusFail), sr.Error)
			}
			if !r.emit(ctx, events, fmt.Sprintf("Step %d failed: %s\nError: %s", i+1, step.Description, sr.Error), result) {
				return
			}
			if r.policy == StopOnFailure {
				break
			}
			continue
		}

		sr.Status = StatusPass
		sr.Details = details
		r.captureScreenshot(ctx, result)
		if r.logger != nil {
			r.logger.LogStep(result.ID, step.Description, string(StatusPass), "")
		}

		msg := fmt.Sprintf("Step %d completed successfully: %s", i+1, step.Description)
		if details != nil {
			if pretty, err := json.MarshalIndent(details, "", "  "); err == nil {
				msg += fmt.Sprintf("\n```json\n%s\n```", pretty)
			}
		}
		if !r.emit(ctx, events, msg, result) {
			return
		}
	}

	if result.Status != StatusFail {
		result.Status = StatusPass
		if r.logger != nil {
			r.logger.LogRun(result.ID, string(StatusPass))
		}
		r.emit(ctx, events, fmt.Sprintf("%s completed successfully: %s", capitalize(label), p.Title), result)
		return
	}

	if r.logger != nil {
		r.logger.LogRun(result.ID, string(StatusFail))
	}
	r.emit(ctx, events, failureSummary(label, result), result)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// failureSummary builds the terminal message for a failed run, naming
// every failed step and why it failed.
func failureSummary(label string, result *TestResult) string {
	failed := result.FailedSteps()
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: %s (%d step(s) failed)", capitalize(label), result.Title, len(failed))
	for _, s := range failed {
		fmt.Fprintf(&b, "\n- %s: %s", s.Description, s.Error)
	}
	return b.String()
}

// captureScreenshot refreshes the result's screenshot on web runs.
// Best effort: a capture failure never affects the run.
func (r *Runner) captureScreenshot(ctx context.Context, result *TestResult) {
	if r.domain != plan.DomainWeb || r.browser == nil {
		return
	}
	buf, err := r.browser.Screenshot(ctx)
	if err != nil || len(buf) == 0 {
		return
	}
	result.Screenshot = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf)
}

// exec dispatches one step to the domain interpreter.
func (r *Runner) exec(ctx context.Context, step plan.Step, sess *session) (any, error) {
	if r.domain == plan.DomainAPI {
		return r.execAPI(ctx, step, sess)
	}
	return r.execWeb(ctx, step)
}
