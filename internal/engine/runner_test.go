package engine

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
)

func jsonArrayResponse(n int) *provider.Response {
	body := make([]any, n)
	for i := range body {
		body[i] = map[string]any{"id": float64(i + 1)}
	}
	return &provider.Response{
		StatusCode: 200,
		Headers:    http.Header{},
		Body:       body,
		DurationMS: 42,
	}
}

func TestRunAPIGetPasses(t *testing.T) {
	api := &fakeHTTP{resp: jsonArrayResponse(3)}
	r := NewAPIRunner(api, testPolicies(), nil)

	p := plan.NewPlanner().Build("GET https://api.example.com/items", plan.DomainAPI)
	events := drain(r.Run(context.Background(), p))

	final := finalResult(events)
	require.NotNil(t, final)
	assert.Equal(t, StatusPass, final.Status)
	assert.Len(t, final.Steps, len(p.Steps))
	for _, s := range final.Steps {
		assert.Equal(t, StatusPass, s.Status)
	}
	assert.NotEmpty(t, final.ID)
	require.Len(t, api.sent, 1)
	assert.Equal(t, "GET", api.sent[0].Method)
}

func TestRunAPIContinuesPastFailure(t *testing.T) {
	// A 500 fails validate_status but every later step still runs.
	api := &fakeHTTP{resp: &provider.Response{
		StatusCode: 500,
		Headers:    http.Header{},
		Body:       map[string]any{"error": "boom"},
		DurationMS: 10,
	}}
	r := NewAPIRunner(api, testPolicies(), nil)

	p := plan.NewPlanner().Build("POST https://api.example.com/items", plan.DomainAPI)
	require.Len(t, p.Steps, 5)

	final := finalResult(drain(r.Run(context.Background(), p)))
	require.NotNil(t, final)
	assert.Equal(t, StatusFail, final.Status)
	assert.Len(t, final.Steps, 5, "continue-on-failure attempts every step")

	// validate_status (step 2) failed; request and the body-shape
	// checks still passed. validate_field "id" also fails.
	assert.Equal(t, StatusPass, final.Steps[0].Status)
	assert.Equal(t, StatusFail, final.Steps[1].Status)
	assert.Contains(t, final.Steps[1].Error, "expected status code 201")
	assert.Equal(t, StatusPass, final.Steps[2].Status)
	assert.Equal(t, StatusFail, final.Steps[3].Status)
	assert.Equal(t, StatusPass, final.Steps[4].Status)
}

func TestRunAPIFinalEventNamesFailedSteps(t *testing.T) {
	api := &fakeHTTP{resp: &provider.Response{
		StatusCode: 500,
		Headers:    http.Header{},
		Body:       "oops",
		DurationMS: 10,
	}}
	r := NewAPIRunner(api, testPolicies(), nil)

	p := plan.NewPlanner().Build("GET https://api.example.com/items", plan.DomainAPI)
	events := drain(r.Run(context.Background(), p))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Contains(t, last.Message, "failed")
	assert.Contains(t, last.Message, "Validate response status code is 200")
	assert.Contains(t, last.Message, "expected status code 200, got 500")
}

func TestRunWebStopsOnFailure(t *testing.T) {
	// Password field lookup times out: run stops there with a
	// screenshot attached.
	b := newFakeBrowser()
	b.missing[passwordSelectorForTest] = true
	r := NewWebRunner(b, testPolicies(), nil)

	p := plan.NewPlanner().Build("test login at https://app.example.com", plan.DomainWeb)
	require.Len(t, p.Steps, 8)

	final := finalResult(drain(r.Run(context.Background(), p)))
	require.NotNil(t, final)
	assert.Equal(t, StatusFail, final.Status)
	assert.Len(t, final.Steps, 4, "stop-on-failure halts at the failed step")
	assert.Equal(t, StatusFail, final.Steps[3].Status)
	assert.Contains(t, final.Steps[3].Error, "element not found")
	assert.Contains(t, final.Screenshot, "data:image/png;base64,")
}

// The selector the login plan uses for the password field.
const passwordSelectorForTest = "input[type='password']"

func TestRunWebAllStepsPass(t *testing.T) {
	b := newFakeBrowser()
	b.url = "https://app.example.com/dashboard" // differs from plan URL
	r := NewWebRunner(b, testPolicies(), nil)

	p := plan.Plan{
		Title:       "Login Test",
		Description: "login",
		Steps: []plan.Step{
			{Action: plan.ActionNavigate, URL: "https://app.example.com", Description: "Navigate"},
			{Action: plan.ActionFindElement, Selector: "form", Description: "Find form"},
			{Action: plan.ActionCheckURLChange, OriginalURL: "https://app.example.com", Description: "URL changed"},
		},
	}

	final := finalResult(drain(r.Run(context.Background(), p)))
	require.NotNil(t, final)
	assert.Equal(t, StatusPass, final.Status)
	assert.Len(t, final.Steps, len(p.Steps))
	assert.Equal(t, []string{"https://app.example.com"}, b.navigated)
}

func TestRunUnknownActionFailsStepOnly(t *testing.T) {
	api := &fakeHTTP{resp: jsonArrayResponse(1)}
	r := NewAPIRunner(api, testPolicies(), nil)

	p := plan.Plan{
		Title: "odd plan",
		Steps: []plan.Step{
			{Action: "teleport", Description: "Do the impossible"},
			{Action: plan.ActionRequest, Method: "GET", URL: "https://x", Description: "Send request"},
		},
	}

	final := finalResult(drain(r.Run(context.Background(), p)))
	require.NotNil(t, final)
	assert.Equal(t, StatusFail, final.Status)
	assert.Contains(t, final.Steps[0].Error, "unknown action")
	assert.Equal(t, StatusPass, final.Steps[1].Status, "later steps still run")
}

func TestRunEventMonotonicity(t *testing.T) {
	api := &fakeHTTP{resp: jsonArrayResponse(2)}
	r := NewAPIRunner(api, testPolicies(), nil)

	p := plan.NewPlanner().Build("GET https://api.example.com/items", plan.DomainAPI)
	events := drain(r.Run(context.Background(), p))

	prevLen := 0
	settled := map[int]Status{}
	for _, ev := range events {
		if ev.Results == nil {
			continue
		}
		require.GreaterOrEqual(t, len(ev.Results.Steps), prevLen, "steps only grow")
		prevLen = len(ev.Results.Steps)
		for i, s := range ev.Results.Steps {
			if prior, ok := settled[i]; ok {
				assert.Equal(t, prior, s.Status, "step %d must not revert", i)
				continue
			}
			if s.Status == StatusPass || s.Status == StatusFail {
				settled[i] = s.Status
			}
		}
	}
}

func TestRunSnapshotsAreIndependent(t *testing.T) {
	api := &fakeHTTP{resp: jsonArrayResponse(1)}
	r := NewAPIRunner(api, testPolicies(), nil)

	p := plan.NewPlanner().Build("GET https://api.example.com/items", plan.DomainAPI)

	var snapshots []*TestResult
	for ev := range r.Run(context.Background(), p) {
		if ev.Results != nil {
			snapshots = append(snapshots, ev.Results)
		}
	}
	require.NotEmpty(t, snapshots)

	// Earlier snapshots must keep their historical state even though
	// the runner kept mutating its own document.
	first := snapshots[0]
	assert.Equal(t, StatusRunning, first.Status)
	assert.Empty(t, first.Steps)
}

func TestRunAbandonedMidStream(t *testing.T) {
	api := &fakeHTTP{resp: jsonArrayResponse(1)}
	r := NewAPIRunner(api, testPolicies(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	p := plan.NewPlanner().Build("GET https://api.example.com/items", plan.DomainAPI)
	events := r.Run(ctx, p)

	// Consume one event, then walk away.
	<-events
	cancel()

	// The channel must close promptly; a few racing sends may still
	// get through first.
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("event channel did not close after abandonment")
		}
	}
}

func TestWithPolicyOverride(t *testing.T) {
	b := newFakeBrowser()
	b.missing["form"] = true
	r := NewWebRunner(b, testPolicies(), nil).WithPolicy(ContinueOnFailure)

	p := plan.Plan{
		Title: "override",
		Steps: []plan.Step{
			{Action: plan.ActionFindElement, Selector: "form", Description: "Find form"},
			{Action: plan.ActionCheckTitle, Description: "Verify title"},
		},
	}

	final := finalResult(drain(r.Run(context.Background(), p)))
	require.NotNil(t, final)
	assert.Len(t, final.Steps, 2, "continue past the web failure when overridden")
	assert.Equal(t, StatusFail, final.Status)
}
