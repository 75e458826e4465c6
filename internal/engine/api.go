package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
)

// execAPI interprets one API-domain step. Validation steps read the
// session's captured response, which the most recent request step
// overwrote.
func (r *Runner) execAPI(ctx context.Context, step plan.Step, sess *session) (any, error) {
	switch step.Action {
	case plan.ActionRequest:
		resp, err := r.api.Do(ctx, provider.Request{
			Method:  step.Method,
			URL:     step.URL,
			Headers: step.Headers,
			Params:  step.Params,
			Data:    step.Data,
		})
		if err != nil {
			return nil, &ProviderError{Op: "request", Err: err}
		}
		sess.last = resp
		return resp, nil

	case plan.ActionValidateStatus:
		if sess.last == nil {
			return nil, ErrNoResponse
		}
		expected := step.ExpectedStatus
		if expected == 0 {
			expected = 200
		}
		if sess.last.StatusCode != expected {
			return nil, assertionf("expected status code %d, got %d", expected, sess.last.StatusCode)
		}
		return map[string]any{
			"expected": expected,
			"actual":   sess.last.StatusCode,
			"result":   "PASS",
		}, nil

	case plan.ActionValidateResponse:
		if sess.last == nil {
			return nil, ErrNoResponse
		}
		switch sess.last.Body.(type) {
		case map[string]any, []any:
			return map[string]any{"format": "JSON", "result": "PASS"}, nil
		default:
			return nil, assertionf("response body is not valid JSON")
		}

	case plan.ActionValidateField:
		if sess.last == nil {
			return nil, ErrNoResponse
		}
		obj, ok := sess.last.Body.(map[string]any)
		if !ok {
			return nil, assertionf("response body is not a JSON object")
		}
		value, ok := obj[step.Field]
		if !ok {
			return nil, assertionf("field %q not found in response", step.Field)
		}
		return map[string]any{
			"field":  step.Field,
			"value":  value,
			"result": "PASS",
		}, nil

	case plan.ActionMeasurePerformance:
		if sess.last == nil {
			return nil, ErrNoResponse
		}
		duration := time.Duration(sess.last.DurationMS * float64(time.Millisecond))
		return map[string]any{
			"duration_ms": sess.last.DurationMS,
			"rating":      r.policies.perfRating(duration),
			"result":      "PASS",
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, step.Action)
	}
}
