package engine

import (
	"fmt"
	"net/http"

	"github.com/testpilot-ai/testpilot/internal/provider"
)

// paginationThreshold is the array size past which a pagination probe
// is worth suggesting.
const paginationThreshold = 10

// Suggest inspects a completed run's last captured response and
// proposes follow-up test cases. Suggestions are advisory only: the
// returned documents carry SUGGESTED status on the plan and every step
// and are never executed. Returns nil when no captured response is
// found among the step details.
func Suggest(result *TestResult) []*TestResult {
	last := lastResponse(result)
	if last == nil {
		return nil
	}

	var suggestions []*TestResult

	switch body := last.Body.(type) {
	case []any:
		suggestions = append(suggestions, suggested(
			"Test API with query that returns empty array",
			"Test the API with query parameters that should return an empty array",
			"Send request with invalid query parameters",
			"Verify response is an empty array",
		))
		if len(body) > paginationThreshold {
			suggestions = append(suggestions, suggested(
				"Test API pagination",
				"Test the API's pagination functionality",
				"Send request with page=1&limit=5 parameters",
				"Verify response contains 5 items",
				"Send request with page=2&limit=5 parameters",
				"Verify response contains next 5 items",
			))
		}
	case map[string]any:
		suggestions = append(suggestions, suggested(
			"Test API required fields validation",
			"Test the API's validation of required fields",
			"Send request with missing required fields",
			"Verify response indicates missing fields error",
		))
		suggestions = append(suggestions, suggested(
			"Test API field validation",
			"Test the API's validation of field formats and values",
			"Send request with invalid field formats",
			"Verify response indicates validation errors",
		))
	}

	if last.Headers.Get("Authorization") != "" || last.Headers.Get("X-Api-Key") != "" {
		suggestions = append(suggestions, suggested(
			"Test API authentication",
			"Test the API's authentication requirements",
			"Send request without authentication",
			"Verify response indicates authentication error",
			"Send request with invalid authentication",
			"Verify response indicates authentication error",
		))
	}

	return suggestions
}

// lastResponse finds the most recent captured response among the step
// details.
func lastResponse(result *TestResult) *provider.Response {
	var last *provider.Response
	for _, step := range result.Steps {
		if resp := asResponse(step.Details); resp != nil {
			last = resp
		}
	}
	return last
}

// asResponse recognizes a captured response either live or after a trip
// through the run archive, where JSON decoding turns it into a map.
func asResponse(details any) *provider.Response {
	switch d := details.(type) {
	case *provider.Response:
		return d
	case map[string]any:
		code, ok := d["status_code"].(float64)
		if !ok {
			return nil
		}
		resp := &provider.Response{
			StatusCode: int(code),
			Headers:    http.Header{},
			Body:       d["body"],
		}
		if ms, ok := d["duration_ms"].(float64); ok {
			resp.DurationMS = ms
		}
		if headers, ok := d["headers"].(map[string]any); ok {
			for name, values := range headers {
				if list, ok := values.([]any); ok {
					for _, v := range list {
						resp.Headers.Add(name, fmt.Sprint(v))
					}
				}
			}
		}
		return resp
	default:
		return nil
	}
}

func suggested(title, description string, steps ...string) *TestResult {
	out := &TestResult{
		Title:       title,
		Description: description,
		Status:      StatusSuggested,
		Steps:       make([]*StepResult, 0, len(steps)),
	}
	for _, desc := range steps {
		out.Steps = append(out.Steps, &StepResult{Description: desc, Status: StatusSuggested})
	}
	return out
}
