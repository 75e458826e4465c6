package plan

import (
	"fmt"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Planner turns a free-text instruction into a Plan using simple string
// rules: the first URL-shaped substring picks the target, keyword
// matching picks the flow. It is deterministic and never fails; when in
// doubt it falls back to a plain GET or navigation plan against the
// configured fallback endpoint.
type Planner struct {
	// Fallback targets used when the instruction carries no URL.
	WebFallbackURL string
	APIFallbackURL string
}

func NewPlanner() *Planner {
	return &Planner{
		WebFallbackURL: "https://example.com",
		APIFallbackURL: "https://jsonplaceholder.typicode.com/posts",
	}
}

// Build produces the plan for an instruction in the given domain.
func (p *Planner) Build(instruction string, domain Domain) Plan {
	if domain == DomainAPI {
		return p.buildAPI(instruction)
	}
	return p.buildWeb(instruction)
}

// extractURL returns the first URL in the instruction, or fallback.
func extractURL(instruction, fallback string) string {
	if m := urlPattern.FindString(instruction); m != "" {
		return m
	}
	return fallback
}

// methodFor picks the HTTP method by keyword presence. Precedence is
// fixed: POST > PUT > DELETE > PATCH, defaulting to GET.
func methodFor(instruction string) string {
	lower := strings.ToLower(instruction)
	switch {
	case strings.Contains(lower, "post"):
		return "POST"
	case strings.Contains(lower, "put"):
		return "PUT"
	case strings.Contains(lower, "delete"):
		return "DELETE"
	case strings.Contains(lower, "patch"):
		return "PATCH"
	default:
		return "GET"
	}
}

func (p *Planner) buildAPI(instruction string) Plan {
	url := extractURL(instruction, p.APIFallbackURL)
	method := methodFor(instruction)

	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	request := func(data map[string]any) Step {
		s := Step{
			Action:      ActionRequest,
			Method:      method,
			URL:         url,
			Description: fmt.Sprintf("Send %s request to %s", method, url),
		}
		if data != nil {
			s.Headers = jsonHeaders
			s.Data = data
		}
		return s
	}
	status := func(code int, desc string) Step {
		return Step{Action: ActionValidateStatus, ExpectedStatus: code, Description: desc}
	}
	format := Step{Action: ActionValidateResponse, Description: "Validate response format is JSON"}
	perf := Step{Action: ActionMeasurePerformance, Description: "Measure response time"}

	switch method {
	case "POST":
		return Plan{
			Title:                   fmt.Sprintf("POST Request Test for %s", url),
			Description:             fmt.Sprintf("Testing POST request to %s", url),
			GenerateAdditionalTests: true,
			Steps: []Step{
				request(map[string]any{
					"title":  "Test Post",
					"body":   "This is a test post",
					"userId": 1,
				}),
				status(201, "Validate response status code is 201 (Created)"),
				format,
				{Action: ActionValidateField, Field: "id", Description: "Validate response contains an ID field"},
				perf,
			},
		}
	case "PUT":
		return Plan{
			Title:                   fmt.Sprintf("PUT Request Test for %s", url),
			Description:             fmt.Sprintf("Testing PUT request to %s", url),
			GenerateAdditionalTests: true,
			Steps: []Step{
				request(map[string]any{
					"id":     1,
					"title":  "Updated Test",
					"body":   "This is an updated test",
					"userId": 1,
				}),
				status(200, "Validate response status code is 200"),
				format,
				perf,
			},
		}
	case "DELETE":
		// Deletions do not produce a response worth mining for
		// follow-up cases, so additional test generation stays off.
		return Plan{
			Title:       fmt.Sprintf("DELETE Request Test for %s", url),
			Description: fmt.Sprintf("Testing DELETE request to %s", url),
			Steps: []Step{
				request(nil),
				status(200, "Validate response status code is 200"),
				perf,
			},
		}
	case "GET":
		return Plan{
			Title:                   fmt.Sprintf("GET Request Test for %s", url),
			Description:             fmt.Sprintf("Testing GET request to %s", url),
			GenerateAdditionalTests: true,
			Steps: []Step{
				request(nil),
				status(200, "Validate response status code is 200"),
				format,
				perf,
			},
		}
	default: // PATCH and anything else method-shaped
		return Plan{
			Title:                   fmt.Sprintf("%s Request Test for %s", method, url),
			Description:             fmt.Sprintf("Testing %s request to %s", method, url),
			GenerateAdditionalTests: true,
			Steps: []Step{
				request(map[string]any{"title": "Patched Test"}),
				status(200, "Validate response status code is 200"),
				format,
				perf,
			},
		}
	}
}

const (
	identitySelector = "input[type='text'], input[type='email'], input[name='username'], input[name='email']"
	passwordSelector = "input[type='password']"
	submitSelector   = "button[type='submit'], input[type='submit']"
)

func (p *Planner) buildWeb(instruction string) Plan {
	url := extractURL(instruction, p.WebFallbackURL)
	lower := strings.ToLower(instruction)

	switch {
	case strings.Contains(lower, "login"):
		return Plan{
			Title:       fmt.Sprintf("Login Test for %s", url),
			Description: fmt.Sprintf("Testing the login functionality at %s", url),
			Steps: []Step{
				{Action: ActionNavigate, URL: url, Description: fmt.Sprintf("Navigate to %s", url)},
				{Action: ActionFindElement, Selector: identitySelector, Description: "Find username/email input field"},
				{Action: ActionFill, Selector: identitySelector, Value: "test@example.com", Description: "Enter test email"},
				{Action: ActionFindElement, Selector: passwordSelector, Description: "Find password input field"},
				{Action: ActionFill, Selector: passwordSelector, Value: "password123", Description: "Enter test password"},
				{Action: ActionClick, Selector: submitSelector, Description: "Click the login button"},
				{Action: ActionWait, TimeMS: 2000, Description: "Wait for login process"},
				{Action: ActionCheckURLChange, OriginalURL: url, Description: "Verify URL changed after login"},
			},
		}
	case strings.Contains(lower, "form"):
		return Plan{
			Title:       fmt.Sprintf("Form Submission Test for %s", url),
			Description: fmt.Sprintf("Testing form submission at %s", url),
			Steps: []Step{
				{Action: ActionNavigate, URL: url, Description: fmt.Sprintf("Navigate to %s", url)},
				{Action: ActionFindElement, Selector: "form", Description: "Find form element"},
				{Action: ActionFillForm, Description: "Fill out form fields with test data"},
				{Action: ActionClick, Selector: submitSelector, Description: "Submit the form"},
				{Action: ActionWait, TimeMS: 2000, Description: "Wait for form submission"},
				{Action: ActionCheckSuccess, Description: "Check for success message or redirect"},
			},
		}
	default:
		return Plan{
			Title:       fmt.Sprintf("Navigation Test for %s", url),
			Description: fmt.Sprintf("Testing navigation and content at %s", url),
			Steps: []Step{
				{Action: ActionNavigate, URL: url, Description: fmt.Sprintf("Navigate to %s", url)},
				{Action: ActionWait, TimeMS: 2000, Description: "Wait for page to load"},
				{Action: ActionCheckTitle, Description: "Verify page title exists"},
				{Action: ActionCheckContent, Description: "Verify page has content"},
			},
		}
	}
}
