package provider

import (
	"context"
	"net/http"
	"time"
)

// Browser is the capability surface the web interpreter drives. The
// chromedp implementation lives in this package; tests substitute a
// fake. Implementations own their session: the page handle is created
// lazily, at most once, and reused across runs.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// WaitForSelector blocks until the selector matches a visible
	// element or the timeout elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	// FormInputs enumerates the fillable inputs matching selector,
	// together with their resolved type attribute.
	FormInputs(ctx context.Context, selector string) ([]FormInput, error)
	FillInput(ctx context.Context, input FormInput, value string) error
	CheckInput(ctx context.Context, input FormInput) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Ready reports whether a live browser session exists.
	Ready() bool
	Close() error
}

// FormInput is a handle to one input element found by FormInputs.
type FormInput struct {
	// XPath addresses the element for follow-up actions.
	XPath string
	// Type is the value of the element's type attribute ("" if unset).
	Type string
}

// Request describes one HTTP call for the API interpreter.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string
	// Data, when non-nil, is sent as a JSON body.
	Data map[string]any
}

// Response is the captured outcome of a request. Body holds the decoded
// JSON value when the payload parses, otherwise the raw text.
type Response struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       any         `json:"body"`
	DurationMS float64     `json:"duration_ms"`
}

// HTTPClient is the capability surface the API interpreter drives.
type HTTPClient interface {
	Do(ctx context.Context, req Request) (*Response, error)
}
