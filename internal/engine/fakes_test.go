package engine

import (
	"context"
	"errors"
	"time"

	"github.com/testpilot-ai/testpilot/internal/provider"
)

// fakeBrowser is a scripted Browser for interpreter tests.
type fakeBrowser struct {
	url     string
	title   string
	content string

	// selectors WaitForSelector should time out on
	missing map[string]bool

	inputs  []provider.FormInput
	filled  map[string]string
	checked []string

	shot    []byte
	shotErr error

	navigated []string
	clicked   []string
	closed    bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		url:     "https://app.example.com",
		title:   "Example App",
		missing: map[string]bool{},
		filled:  map[string]string{},
		shot:    []byte("png-bytes"),
	}
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeBrowser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if f.missing[selector] {
		return errors.New("timeout waiting for selector")
	}
	return nil
}

func (f *fakeBrowser) Fill(ctx context.Context, selector, value string) error {
	f.filled[selector] = value
	return nil
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error {
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *fakeBrowser) CurrentURL(ctx context.Context) (string, error) { return f.url, nil }
func (f *fakeBrowser) Title(ctx context.Context) (string, error)      { return f.title, nil }
func (f *fakeBrowser) Content(ctx context.Context) (string, error)    { return f.content, nil }

func (f *fakeBrowser) FormInputs(ctx context.Context, selector string) ([]provider.FormInput, error) {
	return f.inputs, nil
}

func (f *fakeBrowser) FillInput(ctx context.Context, in provider.FormInput, value string) error {
	f.filled[in.XPath] = value
	return nil
}

func (f *fakeBrowser) CheckInput(ctx context.Context, in provider.FormInput) error {
	f.checked = append(f.checked, in.XPath)
	return nil
}

func (f *fakeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return f.shot, f.shotErr
}

func (f *fakeBrowser) Ready() bool { return true }
func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

// fakeHTTP returns a fixed response (or error) for every request and
// records what was sent.
type fakeHTTP struct {
	resp *provider.Response
	err  error
	sent []provider.Request
}

func (f *fakeHTTP) Do(ctx context.Context, req provider.Request) (*provider.Response, error) {
	f.sent = append(f.sent, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// testPolicies keeps the reference thresholds but shrinks every wait so
// tests run instantly.
func testPolicies() Policies {
	p := DefaultPolicies()
	p.ElementWait = time.Millisecond
	p.SuccessProbe = time.Millisecond
	return p
}

func drain(ch <-chan ProgressEvent) []ProgressEvent {
	var events []ProgressEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// finalResult returns the last snapshot in the stream.
func finalResult(events []ProgressEvent) *TestResult {
	var last *TestResult
	for _, ev := range events {
		if ev.Results != nil {
			last = ev.Results
		}
	}
	return last
}
