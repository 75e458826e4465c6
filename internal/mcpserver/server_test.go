package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testpilot-ai/testpilot/internal/engine"
	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
	"github.com/testpilot-ai/testpilot/internal/store"
)

type fakeBrowser struct {
	url     string
	title   string
	content string
	filled  map[string]string
	shot    []byte
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		title:   "Example Domain",
		content: "",
		filled:  map[string]string{},
		shot:    []byte("png-bytes"),
	}
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error { b.url = url; return nil }
func (b *fakeBrowser) WaitForSelector(context.Context, string, time.Duration) error {
	return nil
}
func (b *fakeBrowser) Fill(_ context.Context, sel, val string) error {
	b.filled[sel] = val
	return nil
}
func (b *fakeBrowser) Click(context.Context, string) error        { return nil }
func (b *fakeBrowser) CurrentURL(context.Context) (string, error) { return b.url, nil }
func (b *fakeBrowser) Title(context.Context) (string, error)      { return b.title, nil }
func (b *fakeBrowser) Content(context.Context) (string, error)    { return b.content, nil }
func (b *fakeBrowser) FormInputs(context.Context, string) ([]provider.FormInput, error) {
	return []provider.FormInput{{XPath: "/html/body/form/input[1]", Type: "email"}}, nil
}
func (b *fakeBrowser) FillInput(context.Context, provider.FormInput, string) error { return nil }
func (b *fakeBrowser) CheckInput(context.Context, provider.FormInput) error        { return nil }
func (b *fakeBrowser) Screenshot(context.Context) ([]byte, error)                  { return b.shot, nil }
func (b *fakeBrowser) Ready() bool                                                 { return true }
func (b *fakeBrowser) Close() error                                                { return nil }

type fakeHTTP struct {
	resp *provider.Response
	sent []provider.Request
}

func (c *fakeHTTP) Do(_ context.Context, req provider.Request) (*provider.Response, error) {
	c.sent = append(c.sent, req)
	return c.resp, nil
}

func callReq(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	content, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return content.Text
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return Deps{
		Planner:  plan.NewPlanner(),
		Policies: engine.DefaultPolicies(),
		Store:    st,
		Logger:   observability.NewLogger(),
	}
}

func TestNavigateTool(t *testing.T) {
	browser := newFakeBrowser()
	deps := testDeps(t)
	deps.Browser = browser
	s := New(AgentWeb, deps)

	result, err := s.handleNavigate(context.Background(), callReq(map[string]any{"url": "https://example.com"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "Navigated to https://example.com", textOf(t, result))
	assert.Equal(t, "https://example.com", browser.url)
}

func TestNavigateToolMissingURL(t *testing.T) {
	deps := testDeps(t)
	deps.Browser = newFakeBrowser()
	s := New(AgentWeb, deps)

	result, err := s.handleNavigate(context.Background(), callReq(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestFillFormToolFillsEveryField(t *testing.T) {
	browser := newFakeBrowser()
	deps := testDeps(t)
	deps.Browser = browser
	s := New(AgentWeb, deps)

	result, err := s.handleFillForm(context.Background(), callReq(map[string]any{
		"form_selector": "#signup",
		"fields":        map[string]any{"email": "a@b.c", "age": 30},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "a@b.c", browser.filled["#signup [name='email']"])
	assert.Equal(t, "30", browser.filled["#signup [name='age']"])
}

func TestRunAPITestArchivesResult(t *testing.T) {
	api := &fakeHTTP{resp: &provider.Response{
		StatusCode: 200,
		Body:       []any{map[string]any{"id": 1.0}},
		DurationMS: 42,
	}}
	deps := testDeps(t)
	deps.API = api
	s := New(AgentAPI, deps)

	result, err := s.handleRunAPITest(context.Background(), callReq(map[string]any{
		"url":       "https://api.example.com/items",
		"test_type": "get",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var final engine.TestResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &final))
	assert.Equal(t, engine.StatusPass, final.Status)
	assert.Len(t, final.Steps, 4)

	archived, err := deps.Store.LatestResult()
	require.NoError(t, err)
	assert.Equal(t, final.ID, archived.ID)
}

func TestRunAPITestAuthInjectsHeader(t *testing.T) {
	api := &fakeHTTP{resp: &provider.Response{StatusCode: 200, Body: map[string]any{"ok": true}}}
	deps := testDeps(t)
	deps.API = api
	s := New(AgentAPI, deps)

	_, err := s.handleRunAPITest(context.Background(), callReq(map[string]any{
		"url":       "https://api.example.com/me",
		"test_type": "auth",
	}))
	require.NoError(t, err)
	require.NotEmpty(t, api.sent)
	assert.Equal(t, "Bearer test-token", api.sent[0].Headers["Authorization"])
}

func TestSendRequestThenValidateResponse(t *testing.T) {
	api := &fakeHTTP{resp: &provider.Response{
		StatusCode: 201,
		Body:       map[string]any{"id": 7.0, "title": "x"},
	}}
	deps := testDeps(t)
	deps.API = api
	s := New(AgentAPI, deps)

	result, err := s.handleSendRequest(context.Background(), callReq(map[string]any{
		"method": "POST",
		"url":    "https://api.example.com/items",
		"data":   map[string]any{"title": "x"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.NotEmpty(t, api.sent)
	assert.Equal(t, "POST", api.sent[0].Method)

	result, err = s.handleValidateResponse(context.Background(), callReq(map[string]any{
		"expected_status": 201.0,
		"expected_format": "json",
		"expected_fields": []any{"id", "missing"},
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var checks map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &checks))
	assert.Equal(t, true, checks["status"]["pass"])
	assert.Equal(t, true, checks["format"]["pass"])
	assert.Equal(t, false, checks["fields"]["pass"])
}

func TestValidateResponseBeforeRequest(t *testing.T) {
	deps := testDeps(t)
	deps.API = &fakeHTTP{}
	s := New(AgentAPI, deps)

	result, err := s.handleValidateResponse(context.Background(), callReq(map[string]any{
		"expected_status": 200.0,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGenerateTestCasesFromArchive(t *testing.T) {
	deps := testDeps(t)
	deps.API = &fakeHTTP{}
	s := New(AgentAPI, deps)

	items := make([]any, 25)
	for i := range items {
		items[i] = map[string]any{"id": float64(i)}
	}
	archived := &engine.TestResult{
		ID:     "run-1",
		Title:  "API Test: GET request",
		Status: engine.StatusPass,
		Steps: []*engine.StepResult{{
			Description: "Send GET request",
			Status:      engine.StatusPass,
			Details:     &provider.Response{StatusCode: 200, Body: items},
		}},
	}
	require.NoError(t, deps.Store.SaveResult(archived))

	result, err := s.handleGenerateTestCases(context.Background(), callReq(map[string]any{
		"url": "https://api.example.com/items",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var suggestions []*engine.TestResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &suggestions))
	require.NotEmpty(t, suggestions)
	for _, sg := range suggestions {
		assert.Equal(t, engine.StatusSuggested, sg.Status)
	}
}

func TestReadResultResources(t *testing.T) {
	deps := testDeps(t)
	deps.API = &fakeHTTP{}
	s := New(AgentAPI, deps)

	archived := &engine.TestResult{ID: "run-9", Title: "API Test", Status: engine.StatusPass}
	require.NoError(t, deps.Store.SaveResult(archived))

	contents, err := s.readLatestResult(context.Background(), readReq("api-testing://results/latest"))
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Contains(t, text.Text, `"run-9"`)

	contents, err = s.readResultByID(context.Background(), readReq("api-testing://results/run-9"))
	require.NoError(t, err)
	text = contents[0].(mcp.TextResourceContents)
	assert.Contains(t, text.Text, `"API Test"`)

	_, err = s.readResultByID(context.Background(), readReq("api-testing://results/nope"))
	assert.Error(t, err)
}

func TestReadScreenshotByTimestamp(t *testing.T) {
	deps := testDeps(t)
	deps.Browser = newFakeBrowser()
	s := New(AgentWeb, deps)

	_, err := deps.Store.DB.Exec(
		`INSERT INTO screenshots (run_id, data_uri, created_at) VALUES (?, ?, ?)`,
		"web-1", "data:image/png;base64,cG5nLWJ5dGVz", "2026-08-29 10:00:00")
	require.NoError(t, err)

	contents, err := s.readScreenshotAt(context.Background(),
		readReq("web-testing://screenshots/2026-08-29%2010:30:00"))
	require.NoError(t, err)
	require.Len(t, contents, 1)
	blob := contents[0].(mcp.BlobResourceContents)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, "cG5nLWJ5dGVz", blob.Blob)

	_, err = s.readScreenshotAt(context.Background(),
		readReq("web-testing://screenshots/2026-08-29%2009:00:00"))
	assert.Error(t, err)
}
