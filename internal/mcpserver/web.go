package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/testpilot-ai/testpilot/internal/plan"
)

func (s *Server) registerWebTools() {
	s.mcp.AddTool(mcp.NewTool("navigate_to_url",
		mcp.WithDescription("Navigate to a URL in the browser"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL to navigate to"),
		),
	), s.handleNavigate)

	s.mcp.AddTool(mcp.NewTool("click_element",
		mcp.WithDescription("Click an element on the page"),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector for the element to click"),
		),
	), s.handleClick)

	s.mcp.AddTool(mcp.NewTool("fill_form",
		mcp.WithDescription("Fill a form with data"),
		mcp.WithString("form_selector",
			mcp.Required(),
			mcp.Description("CSS selector for the form"),
		),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field names and values to fill"),
		),
	), s.handleFillForm)

	s.mcp.AddTool(mcp.NewTool("take_screenshot",
		mcp.WithDescription("Take a screenshot of the current page"),
		mcp.WithBoolean("full_page",
			mcp.Description("Whether to capture the full page or just the viewport"),
		),
	), s.handleScreenshot)

	s.mcp.AddTool(mcp.NewTool("run_test",
		mcp.WithDescription("Run a predefined test on a web page"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL to test"),
		),
		mcp.WithString("test_type",
			mcp.Required(),
			mcp.Description("Type of test to run"),
			mcp.Enum("login", "form", "navigation"),
		),
	), s.handleRunWebTest)
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.deps.Browser.Navigate(ctx, url); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("navigate: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Navigated to %s", url)), nil
}

func (s *Server) handleClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := request.RequireString("selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.deps.Browser.WaitForSelector(ctx, selector, s.deps.Policies.ElementWait); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("element not found: %s", selector)), nil
	}
	if err := s.deps.Browser.Click(ctx, selector); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("click: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Clicked element with selector: %s", selector)), nil
}

func (s *Server) handleFillForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formSelector, err := request.RequireString("form_selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, ok := request.GetArguments()["fields"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("fields must be an object of field names to values"), nil
	}

	filled := 0
	for name, value := range fields {
		selector := fmt.Sprintf("%s [name='%s']", formSelector, name)
		if err := s.deps.Browser.Fill(ctx, selector, fmt.Sprint(value)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fill %s: %v", name, err)), nil
		}
		filled++
	}
	return mcp.NewToolResultText(fmt.Sprintf("Filled %d fields in form %s", filled, formSelector)), nil
}

func (s *Server) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shot, err := s.deps.Browser.Screenshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("screenshot: %v", err)), nil
	}
	encoded := base64.StdEncoding.EncodeToString(shot)
	return mcp.NewToolResultText("data:image/png;base64," + encoded), nil
}

func (s *Server) handleRunWebTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	testType, err := request.RequireString("test_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var instruction string
	switch testType {
	case "login":
		instruction = fmt.Sprintf("Test the login form at %s", url)
	case "form":
		instruction = fmt.Sprintf("Test the form at %s", url)
	case "navigation":
		instruction = fmt.Sprintf("Test navigation at %s", url)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown test_type: %s", testType)), nil
	}

	p := s.deps.Planner.Build(instruction, plan.DomainWeb)
	result, runErr := s.runPlan(ctx, plan.DomainWeb, p)
	if runErr != nil {
		return mcp.NewToolResultError(runErr.Error()), nil
	}
	return resultJSON(result)
}

func (s *Server) registerWebResources() {
	s.mcp.AddResource(mcp.NewResource(
		"web-testing://screenshots/latest",
		"Latest Screenshot",
		mcp.WithResourceDescription("The most recent screenshot taken during testing"),
		mcp.WithMIMEType("image/png"),
	), s.readLatestScreenshot)

	s.mcp.AddResource(mcp.NewResource(
		"web-testing://results/latest",
		"Latest Test Results",
		mcp.WithResourceDescription("Results from the most recent web test"),
		mcp.WithMIMEType("application/json"),
	), s.readLatestResult)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"web-testing://results/{test_id}",
		"Test Results by ID",
		mcp.WithTemplateDescription("Results from a specific web test"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readResultByID)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"web-testing://screenshots/{timestamp}",
		"Screenshot by Timestamp",
		mcp.WithTemplateDescription("The newest screenshot captured at or before a timestamp (2006-01-02 15:04:05, UTC)"),
		mcp.WithTemplateMIMEType("image/png"),
	), s.readScreenshotAt)
}

func (s *Server) readScreenshotAt(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.deps.Store == nil {
		return nil, fmt.Errorf("no run archive configured")
	}
	uri := request.Params.URI
	timestamp := uri[strings.LastIndex(uri, "/")+1:]
	if decoded, err := url.PathUnescape(timestamp); err == nil {
		timestamp = decoded
	}
	if timestamp == "" {
		return nil, fmt.Errorf("missing timestamp in %s", uri)
	}
	shot, err := s.deps.Store.ScreenshotAt(timestamp)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.BlobResourceContents{
			URI:      uri,
			MIMEType: "image/png",
			Blob:     shot,
		},
	}, nil
}

func (s *Server) readLatestScreenshot(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.deps.Store == nil {
		return nil, fmt.Errorf("no run archive configured")
	}
	shot, err := s.deps.Store.LatestScreenshot()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.BlobResourceContents{
			URI:      request.Params.URI,
			MIMEType: "image/png",
			Blob:     shot,
		},
	}, nil
}
