package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/testpilot-ai/testpilot/internal/engine"
	"github.com/testpilot-ai/testpilot/internal/plan"
)

type chatRequest struct {
	Message string `json:"message"`
	Agent   string `json:"agent"`
}

// handleChat runs one test from a natural-language instruction and
// streams progress as newline-delimited JSON events.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Agent == "" {
		req.Agent = "web"
	}
	domain := plan.DomainWeb
	if req.Agent == "api" {
		domain = plan.DomainAPI
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")

	stream := func(evt engine.ProgressEvent) {
		data, err := json.Marshal(evt)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "%s\n", data)
		flusher.Flush()
	}

	s.deps.Logger.LogRequest(req.Agent, req.Message)
	stream(engine.ProgressEvent{
		Message: fmt.Sprintf("Processing your request with the %s Testing Agent...", agentLabel(req.Agent)),
	})

	runner, err := s.runnerFor(domain)
	if err != nil {
		stream(engine.ProgressEvent{Message: fmt.Sprintf("Error: %v", err)})
		return
	}

	if domain == plan.DomainWeb {
		s.webMu.Lock()
		defer s.webMu.Unlock()
	}

	p := s.deps.Planner.Build(req.Message, domain)

	var final *engine.TestResult
	for evt := range runner.Run(r.Context(), p) {
		if evt.Results != nil {
			final = evt.Results
		}
		stream(evt)
	}
	if final == nil {
		return
	}

	s.archive(final)

	if domain == plan.DomainAPI && p.GenerateAdditionalTests {
		stream(engine.ProgressEvent{
			Message: "Generating additional test cases based on the API response...",
		})
		suggestions := engine.Suggest(final)
		if len(suggestions) == 0 {
			stream(engine.ProgressEvent{Message: "No additional test cases could be generated."})
		}
		for _, sg := range suggestions {
			s.deps.Logger.LogSuggestion(final.ID, sg.Title)
			stream(engine.ProgressEvent{
				Message: fmt.Sprintf("Additional test case: %s\n%s", sg.Title, sg.Description),
				Results: sg,
			})
		}
	}
}

func (s *Server) runnerFor(domain plan.Domain) (*engine.Runner, error) {
	if domain == plan.DomainWeb {
		if s.deps.Browser == nil {
			return nil, fmt.Errorf("web testing agent is not available")
		}
		return engine.NewWebRunner(s.deps.Browser, s.deps.Policies, s.deps.Logger), nil
	}
	if s.deps.API == nil {
		return nil, fmt.Errorf("api testing agent is not available")
	}
	return engine.NewAPIRunner(s.deps.API, s.deps.Policies, s.deps.Logger), nil
}

// archive stores the finished run and fires notifications. Both are
// best effort: the stream already delivered the result. Runs cut short
// by a client disconnect never reach PASS or FAIL and are not stored.
func (s *Server) archive(final *engine.TestResult) {
	if final.Status != engine.StatusPass && final.Status != engine.StatusFail {
		return
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.SaveResult(final); err != nil {
			s.deps.Logger.LogRun(final.ID, fmt.Sprintf("archive failed: %v", err))
		}
	}
	if s.deps.Notifier != nil {
		go func() {
			if err := s.deps.Notifier.Notify(context.Background(), final); err != nil {
				s.deps.Logger.LogRun(final.ID, fmt.Sprintf("notify failed: %v", err))
			}
		}()
	}
}

func agentLabel(agent string) string {
	if agent == "" {
		return agent
	}
	return strings.ToUpper(agent[:1]) + agent[1:]
}
