// Package server exposes the testing agents over HTTP: a status probe,
// a streaming chat endpoint and read access to archived runs.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/testpilot-ai/testpilot/internal/engine"
	"github.com/testpilot-ai/testpilot/internal/notify"
	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
	"github.com/testpilot-ai/testpilot/internal/store"
)

// Deps are the collaborators the HTTP layer drives. Browser may be nil
// when no browser could be set up; web runs then fail with a single
// error event instead of a broken stream.
type Deps struct {
	Planner  *plan.Planner
	Browser  provider.Browser
	API      provider.HTTPClient
	Policies engine.Policies
	Store    *store.Store
	Logger   *observability.Logger
	Notifier notify.Notifier
}

type Server struct {
	deps Deps
	http *http.Server

	// webMu serializes web runs: all of them share one browser session.
	webMu sync.Mutex
}

func New(addr string, d Deps) *Server {
	s := &Server{deps: d}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/results/", s.handleResults)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
