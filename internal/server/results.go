package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/testpilot-ai/testpilot/internal/store"
)

type statusResponse struct {
	Status   string `json:"status"`
	WebAgent bool   `json:"web_agent"`
	APIAgent bool   `json:"api_agent"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:   "online",
		WebAgent: s.deps.Browser != nil && s.deps.Browser.Ready(),
		APIAgent: s.deps.API != nil,
	})
}

// handleResults serves archived runs: /api/results/latest or
// /api/results/{id}.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Store == nil {
		http.Error(w, "no run archive configured", http.StatusNotFound)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/results/")
	if id == "" {
		http.Error(w, "missing result id", http.StatusBadRequest)
		return
	}

	var (
		result any
		err    error
	)
	if id == "latest" {
		result, err = s.deps.Store.LatestResult()
	} else {
		result, err = s.deps.Store.Result(id)
	}
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load result", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
