package observability

import (
	"sync"
	"time"
)

// serviceStatus tracks what the process is doing right now, for the
// heartbeat event. One run executes at a time per agent, so a single
// slot per process is enough.
type serviceStatus struct {
	mu        sync.RWMutex
	agent     string
	runID     string
	startedAt time.Time
	completed int
}

var status = &serviceStatus{}

// SetActiveRun marks a run as executing.
func SetActiveRun(agent, runID string) {
	status.mu.Lock()
	defer status.mu.Unlock()
	status.agent = agent
	status.runID = runID
	status.startedAt = time.Now()
}

// ClearActiveRun marks the current run as finished.
func ClearActiveRun() {
	status.mu.Lock()
	defer status.mu.Unlock()
	status.agent = ""
	status.runID = ""
	status.completed++
}

func snapshotStatus() map[string]any {
	status.mu.RLock()
	defer status.mu.RUnlock()
	data := map[string]any{
		"status":         "alive",
		"runs_completed": status.completed,
	}
	if status.runID != "" {
		data["active_agent"] = status.agent
		data["active_run"] = status.runID
		data["running_for_ms"] = time.Since(status.startedAt).Milliseconds()
	}
	return data
}
