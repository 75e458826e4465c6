package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/testpilot-ai/testpilot/internal/engine"
)

// Notifier delivers a run-completion summary to some channel
// (Telegram, Discord, etc.)
type Notifier interface {
	// Notify sends a summary of the completed run
	Notify(ctx context.Context, result *engine.TestResult) error
}

// Summary renders the one-message digest of a completed run.
func Summary(result *engine.TestResult) string {
	var b strings.Builder
	switch result.Status {
	case engine.StatusPass:
		fmt.Fprintf(&b, "✅ PASS: %s", result.Title)
	case engine.StatusFail:
		fmt.Fprintf(&b, "❌ FAIL: %s", result.Title)
	default:
		fmt.Fprintf(&b, "%s: %s", result.Status, result.Title)
	}
	fmt.Fprintf(&b, " (%d steps)", len(result.Steps))

	for _, s := range result.FailedSteps() {
		fmt.Fprintf(&b, "\n• %s: %s", s.Description, s.Error)
	}
	return b.String()
}

// Multi fans one notification out to several notifiers. Delivery
// failures are collected, not short-circuited.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, result *engine.TestResult) error {
	var errs []string
	for _, n := range m {
		if err := n.Notify(ctx, result); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}
