package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/testpilot-ai/testpilot/internal/engine"
	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
	"github.com/testpilot-ai/testpilot/internal/store"
)

// errTestFailed makes the process exit non-zero after a failed run. It
// is returned, not printed: the stream already reported every failure,
// and returning lets the deferred browser/store teardown run before
// main decides the exit code.
var errTestFailed = errors.New("test failed")

var runDomain string

var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Run one test from a natural-language instruction",
	Long: `Runs a single test and streams progress events to stdout as
newline-delimited JSON. The exit code reflects the final test status.

Examples:
  testpilot run --domain web "Test the login form at https://example.com/login"
  testpilot run --domain api "Send a POST request to https://api.example.com/items"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringVar(&runDomain, "domain", "web", "test domain (web or api)")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	var domain plan.Domain
	switch runDomain {
	case "web":
		domain = plan.DomainWeb
	case "api":
		domain = plan.DomainAPI
	default:
		return fmt.Errorf("unknown domain %q (want web or api)", runDomain)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	instruction := strings.Join(args, " ")
	p := plan.NewPlanner().Build(instruction, domain)

	logger := observability.NewLogger()
	var runner *engine.Runner
	if domain == plan.DomainWeb {
		browser := provider.NewChromeBrowser(cfg.Browser.Headless)
		defer browser.Close()
		runner = engine.NewWebRunner(browser, cfg.Policies(), logger)
	} else {
		runner = engine.NewAPIRunner(provider.NewClient(cfg.RequestTimeout()), cfg.Policies(), logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return streamRun(ctx, runner, p, st, os.Stdout)
}

type resultArchiver interface {
	SaveResult(*engine.TestResult) error
}

// streamRun drives the plan to completion, printing every progress
// event (and any follow-up suggestions) as one JSON line, and archives
// the final result. Returns errTestFailed when the run did not pass.
func streamRun(ctx context.Context, runner *engine.Runner, p plan.Plan, archive resultArchiver, out io.Writer) error {
	enc := json.NewEncoder(out)
	var final *engine.TestResult
	for evt := range runner.Run(ctx, p) {
		if evt.Results != nil {
			final = evt.Results
		}
		if err := enc.Encode(evt); err != nil {
			return err
		}
	}
	if final == nil || final.Status == engine.StatusRunning {
		return fmt.Errorf("run was interrupted before producing a result")
	}
	if err := archive.SaveResult(final); err != nil {
		return err
	}

	if p.GenerateAdditionalTests {
		for _, sg := range engine.Suggest(final) {
			evt := engine.ProgressEvent{
				Message: fmt.Sprintf("Additional test case: %s\n%s", sg.Title, sg.Description),
				Results: sg,
			}
			if err := enc.Encode(evt); err != nil {
				return err
			}
		}
	}

	if final.Status != engine.StatusPass {
		return errTestFailed
	}
	return nil
}
