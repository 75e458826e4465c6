package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testpilot-ai/testpilot/internal/mcpserver"
	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
	"github.com/testpilot-ai/testpilot/internal/store"
)

var mcpAgent string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve one testing agent over the Model Context Protocol on stdio",
	RunE:  runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAgent, "agent", "web", "agent type to expose (web or api)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	var agent mcpserver.AgentType
	switch mcpAgent {
	case "web":
		agent = mcpserver.AgentWeb
	case "api":
		agent = mcpserver.AgentAPI
	default:
		return fmt.Errorf("unknown agent type %q (want web or api)", mcpAgent)
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

	deps := mcpserver.Deps{
		Planner:  plan.NewPlanner(),
		Policies: cfg.Policies(),
		Store:    st,
		Logger:   observability.NewLogger(),
	}
	if agent == mcpserver.AgentWeb {
		browser := provider.NewChromeBrowser(cfg.Browser.Headless)
		defer browser.Close()
		deps.Browser = browser
	} else {
		deps.API = provider.NewClient(cfg.RequestTimeout())
	}

	return mcpserver.New(agent, deps).Start()
}
