package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
	"github.com/testpilot-ai/testpilot/internal/server"
	"github.com/testpilot-ai/testpilot/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP testing service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	observability.PrintBanner()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	notifier, err := notifierFrom(cfg)
	if err != nil {
		return err
	}

	browser := provider.NewChromeBrowser(cfg.Browser.Headless)
	defer browser.Close()

	logger := observability.NewLogger()

	planner := plan.NewPlanner()
	if cfg.Planner.WebFallbackURL != "" {
		planner.WebFallbackURL = cfg.Planner.WebFallbackURL
	}
	if cfg.Planner.APIFallbackURL != "" {
		planner.APIFallbackURL = cfg.Planner.APIFallbackURL
	}

	srv := server.New(addr, server.Deps{
		Planner:  planner,
		Browser:  browser,
		API:      provider.NewClient(cfg.RequestTimeout()),
		Policies: cfg.Policies(),
		Store:    st,
		Logger:   logger,
		Notifier: notifier,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("serving on %s", addr)
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				logger.LogHeartbeat()
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
