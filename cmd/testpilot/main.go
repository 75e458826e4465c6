package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/testpilot-ai/testpilot/internal/notify"
	"github.com/testpilot-ai/testpilot/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "testpilot",
	Short: "Automated functional testing from natural-language instructions",
	Long: `Testpilot turns plain-English test instructions into executable test
plans and runs them against web pages (through a headless browser) or
HTTP APIs. It can serve an HTTP chat API, run one-shot tests from the
command line, or expose its tooling over the Model Context Protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTestFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func notifierFrom(cfg *config.Config) (notify.Notifier, error) {
	var notifiers notify.Multi
	if tg := cfg.Notify.Telegram; tg.Enabled {
		n, err := notify.NewTelegram(tg.Token, tg.ChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if dc := cfg.Notify.Discord; dc.Enabled {
		n, err := notify.NewDiscord(dc.Token, dc.ChannelID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if len(notifiers) == 0 {
		return nil, nil
	}
	return notifiers, nil
}
