package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/testpilot-ai/testpilot/internal/engine"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Store   StoreConfig   `yaml:"store"`
	Planner PlannerConfig `yaml:"planner"`
	Engine  EngineConfig  `yaml:"engine"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type BrowserConfig struct {
	Headless bool `yaml:"headless"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type PlannerConfig struct {
	WebFallbackURL string `yaml:"web_fallback_url"`
	APIFallbackURL string `yaml:"api_fallback_url"`
}

// EngineConfig exposes the interpreter thresholds. All durations are
// in milliseconds; zero fields fall back to the engine defaults.
type EngineConfig struct {
	ElementWaitMS    int    `yaml:"element_wait_ms"`
	SuccessProbeMS   int    `yaml:"success_probe_ms"`
	ContentMinimum   int    `yaml:"content_minimum"`
	PerfExcellentMS  int    `yaml:"perf_excellent_ms"`
	PerfGoodMS       int    `yaml:"perf_good_ms"`
	PerfFairMS       int    `yaml:"perf_fair_ms"`
	FormEmail        string `yaml:"form_email"`
	FormPassword     string `yaml:"form_password"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
}

type TelegramConfig struct {
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
	Enabled bool   `yaml:"enabled"`
}

type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
	Enabled   bool   `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8000"},
		Browser: BrowserConfig{Headless: true},
		Store:   StoreConfig{Path: "testpilot.db"},
	}
}

// Load reads the YAML config at path. A missing file is not an error;
// the defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "testpilot.db"
	}
	return cfg, nil
}

// Policies converts the engine section into interpreter thresholds,
// filling unset fields from the defaults.
func (c *Config) Policies() engine.Policies {
	p := engine.DefaultPolicies()
	e := c.Engine
	if e.ElementWaitMS > 0 {
		p.ElementWait = time.Duration(e.ElementWaitMS) * time.Millisecond
	}
	if e.SuccessProbeMS > 0 {
		p.SuccessProbe = time.Duration(e.SuccessProbeMS) * time.Millisecond
	}
	if e.ContentMinimum > 0 {
		p.ContentMinimum = e.ContentMinimum
	}
	if e.PerfExcellentMS > 0 {
		p.PerfExcellent = time.Duration(e.PerfExcellentMS) * time.Millisecond
	}
	if e.PerfGoodMS > 0 {
		p.PerfGood = time.Duration(e.PerfGoodMS) * time.Millisecond
	}
	if e.PerfFairMS > 0 {
		p.PerfFair = time.Duration(e.PerfFairMS) * time.Millisecond
	}
	if e.FormEmail != "" {
		p.FormEmail = e.FormEmail
	}
	if e.FormPassword != "" {
		p.FormPassword = e.FormPassword
	}
	return p
}

// RequestTimeout is the HTTP client timeout, zero meaning the client
// default.
func (c *Config) RequestTimeout() time.Duration {
	if c.Engine.RequestTimeoutMS > 0 {
		return time.Duration(c.Engine.RequestTimeoutMS) * time.Millisecond
	}
	return 0
}
