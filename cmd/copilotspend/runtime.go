package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/githubapi"
	"github.com/janekbaraniewski/copilotspend/internal/logger"
	"github.com/janekbaraniewski/copilotspend/internal/metrics"
)

type globalOptions struct {
	configPath string
	token      string
	org        string
	filter     string
}

func defaultConfigHint() string {
	return config.ConfigPath()
}

func (o *globalOptions) settingsPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	return config.ConfigPath()
}

// credentialsPath keeps credentials next to an explicit --config file.
func (o *globalOptions) credentialsPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return filepath.Join(filepath.Dir(p), "credentials.json")
	}
	return config.CredentialsPath()
}

func (o *globalOptions) tokenResolver() *config.TokenResolver {
	r := config.NewTokenResolver(o.token)
	r.CredentialsPath = o.credentialsPath()
	return r
}

// loadConfig reads the settings file and applies command-line overrides.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(o.settingsPath())
	if err != nil {
		return cfg, fmt.Errorf("%w (config path: %s)", err, o.settingsPath())
	}
	return o.applyOverrides(cfg), nil
}

func (o *globalOptions) applyOverrides(cfg config.Config) config.Config {
	if org := strings.TrimSpace(o.org); org != "" {
		cfg.Org = org
	}
	if filter := strings.TrimSpace(o.filter); filter != "" {
		cfg.Filter = filter
	}
	return cfg
}

type runtimeOptions struct {
	// logOutput is used when the settings file names no log file.
	logOutput string
	// logLevel is used when the settings file sets no level.
	logLevel   string
	registerer prometheus.Registerer
}

// runtime is the wired object graph shared by every subcommand.
type runtime struct {
	mu  sync.RWMutex
	cfg config.Config

	logger  *zap.Logger
	client  *githubapi.Client
	tokens  *config.TokenResolver
	fetcher *billing.Fetcher
	engine  *core.Engine
}

// newRuntime wires the client, fetcher and engine.
func newRuntime(o *globalOptions, ro runtimeOptions) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logOpts := logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.File}
	if logOpts.Level == "" {
		logOpts.Level = ro.logLevel
	}
	if logOpts.Output == "" {
		logOpts.Output = ro.logOutput
	}
	log, err := logger.New(logOpts)
	if err != nil {
		return nil, err
	}

	client := githubapi.New(clientOptions(cfg, log))
	var recorder *metrics.Recorder
	if ro.registerer != nil {
		recorder = metrics.NewRecorder(ro.registerer)
	}
	fetcher := billing.NewFetcher(client, billing.Options{Logger: log.Named("billing"), Metrics: recorder})
	tokens := o.tokenResolver()
	engine := core.NewEngine(fetcher, tokens, engineSettings(cfg), log.Named("engine"))

	return &runtime{
		cfg:     cfg,
		logger:  log,
		client:  client,
		tokens:  tokens,
		fetcher: fetcher,
		engine:  engine,
	}, nil
}

// reconfigure applies a reloaded settings file to the live client and engine.
func (r *runtime) reconfigure(o *globalOptions, cfg config.Config) {
	cfg = o.applyOverrides(cfg)
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	r.client.ConfigChanged(clientOptions(cfg, r.logger))
	if err := r.engine.SetSettings(engineSettings(cfg)); err != nil {
		r.logger.Warn("applying reloaded settings failed", zap.Error(err))
	}
}

func (r *runtime) config() config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func clientOptions(cfg config.Config, log *zap.Logger) githubapi.Options {
	return githubapi.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout(),
		Proxy:   cfg.Proxy.Settings(),
		Logger:  log.Named("github"),
	}
}

func engineSettings(cfg config.Config) core.Settings {
	return core.Settings{
		Org:          cfg.Org,
		Filter:       cfg.Filter,
		ManualBudget: cfg.Manual.Budget,
		Interval:     cfg.RefreshInterval(),
		// Worst case is four sequential requests: three usage candidates plus budgets.
		FetchTimeout: max(4*cfg.RequestTimeout(), core.DefaultFetchTimeout),
	}
}

func manualFallback(cfg config.Config) core.ManualFallback {
	return core.ManualFallback{Spent: cfg.Manual.Spent, Budget: cfg.Manual.Budget}
}

func thresholds(cfg config.Config) core.Thresholds {
	return core.Thresholds{Warn: cfg.UI.WarnThreshold, Crit: cfg.UI.CritThreshold}
}
