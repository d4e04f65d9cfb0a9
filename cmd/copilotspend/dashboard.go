package main

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/tui"
)

func runDashboard(parent context.Context, opts *globalOptions) error {
	// Logs must never reach the terminal the status element draws on.
	rt, err := newRuntime(opts, runtimeOptions{logOutput: filepath.Join(config.ConfigDir(), "copilotspend.log")})
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	model := tui.NewModel(manualFallback(rt.config()), thresholds(rt.config()))
	var program *tea.Program

	model.SetOnRefresh(func() {
		go func() {
			if _, err := rt.engine.Refresh(ctx); errors.Is(err, core.ErrRefreshInProgress) {
				rt.logger.Debug("manual refresh skipped, one is already running")
			}
		}()
	})
	settingsPath := opts.settingsPath()
	model.SetOnManual(func(a billing.ManualAmounts) error {
		return config.SaveManualTo(settingsPath, a.Spent, a.Budget)
	})

	program = tea.NewProgram(model, tea.WithContext(ctx))

	rt.engine.OnUpdate(func(s core.Snapshot) {
		program.Send(tui.SnapshotMsg{Snapshot: s})
	})

	watcher := config.NewWatcher(settingsPath, 0, rt.logger.Named("config"))
	go func() {
		err := watcher.Watch(ctx, func(cfg config.Config) {
			rt.reconfigure(opts, cfg)
			cfg = rt.config()
			program.Send(tui.SettingsMsg{Manual: manualFallback(cfg), Thresholds: thresholds(cfg)})
		})
		if err != nil {
			rt.logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	if err := rt.engine.Start(ctx); err != nil {
		return err
	}
	defer func() {
		// Cancel first so Stop does not wait out an in-flight fetch.
		cancel()
		rt.engine.Stop()
	}()

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
