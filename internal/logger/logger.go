package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugEnv turns on debug logging regardless of configuration.
const DebugEnv = "COPILOTSPEND_DEBUG"

// Options control logger construction. An empty Level together with an unset
// DebugEnv yields a no-op logger so the terminal UI is left alone.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // "console" (default) or "json"
	Output string // file path; empty means stderr
}

func New(opts Options) (*zap.Logger, error) {
	level := strings.TrimSpace(opts.Level)
	if os.Getenv(DebugEnv) != "" {
		level = "debug"
	}
	if level == "" {
		return zap.NewNop(), nil
	}

	var cfg zap.Config
	if opts.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	out := "stderr"
	if opts.Output != "" {
		out = opts.Output
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{out}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
