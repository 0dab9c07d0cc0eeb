// Package app wires the simflow application together: logging, run
// configuration, the metadata store, and command dispatch.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tdixon97/legend-simflow/internal/config"
	"github.com/tdixon97/legend-simflow/internal/ctxlog"
	"github.com/tdixon97/legend-simflow/internal/metad"
)

// Config holds everything an App needs to run one command.
type Config struct {
	ConfigPath string
	Command    string

	LogFormat string
	LogLevel  string

	Tier      string
	Simlist   []string
	Jobid     string
	Threads   int
	Workers   int
	MaxFiles  int
	MacroFree bool
	DryRun    bool
	Force     bool
	JSON      bool
}

// App is one configured simflow invocation.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *config.Config
	store  *metad.Store
}

// New loads the run configuration, bootstraps the metadata checkout if
// needed, and opens the metadata store. All three are fatal on failure.
func New(ctx context.Context, outW io.Writer, appCfg *Config) (*App, error) {
	logger := newLogger(appCfg.LogLevel, appCfg.LogFormat, os.Stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx, appCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := metad.EnsureCheckout(ctx, cfg.MetadataRepo, cfg.MetadataRef, cfg.Paths.Metadata); err != nil {
		return nil, err
	}
	store, err := metad.Open(cfg.Paths.Metadata)
	if err != nil {
		return nil, err
	}

	return &App{outW: outW, logger: logger, cfg: cfg, store: store}, nil
}

// newLogger builds an isolated slog.Logger; the global default is never
// touched past the entrypoint bootstrap.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler)
}
