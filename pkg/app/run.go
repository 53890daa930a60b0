// Package app provides the shared entry point for the foundry binary.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/foundryhq/foundry/internal/channel"
	"github.com/foundryhq/foundry/internal/config"
	"github.com/foundryhq/foundry/internal/core"
	"github.com/foundryhq/foundry/internal/metrics"
	"github.com/foundryhq/foundry/internal/tool"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts all modules, and blocks until a
// shutdown signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	}))

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	// Register shared services before modules load so Provision can
	// discover them.
	dispatcher := channel.NewDispatcher()
	tools := tool.NewRegistry()
	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)

	if err := appCtx.RegisterService("channel.dispatcher", dispatcher); err != nil {
		return err
	}
	if err := appCtx.RegisterService("tools", tools); err != nil {
		return err
	}
	if err := appCtx.RegisterService("metrics", recorder); err != nil {
		return err
	}
	if err := appCtx.RegisterService("config.path", cfgPath); err != nil {
		return err
	}

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return err
	}

	// Wire the router between LoadModules and Start: resolve the
	// provider and stores the modules registered, build the pipeline,
	// and append the router to the app lifecycle.
	if err := wireRouter(application, appCtx, cfg, dispatcher, tools, recorder, logger); err != nil {
		return err
	}

	logger.Info("foundry starting",
		"version", params.Version,
		"modules", len(ids),
	)

	return application.Run()
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/foundry/foundry.yaml →
// ~/.config/foundry/foundry.yaml → ./foundry.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "foundry", "foundry.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "foundry", "foundry.yaml"))
	}

	candidates = append(candidates, "foundry.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/foundry if set, otherwise ~/.local/share/foundry
// per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "foundry")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "foundry")
}
