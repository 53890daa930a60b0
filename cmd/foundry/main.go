// Package main is the entry point for the foundry CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundryhq/foundry/internal/config"
	"github.com/foundryhq/foundry/internal/core"
	"github.com/foundryhq/foundry/pkg/app"

	// Modules register themselves from init().
	_ "github.com/foundryhq/foundry/internal/gateway"
	_ "github.com/foundryhq/foundry/internal/schedule"
	_ "github.com/foundryhq/foundry/modules/provider/anthropic"
	_ "github.com/foundryhq/foundry/modules/store/sqlite"
	_ "github.com/foundryhq/foundry/modules/tool/launch"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "foundry",
		Short:         "A stateful agent that takes ventures from idea to launch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("foundry %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Println("\nNo compiled modules.")
				return
			}
			fmt.Println("\nCompiled modules:")
			for _, mod := range mods {
				fmt.Printf("  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start foundry with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}

			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
				Commit:     commit,
				Date:       date,
				DataDir:    dataDir,
				LogLevel:   level,
			})
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().String("data-dir", "", "Persistent data directory")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			ids := config.Resolve(cfg)
			fmt.Printf("Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
