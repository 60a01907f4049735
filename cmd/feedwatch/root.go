package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickgao/postfeed/internal/config"
)

type rootFlags struct {
	configPath string
	logLevel   string
	host       string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "feedwatch",
		Short: "Real-time post feed client",
		Long: `feedwatch keeps a single connection to the post feed event stream,
reconnects when it drops, and prints new_post and new_posts events.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (defaults and environment when empty)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.host, "host", "", "host context for endpoint selection (localhost selects the local address)")

	cmd.AddCommand(newWatchCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig loads the config file if given, otherwise builds one from the environment.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if f.configPath != "" {
		var err error
		cfg, err = config.LoadAndValidate(f.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.FromEnv()
	}

	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.host != "" {
		cfg.Endpoint.HostContext = f.host
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the structured logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
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
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
