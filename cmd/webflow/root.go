package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/cli"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/internal/presentation/tui"
	"github.com/aretw0/webflow/pkg/definition"
)

var rootCmd = &cobra.Command{
	Use:   "webflow",
	Short: "Webflow runs page flows defined in YAML",
	Long: `Webflow executes conversational page flows: view, action, decision, subflow and end
states described in YAML documents, served over HTTP or driven from the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().String("dir", "", "Directory containing the flow definitions")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// loadConfig reads the configuration file, if any, and applies the persistent flags on
// top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.FlowsDir = dir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}
	return cfg, cfg.Validate()
}

// consoleViews renders views with the markdown templates of dir, when it has any.
func consoleViews(dir, style string) ([]definition.Option, error) {
	render := tui.Plain
	if style != "plain" {
		r, err := tui.NewRenderer(style)
		if err != nil {
			return nil, fmt.Errorf("renderer: %w", err)
		}
		render = r
	}
	return cli.ConsoleViews(dir, render)
}

// loadFlows builds the flows of a project without opening a conversation store. Views
// use the markdown templates when the project has any.
func loadFlows(cmd *cobra.Command) (*cli.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	views, err := consoleViews(cfg.FlowsDir, "plain")
	if err != nil {
		return nil, err
	}
	flows, err := cli.LoadFlows(cfg.FlowsDir, cfg.Flows, logger, views...)
	if err != nil {
		return nil, err
	}
	return &cli.Stack{Config: cfg, Logger: logger, Flows: flows}, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.Level(), cfg.LogFormat)
}
