package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowgraph/csagent/internal/config"
	"github.com/flowgraph/csagent/internal/infrastructure/metrics"
)

// app carries state shared by the subcommands of one invocation
type app struct {
	v          *viper.Viper
	cfgFile    string
	metricsOut string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "csagent",
		Short: "Customer service agent workflows",
		Long: `csagent answers customer questions with a chat model and web search.

The support command plans, researches, drafts and critiques an answer until
the revision budget is spent. The react command runs a tool-calling agent
with a prompt pulled from the prompt hub.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run (- for stderr)")
	_ = a.v.BindPFlag("app.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newSupportCmd(a), newReactCmd(a), newGraphCmd(a), newVersionCmd())
	return rootCmd
}

func (a *app) init(stderr io.Writer) error {
	a.logger = newLogger(stderr, "info")

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		a.logger.Error("failed to load configuration", "error", err)
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(stderr, cfg.App.LogLevel)
	if a.cfgFile != "" {
		a.logger.Debug("using config file", "file", a.cfgFile)
	}
	return nil
}

func (a *app) finish(stderr io.Writer) error {
	if a.logger != nil {
		a.logger.Debug("run metrics", metrics.Snapshot()...)
	}
	switch a.metricsOut {
	case "":
		return nil
	case "-":
		return metrics.WritePrometheus(stderr)
	}
	f, err := os.Create(a.metricsOut)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := metrics.WritePrometheus(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return f.Close()
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
