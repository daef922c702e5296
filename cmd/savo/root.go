package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/savo-ai/savo/internal/config"
	"github.com/savo-ai/savo/internal/llm/providers"
	"github.com/savo-ai/savo/internal/orchestrator"
	"github.com/savo-ai/savo/internal/schema"
	"github.com/savo-ai/savo/internal/task"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "savo",
	Short: "Savo - schema-validated LLM task runner",
	Long: `Savo runs declarative generation tasks against configured LLM
providers and guarantees every successful result conforms to the
task's output schema. Invalid payloads trigger a bounded corrective
retry; rate-limited providers fall back to a configured alternate.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "savo.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(schemasCmd)
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for result output.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// bootstrap loads configuration and builds every registry. Any failure here
// aborts the process before a single request runs.
func bootstrap() (*config.Config, *orchestrator.Orchestrator, *slog.Logger, error) {
	logger := newLogger()

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	schemas, err := schema.LoadDir(cfg.SchemaDir)
	if err != nil {
		return nil, nil, nil, err
	}

	tasks, err := task.LoadDir(cfg.TaskDir)
	if err != nil {
		return nil, nil, nil, err
	}

	registry, err := providers.BuildRegistry(cfg.Providers)
	if err != nil {
		return nil, nil, nil, err
	}

	orch, err := orchestrator.New(registry, schemas, tasks, cfg.Orchestrator,
		orchestrator.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}

	logger.Debug("bootstrap complete",
		"schemas", len(schemas.List()),
		"tasks", len(tasks.List()),
		"providers", len(registry.List()))

	return cfg, orch, logger, nil
}

// loadRegistries is the lighter bootstrap for inspection commands that never
// touch a provider.
func loadRegistries() (*schema.Registry, *task.Registry, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	schemas, err := schema.LoadDir(cfg.SchemaDir)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := task.LoadDir(cfg.TaskDir)
	if err != nil {
		return nil, nil, err
	}
	return schemas, tasks, nil
}
