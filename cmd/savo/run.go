package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/savo-ai/savo/internal/orchestrator"
)

var contextValues []string

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a generation task and print the validated result",
	Long: `Run executes the named task once. Context values are bound into the
task's prompt template with repeated --context key=value flags; a task
declaring required keys refuses to run until all of them are supplied.

On success the validated JSON payload is printed to stdout. Any other
outcome is reported on stderr and the process exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringArrayVar(&contextValues, "context", nil,
		"Context value as key=value (repeatable)")
}

func runTask(cmd *cobra.Command, args []string) error {
	values, err := parseContextValues(contextValues)
	if err != nil {
		return err
	}

	_, orch, logger, err := bootstrap()
	if err != nil {
		return err
	}

	taskName := args[0]
	logger.Info("running task", "task", taskName)

	result := orch.RunTask(cmd.Context(), taskName, values)

	switch result.Status() {
	case orchestrator.StatusOk:
		out, err := json.MarshalIndent(result.Document().Data(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		logger.Info("task succeeded", "task", taskName, "provider", result.ProviderUsed())
		return nil

	case orchestrator.StatusNeedsClarification:
		fmt.Fprintln(cmd.ErrOrStderr(), "The provider needs more information:")
		for _, q := range result.Questions() {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", q)
		}
		return fmt.Errorf("task %q needs clarification", taskName)

	default:
		if kind := result.ErrorKind(); kind == orchestrator.ErrorKindSchemaValidation {
			for _, v := range result.Violations() {
				fmt.Fprintf(cmd.ErrOrStderr(), "  violation at %s: %s\n", v.Path, v.Message)
			}
		}
		return fmt.Errorf("task %q failed (%s): %s", taskName, result.ErrorKind(), result.ErrorMessage())
	}
}

// parseContextValues turns repeated key=value flags into the context map.
// Values are passed through as strings; templates own any formatting.
func parseContextValues(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --context value %q, expected key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}
