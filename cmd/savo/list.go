package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the registered tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, tasks, err := loadRegistries()
		if err != nil {
			return err
		}
		for _, name := range tasks.List() {
			spec, err := tasks.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tschema=%s\trequired=%v\n",
				spec.Name, spec.SchemaID, spec.RequiredContextKeys)
		}
		return nil
	},
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the registered output schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schemas, _, err := loadRegistries()
		if err != nil {
			return err
		}
		for _, id := range schemas.List() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}
