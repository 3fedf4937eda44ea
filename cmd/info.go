package cmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	ext_config "github.com/taskkit/bundletask/config"
	"github.com/taskkit/bundletask/internal/service"
	"github.com/taskkit/bundletask/pkg/task"
)

// taskType is the name the bundle task is registered under.
const taskType = "bundle"

func newDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default task configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bs, err := yaml.Marshal(task.Defaults)
			if err != nil {
				return fmt.Errorf("failed to marshal defaults: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(bs)
			return err
		},
	}
}

func newTasksCommand() *cobra.Command {
	var tasksFiles []string

	tasks := &cobra.Command{
		Use:   "tasks",
		Short: "List available tasks",
		Long: `List the registered task types, or with --file the tasks defined in a
tasks file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Description")

			if len(tasksFiles) == 0 {
				if err := table.Append(taskType, task.Description); err != nil {
					return err
				}
				return table.Render()
			}

			defined, err := service.LoadTasks(tasksFiles...)
			if err != nil {
				return err
			}
			for _, name := range defined.Names() {
				desc := task.Description
				if p := defined[name].Path(); p != "" {
					desc += " (config: " + p + ")"
				}
				if err := table.Append(name, desc); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	tasks.Flags().StringArrayVarP(&tasksFiles, "file", "f", nil, "tasks file or directory (repeatable)")
	return tasks
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of task configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(ext_config.Schema())
			return err
		},
	}
}
