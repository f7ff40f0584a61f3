package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cuops/internal/app"
	"cuops/internal/domain"
	"cuops/internal/engine"
)

func taskCmd() *cobra.Command {
	c := &cobra.Command{Use: "task", Short: "Manage production tasks"}
	c.AddCommand(taskListCmd())
	c.AddCommand(taskAddCmd())
	c.AddCommand(taskUpdateCmd())
	c.AddCommand(taskToggleCmd())
	c.AddCommand(taskDeleteCmd())
	c.AddCommand(taskTemplateCmd())
	return c
}

func printTasks(tasks []domain.Task) {
	tw := newTable("#", "ID", "Title", "Status", "Due", "Assignee")
	for _, t := range tasks {
		mark := "[ ]"
		if t.Status == domain.TaskDone {
			mark = "[x]"
		}
		tw.AppendRow([]any{t.SortOrder, t.ID, mark + " " + t.Title, t.Status, str(t.DueDate), str(t.Assignee)})
	}
	tw.Render()
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <content-id>",
		Short: "List tasks of a content object in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				tasks, err := a.Engine.ListTasks(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var order int
	cmd := &cobra.Command{
		Use:   "add <content-id>",
		Short: "Add a production task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ContentObjectID = args[0]
			opts.SortOrder = changed(cmd, "order", order)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				opts.ActorID = actorID()
				t, err := a.Engine.AddTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().IntVar(&order, "order", 0, "sort order (default: after the last task)")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assignee")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, status, due, assignee, notes string
	var order int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a production task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TaskUpdateOptions{
				ID:        args[0],
				Title:     changed(cmd, "title", title),
				Status:    changed(cmd, "status", status),
				SortOrder: changed(cmd, "order", order),
				DueDate:   changed(cmd, "due", due),
				Assignee:  changed(cmd, "assignee", assignee),
				Notes:     changed(cmd, "notes", notes),
				ActorID:   actorID(),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				t, err := a.Engine.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&status, "status", "", "todo or done")
	cmd.Flags().IntVar(&order, "order", 0, "sort order")
	cmd.Flags().StringVar(&due, "due", "", "due date (empty clears)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee (empty clears)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes (empty clears)")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between todo and done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				t, err := a.Engine.ToggleTask(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a production task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteTask(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func taskTemplateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "template <content-id>",
		Short: "Append tasks from a configured template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				tasks, err := a.Engine.ApplyTemplate(ctx, args[0], name, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name (default: the content type)")
	return cmd
}
