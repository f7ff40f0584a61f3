package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cuops/internal/app"
	"cuops/internal/domain"
	"cuops/internal/engine"
	"cuops/internal/ledger"
)

func contentCmd() *cobra.Command {
	c := &cobra.Command{Use: "content", Short: "Manage content objects"}
	c.AddCommand(contentListCmd())
	c.AddCommand(contentShowCmd())
	c.AddCommand(contentUpdateCmd())
	c.AddCommand(contentFlagCmd("publish", "Mark content published", engine.Engine.PublishContent))
	c.AddCommand(contentFlagCmd("spike", "Mark content spiked", engine.Engine.SpikeContent))
	c.AddCommand(contentFlagCmd("reset", "Clear the explicit status so it derives from tasks", engine.Engine.ResetContentStatus))
	c.AddCommand(contentDeleteCmd())
	c.AddCommand(contentPipelineCmd())
	c.AddCommand(contentLinkCmd())
	c.AddCommand(contentUnlinkCmd())
	return c
}

func contentListCmd() *cobra.Command {
	var customerID string
	var f engine.ContentFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Scope = ledger.ScopeFrom(customerID)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListContent(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Title", "Type", "Status", "Tasks", "Units")
				for _, c := range items {
					tw.AppendRow([]any{c.ID, c.WorkingTitle, c.ContentType, c.DerivedStatus, fmt.Sprintf("%d/%d", c.DoneTasks, c.TotalTasks), c.ContentUnits.StringFixed(2)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&f.Status, "status", "", "derived status filter")
	cmd.Flags().StringVar(&f.ContentType, "type", "", "content type filter")
	return cmd
}

func contentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show content object with tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				d, err := a.Engine.GetContent(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				fmt.Printf("%s [%s] %s\n", d.WorkingTitle, d.ContentType, d.DerivedStatus)
				fmt.Printf("Progress: %d/%d (%.0f%%)\n", d.Progress.Done, d.Progress.Total, d.Progress.Percent)
				printTasks(d.Tasks)
				for _, p := range d.Posts {
					fmt.Printf("Post: %s on %s\n", p.PostID, p.Platform)
				}
				return nil
			})
		},
	}
}

func contentUpdateCmd() *cobra.Command {
	var workingTitle, finalTitle, body, contentType string
	var evergreen bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update content object fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := engine.ContentPatch{
				WorkingTitle: changed(cmd, "working-title", workingTitle),
				FinalTitle:   changed(cmd, "final-title", finalTitle),
				Body:         changed(cmd, "body", body),
				ContentType:  changed(cmd, "type", contentType),
				Evergreen:    changed(cmd, "evergreen", evergreen),
				ActorID:      actorID(),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := a.Engine.UpdateContent(ctx, args[0], p)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&workingTitle, "working-title", "", "working title")
	cmd.Flags().StringVar(&finalTitle, "final-title", "", "final title (empty clears)")
	cmd.Flags().StringVar(&body, "body", "", "body text")
	cmd.Flags().StringVar(&contentType, "type", "", "content type")
	cmd.Flags().BoolVar(&evergreen, "evergreen", false, "mark as evergreen")
	return cmd
}

func contentFlagCmd(use, short string, apply func(engine.Engine, context.Context, string, string) (domain.ContentObject, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := apply(a.Engine, ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func contentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete content object and its tasks (units are not refunded)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteContent(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func contentPipelineCmd() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Count content objects per derived status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				counts, err := a.Engine.Pipeline(ctx, ledger.ScopeFrom(customerID))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				tw := newTable("Status", "Count")
				for _, label := range ledger.DisplayStatuses {
					tw.AppendRow([]any{label, counts[label]})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	return cmd
}

func contentLinkCmd() *cobra.Command {
	var postID, platform string
	cmd := &cobra.Command{
		Use:   "link <id>",
		Short: "Link a social post to a content object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				link, err := a.Engine.LinkPost(ctx, args[0], postID, platform, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(link)
			})
		},
	}
	cmd.Flags().StringVar(&postID, "post", "", "post id")
	cmd.Flags().StringVar(&platform, "platform", "", "platform name")
	_ = cmd.MarkFlagRequired("post")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func contentUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id> <post-id>",
		Short: "Remove a linked social post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.UnlinkPost(ctx, args[0], args[1], actorID()); err != nil {
					return err
				}
				fmt.Println("unlinked", args[1])
				return nil
			})
		},
	}
}
