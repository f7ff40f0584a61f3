package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cuops/internal/app"
	"cuops/internal/domain"
	"cuops/internal/engine"
	"cuops/internal/ledger"
)

func ideaCmd() *cobra.Command {
	c := &cobra.Command{Use: "idea", Short: "Manage the idea backlog"}
	c.AddCommand(ideaListCmd())
	c.AddCommand(ideaSubmitCmd())
	c.AddCommand(ideaShowCmd())
	c.AddCommand(ideaUpdateCmd())
	c.AddCommand(ideaTransitionCmd("shortlist", "Shortlist a submitted idea", engine.Engine.ShortlistIdea))
	c.AddCommand(ideaTransitionCmd("reject", "Reject an idea", engine.Engine.RejectIdea))
	c.AddCommand(ideaTransitionCmd("reopen", "Return a rejected idea to submitted", engine.Engine.ReopenIdea))
	c.AddCommand(ideaDeleteCmd())
	c.AddCommand(ideaCommissionCmd())
	return c
}

func ideaListCmd() *cobra.Command {
	var customerID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListIdeas(ctx, ledger.ScopeFrom(customerID), status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Title", "Status", "Customer", "Topics")
				for _, i := range items {
					tw.AppendRow([]any{i.ID, i.Title, i.Status, str(i.CustomerID), strings.Join(i.TopicTags, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&status, "status", "", "submitted, shortlisted, commissioned or rejected")
	return cmd
}

func ideaSubmitCmd() *cobra.Command {
	var in engine.IdeaInput
	var engagement float64
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an idea",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.PredictedEngagement = changed(cmd, "engagement", engagement)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				in.ActorID = actorID()
				i, err := a.Engine.SubmitIdea(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "idea title")
	cmd.Flags().StringVar(&in.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().Float64Var(&engagement, "engagement", 0, "predicted engagement score")
	cmd.Flags().StringSliceVar(&in.TopicTags, "topic", nil, "topic tag (repeatable)")
	cmd.Flags().StringSliceVar(&in.StrategicTags, "strategic", nil, "strategic tag (repeatable)")
	cmd.Flags().StringSliceVar(&in.EventTags, "event", nil, "event tag (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func ideaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				i, err := a.Engine.GetIdea(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
}

func ideaUpdateCmd() *cobra.Command {
	var customerID, title, description string
	var engagement float64
	var clearEngagement bool
	var topics, strategic, events []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update idea fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := engine.IdeaPatch{
				CustomerID:          changed(cmd, "customer", customerID),
				Title:               changed(cmd, "title", title),
				Description:         changed(cmd, "description", description),
				PredictedEngagement: changed(cmd, "engagement", engagement),
				ClearEngagement:     clearEngagement,
				ActorID:             actorID(),
			}
			if cmd.Flags().Changed("topic") {
				p.TopicTags = nonNilTags(topics)
			}
			if cmd.Flags().Changed("strategic") {
				p.StrategicTags = nonNilTags(strategic)
			}
			if cmd.Flags().Changed("event") {
				p.EventTags = nonNilTags(events)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				i, err := a.Engine.UpdateIdea(ctx, args[0], p)
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id (empty detaches)")
	cmd.Flags().StringVar(&title, "title", "", "idea title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().Float64Var(&engagement, "engagement", 0, "predicted engagement score")
	cmd.Flags().BoolVar(&clearEngagement, "clear-engagement", false, "remove the predicted engagement score")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "replace topic tags")
	cmd.Flags().StringSliceVar(&strategic, "strategic", nil, "replace strategic tags")
	cmd.Flags().StringSliceVar(&events, "event", nil, "replace event tags")
	return cmd
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func ideaTransitionCmd(use, short string, apply func(engine.Engine, context.Context, string, string) (domain.Idea, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				i, err := apply(a.Engine, ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(i)
			})
		},
	}
}

func ideaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an idea that has no content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteIdea(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func ideaCommissionCmd() *cobra.Command {
	var opts engine.CommissionOptions
	var cost string
	cmd := &cobra.Command{
		Use:   "commission <id>",
		Short: "Commission an idea and debit its cost from a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.ContentUnits, err = parseUnits("units", cost); err != nil {
				return err
			}
			opts.IdeaID = args[0]
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				opts.ActorID = actorID()
				c, err := a.Engine.Commission(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ContentType, "type", "", "content type ("+strings.Join(domain.ContentTypes, ", ")+")")
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&opts.ContractID, "contract", "", "contract to debit")
	cmd.Flags().StringVar(&cost, "units", "", "content units to debit")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
