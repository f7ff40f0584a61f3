package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cuops/internal/app"
	"cuops/internal/engine"
)

func customerCmd() *cobra.Command {
	c := &cobra.Command{Use: "customer", Short: "Manage customers"}
	c.AddCommand(customerListCmd())
	c.AddCommand(customerCreateCmd())
	c.AddCommand(customerShowCmd())
	c.AddCommand(customerUpdateCmd())
	c.AddCommand(customerArchiveCmd())
	c.AddCommand(customerDeleteCmd())
	return c
}

func customerListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListCustomers(ctx, all)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Name", "Status", "Industry", "Contact")
				for _, c := range items {
					tw.AppendRow([]any{c.ID, c.Name, c.Status, c.Industry, c.PrimaryContact})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived customers")
	return cmd
}

func customerCreateCmd() *cobra.Command {
	var in engine.CustomerInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				in.ActorID = actorID()
				c, err := a.Engine.CreateCustomer(ctx, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "customer name")
	cmd.Flags().StringVar(&in.Status, "status", "", "active, inactive or archived")
	cmd.Flags().StringVar(&in.Industry, "industry", "", "industry")
	cmd.Flags().StringVar(&in.PrimaryContact, "contact", "", "primary contact")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func customerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show customer with contract balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := a.Engine.GetCustomer(ctx, args[0])
				if err != nil {
					return err
				}
				contracts, err := a.Engine.ListContracts(ctx, c.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"customer": c, "contracts": contracts})
				}
				fmt.Printf("Customer: %s (%s)\n", c.Name, c.Status)
				tw := newTable("Contract", "Status", "Total", "Used", "Remaining", "Used %")
				for _, o := range contracts {
					tw.AppendRow(append([]any{o.Contract.Name, o.Contract.Status}, balanceCells(o.Balance)...))
				}
				tw.Render()
				return nil
			})
		},
	}
}

func customerUpdateCmd() *cobra.Command {
	var name, status, industry, contact string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := a.Engine.UpdateCustomer(ctx, args[0], engine.CustomerPatch{
					Name:           changed(cmd, "name", name),
					Status:         changed(cmd, "status", status),
					Industry:       changed(cmd, "industry", industry),
					PrimaryContact: changed(cmd, "contact", contact),
					ActorID:        actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	cmd.Flags().StringVar(&status, "status", "", "active, inactive or archived")
	cmd.Flags().StringVar(&industry, "industry", "", "industry")
	cmd.Flags().StringVar(&contact, "contact", "", "primary contact")
	return cmd
}

func customerArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := a.Engine.ArchiveCustomer(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func customerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete customer (refused while a contract is active)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if err := a.Engine.DeleteCustomer(ctx, args[0], actorID()); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}
