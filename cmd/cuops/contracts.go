package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cuops/internal/app"
	"cuops/internal/engine"
	"cuops/internal/ledger"
)

func contractCmd() *cobra.Command {
	c := &cobra.Command{Use: "contract", Short: "Manage content unit contracts"}
	c.AddCommand(contractListCmd())
	c.AddCommand(contractCreateCmd())
	c.AddCommand(contractShowCmd())
	c.AddCommand(contractStatusCmd())
	c.AddCommand(contractActiveCmd())
	c.AddCommand(contractPreflightCmd())
	c.AddCommand(contractLedgerCmd())
	return c
}

func printContracts(items []ledger.ContractOption) error {
	if viper.GetBool("json") {
		return printJSON(items)
	}
	tw := newTable("ID", "Name", "Status", "Period", "Total", "Used", "Remaining", "Used %")
	for _, o := range items {
		c := o.Contract
		row := append([]any{c.ID, c.Name, c.Status, c.StartDate + " .. " + c.EndDate}, balanceCells(o.Balance)...)
		tw.AppendRow(row)
	}
	tw.Render()
	return nil
}

func contractListCmd() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a customer's contracts with balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListContracts(ctx, customerID)
				if err != nil {
					return err
				}
				return printContracts(items)
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func contractCreateCmd() *cobra.Command {
	var opts engine.ContractCreateOptions
	var total, rollover, fee string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.TotalContentUnits, err = parseUnits("units", total); err != nil {
				return err
			}
			if opts.RolloverUnits, err = parseUnits("rollover", rollover); err != nil {
				return err
			}
			if cmd.Flags().Changed("fee") {
				f, err := parseUnits("fee", fee)
				if err != nil {
					return err
				}
				opts.MonthlyFee = &f
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				opts.ActorID = actorID()
				c, err := a.Engine.CreateContract(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "contract name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "draft (default), active, completed or expired")
	cmd.Flags().StringVar(&total, "units", "", "total content units")
	cmd.Flags().StringVar(&rollover, "rollover", "", "rollover units from a previous contract")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&fee, "fee", "", "monthly fee")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	for _, f := range []string{"customer", "name", "units", "start", "end"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func contractShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show contract with balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				o, err := a.Engine.GetContract(ctx, args[0])
				if err != nil {
					return err
				}
				return printContracts([]ledger.ContractOption{o})
			})
		},
	}
}

func contractStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <draft|active|completed|expired>",
		Short: "Set contract status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				c, err := a.Engine.UpdateContractStatus(ctx, args[0], args[1], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func contractActiveCmd() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "active",
		Short: "Show active contracts available for commissioning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				sel, err := a.Engine.ActiveContracts(ctx, customerID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sel)
				}
				if err := printContracts(sel.Options); err != nil {
					return err
				}
				if sel.Selected != nil {
					fmt.Println("Selected:", sel.Selected.Contract.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func contractPreflightCmd() *cobra.Command {
	var customerID, contractID, cost string
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check whether a cost fits the selected contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseUnits("units", cost)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				p, err := a.Engine.PreflightCommission(ctx, customerID, contractID, amount)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				if p.Affordable {
					fmt.Printf("OK: %s units fit %s (remaining %s)\n", p.Cost, p.Selected.Contract.Name, p.Selected.Balance.Remaining.StringFixed(2))
					return nil
				}
				fmt.Println("Not affordable:", p.Reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&contractID, "contract", "", "contract id (defaults to the only active contract)")
	cmd.Flags().StringVar(&cost, "units", "", "content units to spend")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("units")
	return cmd
}

func contractLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <id>",
		Short: "List content objects charged to a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				l, err := a.Engine.ContractLedger(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(l)
				}
				if err := printContracts([]ledger.ContractOption{l.ContractOption}); err != nil {
					return err
				}
				tw := newTable("Content", "Working title", "Units", "Charged at")
				for _, d := range l.Debits {
					tw.AppendRow([]any{d.ContentObjectID, d.WorkingTitle, d.ContentUnits.StringFixed(2), d.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}
