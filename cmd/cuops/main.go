package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cuops/internal/app"
	"cuops/internal/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "cuops",
	Short: "Content unit operations CLI",
	Long: `cuops tracks content-unit contracts and the editorial pipeline that spends them.
Core concepts:
- Customer: the client whose contracts and content are tracked.
- Contract: a grant of content units (plus rollover) valid between two dates.
- Idea: a proposed piece; submitted -> shortlisted -> commissioned, or rejected.
- Commission: turns an idea into a content object and debits its cost from a contract in one step.
- Content object: the piece being produced; its status derives from its production tasks unless published or spiked.
- Event log: every change is recorded, view with 'cuops log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.LoadEnv(viper.GetString("workspace"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CUOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/cuops.yml)")
	rootCmd.PersistentFlags().String("driver", "", "database driver override (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN override")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	for _, name := range []string{"workspace", "config", "driver", "dsn", "json", "actor-id"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(customerCmd())
	rootCmd.AddCommand(contractCmd())
	rootCmd.AddCommand(ideaCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- helpers ---

func appOptions() app.Options {
	return app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
		Driver:     viper.GetString("driver"),
		DSN:        viper.GetString("dsn"),
	}
}

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	actx, err := app.Open(appOptions())
	if err != nil {
		return err
	}
	defer actx.Close()
	return fn(ctx, actx)
}

func actorID() string {
	return viper.GetString("actor-id")
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

// changed returns a pointer to value when the flag was set on the command line.
func changed[T any](cmd *cobra.Command, flag string, value T) *T {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func parseUnits(flag, value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	d, err := ledger.ParseUnits(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func balanceCells(b ledger.Balance) table.Row {
	return table.Row{b.Total.StringFixed(2), b.Used.StringFixed(2), b.Remaining.StringFixed(2), b.PercentUsed.String() + "%"}
}
