package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shortlist/internal/app"
	"github.com/MrSnakeDoc/shortlist/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "shortlist",
	Short: "Decision grouping and resolution service for saved links",
	Long: `Shortlist groups recently saved links that compete for the same decision
(same site, saved close together) and tracks which one wins.

Commands:
  serve       Run the HTTP API (default)
  recompute   Regroup the recent links of one collection
  resolve     Ask whether a decision group has a winner
  seed        Load a YAML seed file into the configured store
  token       Mint a bearer token for a user

Configuration is read from SHORTLIST_* environment variables.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.SetVersionTemplate("shortlist " + version.String() + "\n")
}

// withApp builds the app for one-shot commands and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failure("❌"), err)
		os.Exit(1)
	}
}
