package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shortlist/internal/app"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Load a YAML seed file into the configured store",
	Long: `Write the collections and links of a seed file into the store selected by
SHORTLIST_STORE. Records with the same ids are overwritten.

Example:
  $ SHORTLIST_STORE=sqlite shortlist seed ./seed.yaml
  ✓ 12 link(s) written to sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			n, err := a.Seed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d link(s) written\n", success("✓"), n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
