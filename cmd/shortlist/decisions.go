package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shortlist/internal/app"
	"github.com/MrSnakeDoc/shortlist/internal/decision"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Regroup the recent links of one collection",
	Long: `Run one grouping pass over a collection, exactly like
POST /api/decisions/recompute, and print the counts.

Example:
  $ shortlist recompute --user alice --collection trip
  ✓ 1 group(s) created, 2 link(s) updated`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		collection, _ := cmd.Flags().GetString("collection")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(cmd.Context(), func(a *app.App) error {
			res, err := a.Engine().Recompute(cmd.Context(), user, collection)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d group(s) created, %d link(s) updated\n",
				success("✓"), res.GroupsCreated, res.LinksUpdated)
			return nil
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Ask whether a decision group has a winner",
	Long: `Evaluate one decision group, exactly like POST /api/decisions/resolve.
A group whose only remaining member is active gets it marked chosen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		collection, _ := cmd.Flags().GetString("collection")
		group, _ := cmd.Flags().GetString("group")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(cmd.Context(), func(a *app.App) error {
			res, err := a.Engine().ResolveGroup(cmd.Context(), user, collection, group)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			switch res.Status {
			case decision.StatusChosen:
				fmt.Fprintf(out, "%s chosen: %s\n", success("✓"), *res.LinkID)
			case decision.StatusCandidateChosen:
				fmt.Fprintf(out, "%s candidate: %s %s\n", warning("≈"), *res.LinkID, faint("(shortlisted, not final)"))
			default:
				fmt.Fprintf(out, "%s no resolution yet\n", faint("·"))
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{recomputeCmd, resolveCmd} {
		c.Flags().String("user", "", "Id of the user owning the collection")
		c.Flags().String("collection", "", "Collection id")
		c.Flags().Bool("json", false, "Print the raw JSON result")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("collection")
		rootCmd.AddCommand(c)
	}
	resolveCmd.Flags().String("group", "", "Decision group id")
	_ = resolveCmd.MarkFlagRequired("group")
}
