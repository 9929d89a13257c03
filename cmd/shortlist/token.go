package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shortlist/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a user",
	Long: `Sign a token with SHORTLIST_JWT_SECRET for local testing.

Example:
  $ export TOKEN=$(shortlist token --user alice)
  $ curl -H "Authorization: Bearer $TOKEN" -d '{"collectionId":"trip"}' localhost:8080/api/decisions/recompute`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		v, err := auth.NewVerifier(os.Getenv("SHORTLIST_JWT_SECRET"))
		if err != nil {
			return fmt.Errorf("SHORTLIST_JWT_SECRET: %w", err)
		}
		token, err := v.Issue(user, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "User id to put in the token subject")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
