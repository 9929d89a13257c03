package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shortlist/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := app.New(context.Background())
	if err != nil {
		return err
	}
	return a.Run()
}
