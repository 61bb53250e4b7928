package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/legal-workflow/internal/infrastructure/repository/postgres"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or upgrade the database schema",
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, _ []string) error {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(cmd.Context(), db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}
