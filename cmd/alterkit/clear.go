package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alterkit/alterkit"
)

var clearAutoApprove bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every table, view and enum type",
	Long:  "Clear drops all views, foreign keys, tables and enum types in scope inside a single transaction.",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearAutoApprove, "auto-approve", false, "Skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !clearAutoApprove {
		fmt.Fprintf(os.Stderr, "This drops every object in the %s database. Type 'yes' to continue: ", flagDialect)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			return fmt.Errorf("aborted")
		}
	}

	client, err := alterkit.Open(alterkit.Config{
		Dialect: flagDialect,
		DSN:     flagDSN,
		Schema:  flagSchema,
		Debug:   flagDebug,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Executor().ClearDatabase(ctx); err != nil {
		return fmt.Errorf("clear database: %w", err)
	}
	fmt.Println("Database cleared.")
	return nil
}
