package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alterkit/alterkit"
	"github.com/alterkit/alterkit/schema"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [table...]",
	Short: "Print the live schema as a table model",
	Long:  "Inspect loads tables and views from the live catalog and prints the canonical model as JSON. With no arguments every table in scope is loaded.",
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := alterkit.Config{
		Dialect: flagDialect,
		DSN:     flagDSN,
		Schema:  flagSchema,
		Debug:   flagDebug,
	}
	client, err := alterkit.Open(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	names := args
	if len(names) == 0 {
		names, err = client.Executor().Cache().ListTableNames(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
	}

	// Table loads batch per call; split the set so big schemas overlap
	// their catalog round trips. Session and cache are single-owner, so
	// each worker gets its own client and writes a disjoint stripe.
	tables := make([]*schema.Table, len(names))
	workers := 4
	if len(names) < workers {
		workers = len(names)
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			c, err := alterkit.Open(cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			for i := w; i < len(names); i += workers {
				t, err := c.Executor().Table(gctx, names[i])
				if err != nil {
					return fmt.Errorf("load %s: %w", names[i], err)
				}
				tables[i] = t
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := struct {
		Dialect string          `json:"dialect"`
		Tables  []*schema.Table `json:"tables"`
	}{Dialect: flagDialect, Tables: tables}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
