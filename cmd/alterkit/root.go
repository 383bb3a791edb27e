package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alterkit/alterkit/internal/logger"
	"github.com/alterkit/alterkit/internal/version"

	// Drivers for every supported dialect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

var (
	flagDialect string
	flagDSN     string
	flagSchema  string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "alterkit",
	Short: "Reversible schema migration tool",
	Long: fmt.Sprintf(`alterkit inspects and mutates database schemas across postgres, mysql,
mariadb, sqlserver and sqlite, recording an exact inverse for every change.

Version: %s@%s %s %s

Commands:
  inspect  Print the live schema as a table model
  clear    Drop every table, view and enum type
  version  Print version information

Use "alterkit [command] --help" for more information about a command.`,
		version.App(), version.GitCommit, version.Platform(), version.BuildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDialect, "dialect", envOr("ALTERKIT_DIALECT", "postgres"), "Database dialect")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", os.Getenv("ALTERKIT_DSN"), "Database connection string")
	rootCmd.PersistentFlags().StringVar(&flagSchema, "schema", "", "Target schema (dialect default when empty)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogger() {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.SetGlobal(l, flagDebug)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
