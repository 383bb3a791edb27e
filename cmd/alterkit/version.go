package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alterkit/alterkit/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alterkit %s@%s %s %s\n",
			version.App(), version.GitCommit, version.Platform(), version.BuildDate)
	},
}
