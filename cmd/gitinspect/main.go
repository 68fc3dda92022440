// Package main provides the entry point for the gitinspect CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitinspect/gitinspect/cmd/gitinspect/commands"
	"github.com/gitinspect/gitinspect/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gitinspect",
		Short: "Gitinspect - repository authorship analysis",
		Long: `Gitinspect analyzes who wrote what in git repositories: it walks
history, blames the largest files and reports per-author and per-file
statistics, with moved and copied lines chased back to their authors.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "gitinspect %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
