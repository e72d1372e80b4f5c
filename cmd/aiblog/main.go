package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "aiblog",
	Short: "AI-written blog backend and client",
	Long: `aiblog serves a small blog API whose posts are written by a generative model,
and doubles as a command line client for that API.

Running aiblog with no command starts the server.

Quick start:
  aiblog register --email me@example.com --password secret
  aiblog generate "Five tips for writing Go tests"
  aiblog posts`,
	SilenceUsage: true,
	RunE:         runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aiblog v%s\n", version)
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
