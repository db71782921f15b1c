// Package cmd implements the schedbot command-line interface.
//
// This package provides the following commands:
//   - serve: Start the booking assistant HTTP API
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the schedbot application
var rootCmd = &cobra.Command{
	Use:   "schedbot",
	Short: "Conversational calendar booking assistant",
	Long: `schedbot is an HTTP service that lets users check calendar availability
and book appointments through natural-language conversation.

A tool-calling agent translates each chat message into Google Calendar
operations and replies in plain language, keeping per-session history
so follow-up messages stay in context.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "schedbot version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("schedbot version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
