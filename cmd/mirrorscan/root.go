// Package main provides the entry point for the Mirrorscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for Mirrorscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrorscan",
		Short: "Audit project dependencies against an offline package mirror",
		Long: `Mirrorscan audits a project's resolved dependency graph against an offline
package registry. It reports which dependencies the mirror already satisfies
and classifies each gap by the kind of change importing it would mean:
a new dependency, a downgrade, a major upgrade, or a minor/patch upgrade.

By default, Mirrorscan resolves the dependency graph with the cargo binary
found on PATH. Use --cargo to point at a different toolchain.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
