package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for adsaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adsaudit",
		Short: "Audit tool for Google Ads report exports",
		Long: `adsaudit audits Google Ads report exports.

It loads the CSV or Excel exports found in a data directory, runs twelve
rule-based analyzers (campaigns, budgets, keywords, search terms, ads,
ad groups, bidding, audiences, devices, schedule, extensions and
geography) and writes a report of findings ordered by severity.

Export names follow the canonical layout (campaigns.csv, keywords.csv,
...). Use 'adsaudit classify --organize' to rename raw downloads.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewClassifyCmd())
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

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
