package main

import (
	"fmt"

	"github.com/nao1215/adsaudit/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new adsaudit configuration file",
		Long: `Initialize creates a new .adsaudit configuration file in the current directory.

The generated file holds the default settings (data and output
directories, report days, format and concurrency). Per-account
overrides can be added under "accounts", keyed by data directory.

Examples:
  # Create .adsaudit in current directory
  adsaudit init

  # Create the user-wide config file in the XDG config directory
  adsaudit init --xdg

  # Create config file at a specific path
  adsaudit init -o myconfig.yaml

  # Force overwrite existing file
  adsaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().Bool("xdg", false,
		"Write to the XDG config directory instead of --output")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	useXDG, err := cmd.Flags().GetBool("xdg")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if useXDG {
		outputPath = config.XDGConfigFile()
	}

	if err := config.Save(config.NewConfig(), outputPath, force); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to change defaults, or add per-account settings such as:")
	fmt.Fprintln(out, "  accounts:")
	fmt.Fprintln(out, "    exports/acme:")
	fmt.Fprintln(out, "      name: Acme Corp")
	fmt.Fprintln(out, "      report_days: 90")

	return nil
}
