package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/adsaudit/internal/analyzer"
	"github.com/nao1215/adsaudit/internal/config"
	alog "github.com/nao1215/adsaudit/internal/log"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command.
// This command exposes the tool invocation contract used by external
// orchestrators: a tool name and JSON parameters in, a JSON string out.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <tool> [json-input]",
		Short: "Invoke a single analyzer tool",
		Long: `Analyze invokes one analyzer by its tool name and prints the JSON result.

The optional JSON input overrides the tool's default parameters, which
point at the canonical export names inside the data directory. Use "-"
to read the input from stdin. Errors are printed as a JSON object with
an "error" key; the command itself only fails on bad usage.

Examples:
  # List the available tools
  adsaudit analyze --list

  # Print the tool schemas
  adsaudit analyze --schema

  # Analyze keywords in ./data
  adsaudit analyze analyze_keywords

  # Analyze a specific file
  adsaudit analyze analyze_devices '{"data_path": "exports/acme/devices.csv"}'`,
		Args: cobra.MaximumNArgs(2),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().BoolP("list", "l", false, "List the available tool names")
	cmd.Flags().Bool("schema", false, "Print the tool schemas as JSON")
	cmd.Flags().StringP("data-dir", "d", config.DefaultDataDir,
		"Directory used for default export paths")
	cmd.Flags().IntP("report-days", "r", config.DefaultReportDays,
		"Default number of days covered by the exports")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	schema, err := cmd.Flags().GetBool("schema")
	if err != nil {
		return err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	reportDays, err := cmd.Flags().GetInt("report-days")
	if err != nil {
		return err
	}

	reg := analyzer.DefaultRegistry(
		analyzer.WithDataDir(dataDir),
		analyzer.WithReportDays(reportDays),
		analyzer.WithLogger(alog.NewLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))),
	)
	out := cmd.OutOrStdout()

	switch {
	case list:
		for _, name := range reg.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	case schema:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(reg.Tools())
	}

	if len(args) == 0 {
		return errors.New("no tool provided (use --list to see the available tools)")
	}

	var input []byte
	if len(args) == 2 {
		input = []byte(args[1])
		if args[1] == "-" {
			input, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
		}
	}

	fmt.Fprintln(out, reg.Invoke(commandContext(cmd), args[0], input))
	return nil
}
