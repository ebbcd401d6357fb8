package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/internal/cli/output"
	"github.com/marmos91/filedeck/pkg/config"
)

var ShowOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective FileDeck configuration, with environment
overrides and defaults applied.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show config as YAML
  filedeck config show

  # Show as JSON
  filedeck config show --output json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&ShowOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(ShowOutput, output.FormatYAML)
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}
