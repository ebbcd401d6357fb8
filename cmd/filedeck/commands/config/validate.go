package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/filedeck/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load the configuration file with environment overrides and defaults
applied, and report the first validation error.

Examples:
  filedeck config validate
  filedeck config validate --config /etc/filedeck/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	if _, err := config.MustLoad(configPath); err != nil {
		return err
	}

	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", configPath)
	return nil
}
