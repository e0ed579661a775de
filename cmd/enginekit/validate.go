package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/enginekit/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the host configuration file.

Checks:
  - YAML syntax is valid
  - Server settings are sane
  - Mount overrides are well formed

Examples:
  enginekit validate
  enginekit validate --config /etc/enginekit/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
	fmt.Fprintf(cmd.OutOrStdout(), "  Listen: %s\n", cfg.Server.Addr())
	fmt.Fprintf(cmd.OutOrStdout(), "  Mount overrides: %d\n", len(cfg.Mounts))
	fmt.Fprintf(cmd.OutOrStdout(), "  Unit option blocks: %d\n", len(cfg.Engines))
	return nil
}
