package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "enginekit",
	Short: "Pluggable application runtime demo host",
	Long: `Enginekit demo host.

Composes sample units (a mountable blog and a routeless background
library) into a single application and serves them over HTTP.

Quick start:
  enginekit serve              # boot the host and serve
  enginekit engines list       # show registered units
  enginekit engines install    # copy unit migrations and assets
  enginekit validate           # validate configuration`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "enginekit.yaml", "config file path")
}
