// Package cmd provides the CLI commands for Estoque Gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/estoque-gate/estoquegate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "estoque-gate",
	Short: "Estoque Gate - inventory app edge gateway",
	Long: `Estoque Gate is the edge gateway between browsers and the remote
inventory API.

It holds the upstream credentials server-side, keeps sessions alive by
refreshing access tokens behind the scenes, and enforces per-profile route
access before any request reaches the inventory API.

Quick start:
  1. Create a config file: estoque-gate.yaml
  2. Run: estoque-gate serve

Configuration:
  Config is loaded from estoque-gate.yaml in the current directory,
  $HOME/.estoque-gate/, or /etc/estoque-gate/.

  Environment variables can override config values with the ESTOQUE_GATE_ prefix.
  Example: ESTOQUE_GATE_SERVER_ADDR=:9090

Commands:
  serve       Start the gateway server
  stop        Stop the running server
  hash-key    Generate a hash for an operator key
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./estoque-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
