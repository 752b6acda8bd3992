package main

import (
	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sdlctl",
	Short: "sdlctl - code intelligence backend for LLM agents",
	Long: `sdlctl ingests source repositories, extracts a symbol-level dependency
graph, and serves budget-bounded context slices and per-symbol cards to
LLM agents over a narrow MCP tool boundary.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sdlctl version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to sdlctl.toml (default: search working directory)")
}
