package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect sdlctl's loaded configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration and where it came from",
	Long: `show loads configuration the same way every other command does
(sdlctl.toml in the working directory, $SDL_CONFIG_PATH, then
environment variable overrides, spec §7) and prints the result along
with which environment variables were applied, for diagnosability.`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

type configShowResponse struct {
	ConfigPath   string              `json:"configPath,omitempty"`
	UsedDefaults bool                `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride `json:"envOverrides,omitempty"`
	Config       *config.Config      `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("sdlctl: resolving working directory: %w", err)
	}
	if configPath != "" {
		os.Setenv("SDL_CONFIG_PATH", configPath)
	}

	result, err := config.LoadWithDetails(workingDir)
	if err != nil {
		return fmt.Errorf("sdlctl: loading config: %w", err)
	}

	return printJSON(configShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       result.Config,
	})
}
