package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage configured repositories",
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured repos and their latest indexed version",
	Long:  `list mirrors the listRepos MCP tool (spec §6) for terminal use.`,
	RunE:  runRepoList,
}

func init() {
	repoCmd.AddCommand(repoListCmd)
	rootCmd.AddCommand(repoCmd)
}

func runRepoList(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	entries, err := a.repos.List()
	if err != nil {
		return fmt.Errorf("sdlctl: listing repos: %w", err)
	}
	return printJSON(entries)
}
