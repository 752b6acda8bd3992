package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/cardcache"
	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/identity"
	"github.com/sdlctl/sdlctl/internal/slice"
)

var (
	cardRepoID    string
	cardVersionID string
	cardSymbolID  string
	cardSkeleton  bool
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Fetch one symbol's card",
	Long: `card mirrors the getCard and getSkeleton MCP tools (spec §6):
a full card carries the symbol's summary, invariants, side effects and
dependency names, while --skeleton drops everything but identity, range
and metrics.

Examples:
  sdlctl card --repo myservice --symbol sym:abc123
  sdlctl card --repo myservice --symbol sym:abc123 --skeleton`,
	RunE: runCard,
}

func init() {
	cardCmd.Flags().StringVar(&cardRepoID, "repo", "", "repoId (required)")
	cardCmd.Flags().StringVar(&cardVersionID, "version", "", "versionId (default: latest)")
	cardCmd.Flags().StringVar(&cardSymbolID, "symbol", "", "symbolId to fetch (required)")
	cardCmd.Flags().BoolVar(&cardSkeleton, "skeleton", false, "force skeleton detail level")
	_ = cardCmd.MarkFlagRequired("repo")
	_ = cardCmd.MarkFlagRequired("symbol")
	rootCmd.AddCommand(cardCmd)
}

func runCard(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	versionID, err := resolveVersion(a, cardRepoID, cardVersionID)
	if err != nil {
		return err
	}

	detailLevel := "full"
	if cardSkeleton {
		detailLevel = "skeleton"
	}

	key := cardcache.Key{SymbolID: cardSymbolID, VersionID: versionID, DetailLevel: detailLevel}
	if cached, etag, ok := a.cards.Get(key); ok {
		return printJSON(map[string]interface{}{"card": cached, "etag": etag})
	}

	sl, err := a.sliceBldr.Build(slice.Request{
		RepoID:       cardRepoID,
		VersionID:    versionID,
		EntrySymbols: []string{cardSymbolID},
		Budget:       slice.Budget{MaxCards: 1, MaxEstimatedTokens: a.cfg.Slice.MaxBudgetTokens},
	})
	if err != nil {
		return fmt.Errorf("sdlctl: building card: %w", err)
	}
	if len(sl.Cards) == 0 {
		return sdlerrors.NewNoEntriesError([]string{cardSymbolID})
	}

	card := sl.Cards[0]
	if detailLevel == "skeleton" {
		card = skeletonizeCLI(card)
	}
	etag, err := identity.HashCard(card)
	if err != nil {
		return fmt.Errorf("sdlctl: hashing card: %w", err)
	}
	a.cards.Put(key, card, etag)
	return printJSON(map[string]interface{}{"card": card, "etag": etag})
}

// skeletonizeCLI mirrors internal/mcpboundary.skeletonize for CLI callers
// that build cards without going through the MCP boundary.
func skeletonizeCLI(c slice.SymbolCard) slice.SymbolCard {
	c.Summary = ""
	c.Invariants = nil
	c.SideEffects = nil
	c.Deps = slice.Deps{}
	c.DetailLevel = "skeleton"
	return c
}
