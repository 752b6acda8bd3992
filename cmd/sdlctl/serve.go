package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sdlctl/sdlctl/internal/mcpboundary"
	"github.com/sdlctl/sdlctl/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tool boundary over stdio",
	Long: `Start sdlctl's MCP server, exposing listRepos, indexRepo,
getContextSlice, getCard, getSkeleton, getDelta, and getAuditTrail to a
connected LLM agent over stdio.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a := mustBuildApp()
	defer a.Close()

	if a.cfg.Observability.MetricsEnabled {
		metricsSrv := newMetricsServer(a)
		metricsSrv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			_ = metricsSrv.Shutdown(ctx)
		}()
	}

	boundary := mcpboundary.New(mcpboundary.Deps{
		Repos:      a.repos,
		SliceBldr:  a.sliceBldr,
		SliceCache: a.sliceCache,
		Cards:      a.cards,
		DeltaEng:   a.deltaEng,
		PolicyEng:  a.policyEng,
		AuditLog:   a.auditLog,
		Metrics:    a.metrics,
		Logger:     a.logger,
		SliceCfg:   a.cfg.Slice,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("sdlctl MCP server starting", map[string]interface{}{"version": version.Version})
	fmt.Fprintf(os.Stderr, "sdlctl MCP server v%s listening on stdio\n", version.Version)

	if err := boundary.Run(ctx); err != nil {
		return fmt.Errorf("sdlctl: MCP server stopped: %w", err)
	}
	a.logger.Info("sdlctl MCP server stopped", nil)
	return nil
}
