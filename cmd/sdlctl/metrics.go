package main

import (
	"time"

	"github.com/sdlctl/sdlctl/internal/obsmetrics"
)

// defaultShutdownTimeout bounds how long serve waits for the metrics
// server to drain in-flight scrapes during shutdown.
const defaultShutdownTimeout = 10 * time.Second

func newMetricsServer(a *app) *obsmetrics.Server {
	addr := a.cfg.Observability.MetricsAddr
	if addr == "" {
		addr = ":9121"
	}
	return obsmetrics.NewServer(addr, a.metrics, a.logger)
}
