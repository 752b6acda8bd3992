package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sdlctl/sdlctl/internal/audit"
	"github.com/sdlctl/sdlctl/internal/cardcache"
	"github.com/sdlctl/sdlctl/internal/config"
	"github.com/sdlctl/sdlctl/internal/delta"
	"github.com/sdlctl/sdlctl/internal/indexer"
	"github.com/sdlctl/sdlctl/internal/logging"
	"github.com/sdlctl/sdlctl/internal/obsmetrics"
	"github.com/sdlctl/sdlctl/internal/policy"
	"github.com/sdlctl/sdlctl/internal/redaction"
	"github.com/sdlctl/sdlctl/internal/repo"
	"github.com/sdlctl/sdlctl/internal/slice"
	"github.com/sdlctl/sdlctl/internal/storage"
	"github.com/sdlctl/sdlctl/internal/summaryprovider"
)

// app bundles every long-lived dependency a command needs, built once per
// process invocation the way ckb's engine_helper.go lazily builds its
// shared *query.Engine from config + storage.
type app struct {
	cfg       *config.Config
	db        *storage.DB
	logger    *logging.Logger
	indexer   *indexer.Indexer
	repos     *repo.Service
	sliceBldr *slice.Builder
	sliceCache *slice.Cache
	cards     *cardcache.Cache
	deltaEng  *delta.Engine
	policyEng *policy.Engine
	auditLog  *audit.Log
	metrics   *obsmetrics.Registry
}

// buildApp loads config from the working directory (or --config), opens
// storage, and wires every package-level engine sdlctl's commands share.
func buildApp() (*app, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("sdlctl: resolving working directory: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		os.Setenv("SDL_CONFIG_PATH", configPath)
	}
	cfg, err = config.Load(workingDir)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: loading config: %w", err)
	}

	logFormat := logging.HumanFormat
	if cfg.LogFormat == "json" {
		logFormat = logging.JSONFormat
	}
	logLevel := logging.LogLevel(cfg.LogLevel)
	if logLevel == "" {
		logLevel = logging.InfoLevel
	}
	logger := logging.NewLogger(logging.Config{Format: logFormat, Level: logLevel})

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "sdlctl.db"
	}
	db, err := storage.Open(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("sdlctl: opening storage at %s: %w", dbPath, err)
	}

	ix := indexer.New(db, indexer.Limits{
		Workers:           cfg.Indexing.MaxConcurrency,
		FileIOConcurrency: cfg.Indexing.FileIOConcurrency,
		DBIOConcurrency:   cfg.Indexing.DBIOConcurrency,
		QueueTimeoutMs:    cfg.Indexing.QueueTimeoutMs,
		TaskTimeoutMs:     cfg.Indexing.TaskTimeoutMs,
		MaxFileBytes:      cfg.Indexing.MaxFileBytes,
	}, logger)

	if cfg.Summary.Enabled && cfg.Summary.APIKey != "" {
		ix.SetSummaryProvider(summaryprovider.NewAnthropicProvider(summaryprovider.AnthropicConfig{
			APIKey:    cfg.Summary.APIKey,
			Model:     cfg.Summary.Model,
			MaxTokens: cfg.Summary.MaxTokens,
		}, logger))
	}

	repoSvc := repo.New(cfg.Repos, storage.NewRepoRepository(db), storage.NewVersionRepository(db), ix, logger)
	if err := repoSvc.EnsureRegistered(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sdlctl: registering configured repos: %w", err)
	}

	sliceBldr := slice.NewBuilder(
		storage.NewSymbolRepository(db), storage.NewEdgeRepository(db),
		storage.NewFileRepository(db), storage.NewImportRepository(db), storage.NewMetricsRepository(db),
	)
	sliceCache, err := slice.NewCache(cfg.Slice.CardCacheEntries)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sdlctl: building slice cache: %w", err)
	}
	cards, err := cardcache.New(cfg.Slice.CardCacheEntries, cfg.Slice.CardCacheBytes)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sdlctl: building card cache: %w", err)
	}

	deltaEng := delta.New(storage.NewSymbolRepository(db), storage.NewVersionRepository(db), delta.Weights{
		Interface:   cfg.Delta.InterfaceWeight,
		Behavior:    cfg.Delta.BehaviorWeight,
		SideEffects: cfg.Delta.SideEffectsWeight,
	})

	policyEng := policy.New(policy.StandardRules(cfg.Policy))

	redactor, err := redaction.New(cfg.Redaction.Enabled, cfg.Redaction.Salt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sdlctl: building redactor: %w", err)
	}
	auditLog := audit.New(storage.NewAuditRepository(db), redactor)

	return &app{
		cfg:        cfg,
		db:         db,
		logger:     logger,
		indexer:    ix,
		repos:      repoSvc,
		sliceBldr:  sliceBldr,
		sliceCache: sliceCache,
		cards:      cards,
		deltaEng:   deltaEng,
		policyEng:  policyEng,
		auditLog:   auditLog,
		metrics:    obsmetrics.New(),
	}, nil
}

func (a *app) Close() {
	a.indexer.Stop()
	a.db.Close()
}

// mustBuildApp returns a fully wired app or exits, mirroring ckb's
// mustGetEngine fail-fast pattern for CLI commands.
func mustBuildApp() *app {
	a, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
