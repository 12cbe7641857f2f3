// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the ClaimGate server.
// The server admits claim-verification requests, runs them through the
// retrieval and classification pipeline, and serves the analytics and
// cache-administration surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/admission"
	"github.com/veritaslabs/claimgate/internal/api"
	"github.com/veritaslabs/claimgate/internal/buildinfo"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/classifier"
	"github.com/veritaslabs/claimgate/internal/config"
	"github.com/veritaslabs/claimgate/internal/content"
	"github.com/veritaslabs/claimgate/internal/counter"
	"github.com/veritaslabs/claimgate/internal/fallback"
	"github.com/veritaslabs/claimgate/internal/health"
	"github.com/veritaslabs/claimgate/internal/logging"
	"github.com/veritaslabs/claimgate/internal/metrics"
	"github.com/veritaslabs/claimgate/internal/orchestrator"
	"github.com/veritaslabs/claimgate/internal/persistence"
	"github.com/veritaslabs/claimgate/internal/retrieval"
	"github.com/veritaslabs/claimgate/internal/retry"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("ClaimGate Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	if configPath == "" {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}

	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, filepath.Join(wd, "logs"), cfg.LogsMaxTotalSizeMB); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return
	}
	logging.SetLevel(cfg.Debug)

	if err := run(cfg, configPath); err != nil {
		log.Errorf("server exited with error: %v", err)
		os.Exit(1)
	}
}

// run wires the collaborators and serves until a shutdown signal arrives.
func run(cfg *config.Config, configPath string) error {
	ctx := context.Background()
	m := metrics.New()

	// Shared counter store and cache backing. Both degrade gracefully when
	// Redis is not configured or unreachable.
	var sharedCounters counter.Store
	var kv cache.KV
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		sharedCounters = counter.NewRedisStore(client)
		kv = cache.NewRedisKV(client)
		log.Infof("Shared counter store and cache backed by redis at %s", cfg.Redis.Addr)
	} else {
		log.Warn("No redis configured; counters are process-local and caching is disabled")
	}

	rc := cache.New(kv, cache.TTLs{
		Verification: time.Duration(cfg.Cache.VerificationTTLSeconds) * time.Second,
		Embedding:    time.Duration(cfg.Cache.EmbeddingTTLSeconds) * time.Second,
		APIKey:       time.Duration(cfg.Cache.APIKeyTTLSeconds) * time.Second,
	})

	// Principal set with hot reload on config rewrite.
	principals := config.NewPrincipals(cfg)
	if stop, err := principals.Watch(configPath); err != nil {
		log.Warnf("API key hot reload disabled: %v", err)
	} else {
		defer stop()
	}

	gate := admission.NewController(principals, rc, sharedCounters, cfg.Limits)

	// Persistence and the similarity searcher. Postgres serves both; SQLite
	// persists analytics but cannot search, so retrieval requires Postgres.
	var store persistence.Store
	var searcher retrieval.Searcher
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := persistence.NewPostgresStore(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		store = pg
		searcher = retrieval.NewPostgresSearcher(pg.Pool())
	case "sqlite":
		sq, err := persistence.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			return err
		}
		store = sq
		if cfg.Database.DSN != "" {
			pg, err := persistence.NewPostgresStore(ctx, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer pg.Close()
			searcher = retrieval.NewPostgresSearcher(pg.Pool())
		} else {
			return fmt.Errorf("similarity search requires database.dsn pointing at the pgvector index")
		}
	}
	defer store.Close()

	var embedder retrieval.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		embedder = retrieval.NewOpenAIEmbedder(cfg.Embedding.OpenAIAPIKey, cfg.Embedding.Model)
	default:
		embedder = retrieval.NewHTTPEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.StageTimeout())
	}
	retriever := retrieval.NewRetriever(embedder, searcher, rc, retry.Default,
		cfg.Pipeline.SearchLimit, cfg.Pipeline.SearchThreshold)

	opts := orchestrator.Options{
		Store:     store,
		Timeout:   cfg.PipelineTimeout(),
		ResultTTL: time.Duration(cfg.Cache.VerificationTTLSeconds) * time.Second,
	}
	if cfg.Fallback.Enabled {
		fb, err := fallback.New(cfg.Fallback.OpenAIAPIKey, cfg.Fallback.Model, cfg.Fallback.MaxPromptTokens)
		if err != nil {
			return err
		}
		opts.Fallback = fb
		opts.SimilarityFloor = cfg.Fallback.SimilarityFloor
		log.Infof("Fallback classifier enabled with model %s", cfg.Fallback.Model)
	}
	var snippets *content.Store
	if cfg.ContentStore.Endpoint != "" {
		cs, err := content.NewStore(cfg.ContentStore.Endpoint, cfg.ContentStore.AccessKey,
			cfg.ContentStore.SecretKey, cfg.ContentStore.Bucket, cfg.ContentStore.UseSSL)
		if err != nil {
			return err
		}
		snippets = cs
		opts.Snippets = cs
	}

	verifier := orchestrator.New(rc, retriever, classifier.New(cfg.Pipeline.MaxCitations), m, opts)

	agg := health.NewAggregator()
	agg.Register("database", true, store.Ping)
	agg.Register("search", true, retriever.Ping)
	agg.Register("embedding", true, embedder.Ping)
	agg.Register("cache", false, rc.Ping)
	agg.Register("counters", false, gate.Ping)
	if snippets != nil {
		agg.Register("content-store", false, snippets.Ping)
	}

	server := api.NewServer(api.Deps{
		Gate:       gate,
		Verifier:   verifier,
		Health:     agg,
		Metrics:    m,
		Cache:      rc,
		Store:      store,
		Production: cfg.IsProduction(),
		Debug:      cfg.Debug,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("ClaimGate listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Infof("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Shutdown complete")
	return nil
}
