package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/builder"
	"github.com/nick-gallo-ethico/caseindex/internal/config"
	dbRedis "github.com/nick-gallo-ethico/caseindex/internal/db/redis"
	"github.com/nick-gallo-ethico/caseindex/internal/events"
	logpkg "github.com/nick-gallo-ethico/caseindex/internal/logger"
	"github.com/nick-gallo-ethico/caseindex/internal/metrics"
	"github.com/nick-gallo-ethico/caseindex/internal/queue"
	"github.com/nick-gallo-ethico/caseindex/internal/relstore"
	indexrepo "github.com/nick-gallo-ethico/caseindex/internal/repository/index"
	searchrepo "github.com/nick-gallo-ethico/caseindex/internal/repository/search"
	chiTransport "github.com/nick-gallo-ethico/caseindex/internal/transport/chi"
	indexinguc "github.com/nick-gallo-ethico/caseindex/internal/usecase/indexing"
	patternuc "github.com/nick-gallo-ethico/caseindex/internal/usecase/pattern"
	"github.com/nick-gallo-ethico/caseindex/internal/version"
	"github.com/nick-gallo-ethico/caseindex/internal/worker"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting caseindex service",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Relational read side: postgres when a DSN is configured, in-memory
	// otherwise (local runs).
	var rel relstore.Store
	if cfg.Postgres.DSN != "" {
		pool, err := relstore.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Fatal("Failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		rel = relstore.NewPostgres(pool)
		logger.Info("Connected to relational store")
	} else {
		rel = relstore.NewMemory()
		logger.Warn("No postgres DSN configured, using in-memory relational store")
	}

	// Queue transport
	var q queue.Queue
	switch cfg.Indexing.QueueTransport {
	case "memory":
		q = queue.NewMemory(cfg.Indexing.MemoryQueueDepth)
	default:
		q, err = queue.NewStream(ctx, store, cfg.Indexing.Stream, cfg.Indexing.Group,
			time.Duration(cfg.Indexing.BlockSec)*time.Second, logger)
		if err != nil {
			logger.Fatal("Failed to create job stream", zap.Error(err))
		}
	}
	defer func() { _ = q.Close() }()

	// Repositories
	prov := indexrepo.NewProvisioner(store)
	docs := indexrepo.NewDocuments(store)
	queryRepo := searchrepo.NewRepository(store, searchrepo.Limits{
		DefaultPageSize: cfg.Query.DefaultPageSize,
		MaxPageSize:     cfg.Query.MaxPageSize,
	})

	// Use case services
	indexingSvc := indexinguc.New(q, rel, prov, logger)
	patternSvc := patternuc.New(queryRepo, rel, logger)
	trigger := events.NewTrigger(indexingSvc, logger)

	// Worker pool
	docBuilder := builder.New(rel, logger)
	pool := worker.NewPool(q, docBuilder, docs, prov, worker.Options{
		Workers:         cfg.Indexing.Workers,
		BatchSize:       cfg.Indexing.BatchSize,
		MaxAttempts:     cfg.Indexing.MaxAttempts,
		BackoffBase:     time.Duration(cfg.Indexing.BackoffBaseMs) * time.Millisecond,
		BackoffCap:      time.Duration(cfg.Indexing.BackoffCapSec) * time.Second,
		StalenessTarget: time.Duration(cfg.Indexing.StalenessTargetSec) * time.Second,
	}, logger)

	poolCtx, poolCancel := context.WithCancel(ctx)
	poolDone := make(chan error, 1)
	go func() { poolDone <- pool.Run(poolCtx) }()
	logger.Info("Worker pool started", zap.Int("workers", cfg.Indexing.Workers))

	server := chiTransport.NewServer(patternSvc, indexingSvc, trigger, store, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	poolCancel()
	if err := <-poolDone; err != nil {
		logger.Error("Worker pool error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
