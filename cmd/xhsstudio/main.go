// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the studio API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xhsstudio/internal/ai"
	"xhsstudio/internal/auth"
	"xhsstudio/internal/cache"
	"xhsstudio/internal/config"
	"xhsstudio/internal/database"
	"xhsstudio/internal/export"
	"xhsstudio/internal/handlers"
	"xhsstudio/internal/raster"
	"xhsstudio/internal/render"
	"xhsstudio/internal/router"
	"xhsstudio/internal/storage"
	"xhsstudio/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON otherwise.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey, which parks packaged archives until download.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()
	archives := cache.NewArchiveCache(valkeyClient, cfg.ArchiveTTL)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	configStore := store.NewAppConfigStore(db)
	keyStore := store.NewAPIKeyStore(db)
	generationStore := store.NewGenerationStore(db)
	exportStore := store.NewExportStore(db)

	// Connect to S3-compatible object storage (optional; without it archives
	// are only served through the one-shot download).
	var storageClient *storage.Client
	if cfg.S3Enabled() {
		storageClient, err = storage.New(storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			URLExpiry: cfg.S3URLExpiry,
		})
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		slog.Warn("s3 storage not configured, archive publishing disabled")
	}

	// Provider registry; credentials are resolved per request.
	registry := ai.NewRegistry(cfg.Workflow())
	slog.Info("ai providers initialized",
		"text_model", cfg.TextModel,
		"image_model", cfg.ImageModel,
		"gemini_key", cfg.GeminiKey != "",
		"deepseek_key", cfg.DeepSeekKey != "",
		"dify_key", cfg.DifyKey != "",
	)

	// Slide export pipeline: stage, rasterize with a fallback, package.
	stager, err := render.NewStager()
	if err != nil {
		slog.Error("failed to initialize slide stager", "error", err)
		os.Exit(1)
	}
	primary := raster.NewRod(raster.RodConfig{
		RemoteURL: cfg.ChromeURL,
		Settle:    cfg.RasterSettle,
		Logger:    logger,
	})
	defer primary.Close()
	fallback := raster.NewChromedp(raster.ChromedpConfig{
		RemoteURL: cfg.ChromeURL,
		Scale:     cfg.RasterFallbackScale,
		Settle:    cfg.RasterSettle,
		Logger:    logger,
	})
	defer fallback.Close()
	exporter := export.NewExporter(stager, raster.New(primary, fallback, logger), logger)

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiration)

	// Create handler groups with their dependencies.
	exportHandlers := handlers.NewExport(exporter, archives)
	if storageClient != nil {
		exportHandlers.WithPublisher(storageClient, exportStore)
	}
	h := router.Handlers{
		Auth:        handlers.NewAuth(userStore, tokens),
		Settings:    handlers.NewSettings(configStore, keyStore, cfg.TextModel, cfg.ImageModel),
		Generations: handlers.NewGenerations(generationStore),
		Generate:    handlers.NewGenerate(registry, cfg, configStore, keyStore),
		Export:      exportHandlers,
	}

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Options{
		CORSOrigins:       cfg.CORSOrigins,
		Tokens:            tokens,
		AuthRateLimit:     cfg.AuthRateLimit,
		GenerateRateLimit: cfg.GenerateRateLimit,
	}, h)
	defer r.Stop()

	// WriteTimeout must cover a workflow run that polls for minutes and a
	// full deck export through the browser.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WorkflowPollInterval*time.Duration(cfg.WorkflowMaxPolls) + 2*time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("server failed", "error", err)
		return
	}

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return
	}

	slog.Info("server stopped gracefully")
}
