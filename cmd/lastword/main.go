package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrei-git-tower/last-word/internal/api"
	"github.com/andrei-git-tower/last-word/internal/config"
	"github.com/andrei-git-tower/last-word/internal/engine"
	"github.com/andrei-git-tower/last-word/internal/events"
	"github.com/andrei-git-tower/last-word/internal/notify"
	"github.com/andrei-git-tower/last-word/internal/provider"
	"github.com/andrei-git-tower/last-word/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("lastword starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Providers
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	primary := provider.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel)

	router := provider.NewRouter(primary, nil, slog.Default())
	if cfg.OpenAIAPIKey != "" {
		secondary := provider.NewOpenAI(cfg.OpenAIAPIKey, cfg.FallbackModel)
		router = provider.NewRouter(primary, secondary, slog.Default())
		slog.Info("fallback provider ready", "model", cfg.FallbackModel)
	} else {
		slog.Warn("no fallback provider configured — transient primary failures will surface")
	}
	slog.Info("provider client ready", "model", cfg.AnthropicModel)

	// Events (optional — the engine works without a bus, just no live dashboard)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("events not configured — running without lifecycle publishing")
	}

	// Notifications
	dispatcher := notify.NewDispatcher(db, time.Duration(cfg.NotifyTimeoutSec)*time.Second, slog.Default())

	// Engine — the main pipeline
	eng := engine.New(db, router, dispatcher, publisher, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, eng, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("lastword ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	eng.Wait() // drain detached persistence and dispatch
	slog.Info("lastword stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
