package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"creative-forge/internal/brief"
	"creative-forge/internal/campaign"
	"creative-forge/internal/config"
	"creative-forge/internal/gemini"
	"creative-forge/internal/httpclient"
	"creative-forge/internal/notify"
	"creative-forge/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pipeline <brief.json|brief.yaml>")
		os.Exit(2)
	}
	briefPath := os.Args[1]

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// stdout carries the progress frame stream, logs go to stderr
	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	store := storage.New(storage.Options{
		Dir:    cfg.OutputDir,
		Logger: logger,
	})

	var notifier *notify.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = notify.New(notify.Options{
			Token:      cfg.TelegramToken,
			ChatID:     cfg.TelegramChatID,
			HTTPClient: httpClient,
			Logger:     logger,
			Debug:      cfg.Debug,
			PathRoot:   filepath.Dir(cfg.OutputDir),
		})
		if err != nil {
			logger.Warn("telegram notifier unavailable, continuing without it", "err", err)
			notifier = nil
		}
	}

	b, err := brief.Load(briefPath)
	if err != nil {
		logger.Error("load brief failed", "path", briefPath, "err", err)
		os.Exit(1)
	}

	events := make(chan campaign.Event, 64)

	orch, err := campaign.New(campaign.Options{
		Generator:   gem,
		Store:       store,
		AssetDir:    cfg.AssetDir,
		UnitDelay:   cfg.UnitDelay,
		UnitTimeout: cfg.UnitTimeout,
		Events:      events,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("orchestrator init failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		enc := json.NewEncoder(os.Stdout)
		for ev := range events {
			if err := enc.Encode(ev); err != nil {
				logger.Warn("write progress frame failed", "err", err)
			}
			notifier.Observe(ev)
		}
	}()

	logger.Info("pipeline started", "brief", briefPath, "output_dir", cfg.OutputDir)

	state, runErr := orch.Run(ctx, b)
	close(events)
	wg.Wait()
	// deliver queued notifications before the process exits
	notifier.Close()

	if runErr != nil {
		logger.Error("campaign failed", "campaign_id", state.CampaignID, "err", runErr)
		os.Exit(1)
	}

	// failed units are reported in the summary documents; only a
	// run-fatal error makes the process exit nonzero
	logger.Info("campaign finished",
		"campaign_id", state.CampaignID,
		"succeeded", state.Succeeded,
		"failed", state.Failed,
	)
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
