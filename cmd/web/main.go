package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"creative-forge/internal/brief"
	"creative-forge/internal/campaign"
	"creative-forge/internal/config"
	"creative-forge/internal/gemini"
	"creative-forge/internal/httpclient"
	"creative-forge/internal/notify"
	"creative-forge/internal/prompt"
	"creative-forge/internal/runs"
	"creative-forge/internal/storage"
)

const maxBriefBytes = 1 << 20

type server struct {
	cfg      config.Config
	gem      *gemini.Client
	store    *storage.Store
	registry *runs.Registry
	notifier *notify.Notifier
	logger   *slog.Logger
	mintID   func() string
}

type apiError struct {
	Error string `json:"error"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

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

	s := &server{
		cfg:      cfg,
		gem:      gem,
		store:    store,
		registry: runs.NewRegistry(runs.Options{}),
		notifier: notifier,
		logger:   logger,
		mintID:   campaign.NewCampaignID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/campaigns", s.handleCreateCampaign)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRuns)
	mux.HandleFunc("/api/catalog", s.handleCatalog)
	mux.HandleFunc("/healthz", s.handleHealth)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           withLogging(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// campaign streams outlive any fixed write deadline
		WriteTimeout: 0,
		IdleTimeout:  90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("web started", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	notifier.Close()
}

// handleCreateCampaign runs a campaign for the posted brief and streams
// progress frames back as NDJSON, one frame per line, ending with a
// complete or error frame.
func (s *server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBriefBytes)

	var b brief.Brief
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid brief json"})
		return
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	// claim the id before the run starts; a second driver for the same
	// campaign is refused here, not detected later
	id := s.mintID()
	if err := s.registry.Begin(id); err != nil {
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		return
	}

	events := make(chan campaign.Event, 64)
	orch, err := campaign.New(campaign.Options{
		Generator:   s.gem,
		Store:       s.store,
		CampaignID:  id,
		AssetDir:    s.cfg.AssetDir,
		UnitDelay:   s.cfg.UnitDelay,
		UnitTimeout: s.cfg.UnitTimeout,
		Events:      events,
		Logger:      s.logger,
	})
	if err != nil {
		s.registry.Conclude(id, campaign.RunState{CampaignID: id}, err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
		return
	}

	var (
		state  campaign.RunState
		runErr error
	)
	// closing the request aborts the run at the next unit boundary
	go func() {
		defer close(events)
		state, runErr = orch.Run(r.Context(), b)
		if runErr != nil {
			s.logger.Error("campaign run failed", "campaign_id", id, "err", runErr)
		}
	}()

	w.Header().Set("content-type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("cache-control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for ev := range events {
		s.registry.Observe(ev)
		s.notifier.Observe(ev)

		if err := enc.Encode(ev); err != nil {
			// client went away; keep draining so the registry and
			// notifier still see the rest of the run
			continue
		}
		if canFlush {
			flusher.Flush()
		}
	}

	// the channel close means Run has returned; record the outcome even
	// if the terminal frame was dropped along the way
	s.registry.Conclude(id, state, runErr)
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs"), "/")
	if id == "" {
		writeJSON(w, http.StatusOK, s.registry.List())
		return
	}

	run, ok := s.registry.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, prompt.Catalog())
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
