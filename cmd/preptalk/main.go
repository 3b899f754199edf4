package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/preptalk/preptalk/internal/audio"
	"github.com/preptalk/preptalk/internal/config"
	"github.com/preptalk/preptalk/internal/gdrive"
	"github.com/preptalk/preptalk/internal/interview"
	"github.com/preptalk/preptalk/internal/llm"
	"github.com/preptalk/preptalk/internal/narrate"
	"github.com/preptalk/preptalk/internal/question"
	"github.com/preptalk/preptalk/internal/score"
	"github.com/preptalk/preptalk/internal/server"
	"github.com/preptalk/preptalk/internal/storage"
	"github.com/preptalk/preptalk/internal/summary"
	"github.com/preptalk/preptalk/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	slog.Info("preptalk: starting")

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		slog.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	files := audio.NewStore(cfg.AudioDir)
	hub := server.NewHub()

	deps := interview.Deps{
		Store:   store,
		Answers: files,
		Hub:     hub,
	}

	if client := llmClient(cfg, cfg.QuestionModel, "question"); client != nil {
		deps.Questions = question.NewSource(client, question.DedupScope(cfg.DedupScope))
	} else {
		slog.Warn("question model unavailable, using built-in question bank")
		deps.Questions = question.NewBank()
	}

	if client := llmClient(cfg, cfg.ScoringModel, "scoring"); client != nil {
		deps.Scorer = score.New(client)
	}
	if client := llmClient(cfg, cfg.SummaryModel, "summary"); client != nil {
		deps.Aggregator = summary.New(client)
	}

	if cfg.DeepgramAPIKey != "" {
		deps.Transcriber = transcribe.NewDeepgram(cfg.DeepgramAPIKey)
	}
	if cfg.OpenAIAPIKey != "" {
		deps.Narrator = narrate.NewOpenAI(cfg.OpenAIAPIKey, cfg.NarrationModel, cfg.NarrationVoice, files)
	}

	manager := interview.NewManager(deps, cfg.ParsedGatewayTimeout(), cfg.ParsedLockTimeout())

	handler := server.Handler(hub, manager, files, cfg.MaxUploadBytes())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	if cfg.GDriveFolderID != "" {
		syncer, syncErr := gdrive.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if syncErr != nil {
			slog.Warn("gdrive backup disabled", "error", syncErr)
		} else {
			go runBackupLoop(ctx, syncer, cfg.DBPath, cfg.AudioDir)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("preptalk: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}
}

func llmClient(cfg config.Config, model, purpose string) llm.Client {
	provider, modelName, err := llm.ParseModel(model)
	if err != nil {
		slog.Warn("invalid model reference", "purpose", purpose, "model", model, "error", err)
		return nil
	}

	key := cfg.APIKeyFor(provider)
	if key == "" {
		slog.Warn("no API key for provider", "purpose", purpose, "provider", provider)
		return nil
	}

	client, err := llm.NewClient(provider, key, modelName)
	if err != nil {
		slog.Warn("llm client init failed", "purpose", purpose, "error", err)
		return nil
	}
	return client
}

func runBackupLoop(ctx context.Context, syncer *gdrive.Syncer, dbPath, audioDir string) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := syncer.SyncFile(dbPath); err != nil {
				slog.Warn("gdrive db sync failed", "error", err)
			}
			if err := syncer.SyncDir(audioDir); err != nil {
				slog.Warn("gdrive audio sync failed", "error", err)
			}
		}
	}
}
