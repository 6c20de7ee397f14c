package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/takkar/roomchat/internal/api"
	"github.com/takkar/roomchat/internal/config"
	"github.com/takkar/roomchat/internal/llm"
	"github.com/takkar/roomchat/internal/memory"
	"github.com/takkar/roomchat/internal/observability"
	"github.com/takkar/roomchat/internal/pipeline"
	"github.com/takkar/roomchat/internal/rooms"
	"github.com/takkar/roomchat/internal/storage"
	"github.com/takkar/roomchat/internal/token"
)

func runServer() error {
	fmt.Fprintf(os.Stderr, "roomchat version %s\n", version)

	// Optional .env file for local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open interaction log storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Open vector memory. Missing OpenAI credentials disable it rather than
	// failing startup; the chat still works, just without recall.
	memStore := memory.Disabled()
	if cfg.OpenAI.APIKey != "" {
		memStore, err = memory.Open(filepath.Join(cfg.Storage.DataDir, "memory"), embeddingFunc(cfg))
		if err != nil {
			slog.Warn("vector memory unavailable, continuing without recall", "error", err)
			memStore = memory.Disabled()
		}
	} else {
		slog.Warn("OPENAI_API_KEY not set, vector memory disabled")
	}

	generator := llm.New(llm.Options{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
	if !generator.Enabled() {
		slog.Warn("OPENAI_API_KEY not set, chat replies will report unavailability")
	}

	issuer := token.NewIssuer(cfg.Room.APIKey, cfg.Room.APISecret, cfg.Room.TokenTTL)
	if !issuer.Enabled() {
		slog.Warn("room credentials not set, token endpoint disabled")
	}

	metrics := observability.NewMetrics("roomchat", prometheus.DefaultRegisterer)
	registry := rooms.NewRegistry()

	writer := pipeline.NewWriter(memStore, store, metrics)
	responder := pipeline.NewResponder(memStore, generator, writer, metrics, cfg.Retrieval.TopK)

	handler := api.NewHandler(api.Deps{
		Responder: responder,
		Tokens:    issuer,
		Rooms:     registry,
		Log:       store,
		Memory:    memStore,
		AIEnabled: generator.Enabled(),
		ServerURL: cfg.Room.ServerURL,
		Metrics:   metrics,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("roomchat listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// embeddingFunc picks the OpenAI embedding backend, honoring a base URL
// override for self-hosted compatible endpoints.
func embeddingFunc(cfg config.Config) chromem.EmbeddingFunc {
	if cfg.OpenAI.BaseURL != "" {
		normalized := true
		return chromem.NewEmbeddingFuncOpenAICompat(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.EmbedModel, &normalized)
	}
	return chromem.NewEmbeddingFuncOpenAI(cfg.OpenAI.APIKey, chromem.EmbeddingModelOpenAI(cfg.OpenAI.EmbedModel))
}
