// Command edgarchat serves the SEC-filings question answering API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/edgarchat/edgarchat/internal/adapters/conversation"
	"github.com/edgarchat/edgarchat/internal/adapters/embedding"
	"github.com/edgarchat/edgarchat/internal/adapters/identity"
	"github.com/edgarchat/edgarchat/internal/adapters/llm"
	"github.com/edgarchat/edgarchat/internal/adapters/vectordb"
	"github.com/edgarchat/edgarchat/internal/config"
	"github.com/edgarchat/edgarchat/internal/domain/usecases"
	httpserver "github.com/edgarchat/edgarchat/internal/infrastructure/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "edgarchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	for _, warning := range cfg.Validate() {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := conversation.Migrate(cfg.Database.URL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	embedder, err := embedding.NewOpenAIAdapter(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("creating embedding adapter: %w", err)
	}

	completer, err := llm.NewOpenAIAdapter(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.CompletionModel, cfg.OpenAI.RequestsPerSecond)
	if err != nil {
		return fmt.Errorf("creating completion adapter: %w", err)
	}

	retriever, err := vectordb.NewQdrantAdapter(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("creating vector search adapter: %w", err)
	}
	defer retriever.Close()

	verifier, err := identity.NewGoTrueAdapter(cfg.Auth.BaseURL, cfg.Auth.AnonKey)
	if err != nil {
		return fmt.Errorf("creating identity verifier: %w", err)
	}

	store := conversation.NewPostgresStore(pool, logger)
	queryUC := usecases.NewQueryUseCase(embedder, retriever, completer, store, logger, 5)

	server := httpserver.NewServer(queryUC, store, verifier, logger)

	logger.Info("edgarchat ready",
		"addr", cfg.Server.Addr,
		"embedding_model", cfg.OpenAI.EmbeddingModel,
		"completion_model", cfg.OpenAI.CompletionModel,
		"qdrant_collection", cfg.Qdrant.Collection)

	return server.Run(ctx, cfg.Server.Addr)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
