package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/taskpilot-dev/taskpilot/agent"
	"github.com/taskpilot-dev/taskpilot/api"
	"github.com/taskpilot-dev/taskpilot/config"
	"github.com/taskpilot-dev/taskpilot/embedding"
	"github.com/taskpilot-dev/taskpilot/llm"
	"github.com/taskpilot-dev/taskpilot/policy"
	"github.com/taskpilot-dev/taskpilot/retrieval"
	"github.com/taskpilot-dev/taskpilot/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	logger.Info("starting taskpilot",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"llm_base_url", cfg.LLMBaseURL,
		"agent_enabled", cfg.AgentEnabled)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llmClient := llm.NewChatClient(cfg.LLMMode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	retriever := newRetriever(cfg, logger)

	generator := agent.NewAnswerGenerator(llmClient, cfg.LLMModel)
	registry := agent.NewToolset(db, retriever, generator)
	classifier := agent.NewClassifier(llmClient, cfg.LLMModel, logger)
	planner := agent.NewPlanner(llmClient, cfg.LLMModel, logger)
	engine := agent.NewEngine(cfg, db, registry, policyEngine, classifier, planner, generator, logger)

	h := api.NewHandler(db, engine, cfg, logger)

	server := echo.New()
	server.HideBanner = true
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())
	h.RegisterRoutes(server)

	sweeper := store.NewRetentionSweeper(db, cfg.RetentionMaxAge, cfg.RetentionInterval, logger)
	go sweeper.Run(ctx)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down gracefully", "error", err)
	}

	logger.Info("stopped")
}

// newRetriever selects the document retriever. Qdrant when configured,
// otherwise the in-memory retriever, which reports no document store until
// chunks are added.
func newRetriever(cfg *config.Config, logger *slog.Logger) retrieval.Retriever {
	if cfg.QdrantURL == "" {
		logger.Info("QDRANT_URL not set, using in-memory retriever")
		return retrieval.NewMemoryRetriever()
	}

	var embedder embedding.Provider
	if cfg.OllamaURL != "" {
		embedder = embedding.NewOllamaProvider(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDims)
	} else {
		embedder = embedding.NewNoopProvider(cfg.EmbeddingDims)
	}

	retriever, err := retrieval.NewQdrantRetriever(retrieval.QdrantConfig{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
	}, embedder, logger)
	if err != nil {
		logger.Error("failed to connect to qdrant, falling back to in-memory retriever", "error", err)
		return retrieval.NewMemoryRetriever()
	}

	setupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := retriever.EnsureCollection(setupCtx); err != nil {
		logger.Error("failed to prepare qdrant collection, falling back to in-memory retriever", "error", err)
		return retrieval.NewMemoryRetriever()
	}
	return retriever
}

func newLogger(level string) *slog.Logger {
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
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
