package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/arturoeanton/go-kb-answers/internal/adapter/ai"
	"github.com/arturoeanton/go-kb-answers/internal/adapter/loader"
	"github.com/arturoeanton/go-kb-answers/internal/adapter/store"
	"github.com/arturoeanton/go-kb-answers/internal/handler"
	"github.com/arturoeanton/go-kb-answers/internal/mcp"
	"github.com/arturoeanton/go-kb-answers/internal/middleware"
	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/arturoeanton/go-kb-answers/internal/service"
	"github.com/arturoeanton/go-kb-answers/internal/stream"
	"github.com/arturoeanton/go-kb-answers/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/textsplitter"
)

type aiProvider interface {
	port.Embedder
	port.Completer
}

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	slog.Info("🚀 Starting KB Answers",
		"port", cfg.Port,
		"ai_provider", cfg.AIProvider,
		"vector_backend", cfg.VectorBackend,
		"database", cfg.DSN(),
		"mcp_enabled", cfg.MCPEnabled,
	)

	// ── Database (optional for chromem) ──────────────────────────────────
	var pgStore *store.PostgresStore
	if cfg.DatabaseURL != "" {
		var err error
		pgStore, err = store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = pgStore.EnsureSchema(ctx, cfg.EmbeddingDimension)
		cancel()
		if err != nil {
			slog.Error("failed to prepare database schema", "error", err)
			os.Exit(1)
		}
	}

	vectorStore, err := newVectorStore(cfg, pgStore)
	if err != nil {
		slog.Error("failed to open vector store", "error", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	provider, err := newAIProvider(cfg)
	if err != nil {
		slog.Error("failed to create AI provider", "error", err)
		os.Exit(1)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
	)
	router := stream.NewRouter(cfg.StreamBuffer, cfg.StreamRetention, logger.With("component", "stream"))

	// ── Services ─────────────────────────────────────────────────────────
	answerService := service.NewAnswerService(provider, provider, vectorStore, router, service.AnswerConfig{
		MinTrustScore:      cfg.MinTrustScore,
		ReformulationModel: cfg.ReformulationModel,
		Tiers:              service.DefaultWisdomTiers(cfg.ModelMedium, cfg.ModelHigh, cfg.ModelVeryHigh),
	}, logger.With("component", "answer"))
	knowledgeService := service.NewKnowledgeService(loader.New(), splitter, provider, vectorStore, logger.With("component", "knowledge"))

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:     cfg.AppName,
		ReadTimeout: 30 * time.Second,
		BodyLimit:   cfg.MaxUploadMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.ClientIDHeader},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))

	// Audit trail needs Postgres
	if pgStore != nil {
		app.Use(middleware.AuditMiddleware(pgStore))
	}

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	handler.NewHealthHandler(cfg.AppName, cfg.VectorBackend, router.Active).Register(api)
	handler.NewAnswerHandler(answerService).Register(api)
	handler.NewStreamHandler(router, 0).Register(api)
	handler.NewKnowledgeHandler(knowledgeService).Register(api)
	if pgStore != nil {
		handler.NewAuditHandler(pgStore).Register(api)
	}

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		var audit mcp.AuditWriter
		if pgStore != nil {
			audit = pgStore
		}
		mcpServer := mcp.NewServer(answerService, knowledgeService, audit, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newVectorStore(cfg *config.Config, pgStore *store.PostgresStore) (port.VectorStore, error) {
	switch cfg.VectorBackend {
	case config.BackendPgVector:
		if pgStore == nil {
			return nil, fmt.Errorf("%s backend requires DATABASE_URL", config.BackendPgVector)
		}
		return store.NewVectorStore(pgStore, cfg.EmbeddingDimension), nil
	case config.BackendChromem:
		s, err := store.NewChromemStore(cfg.ChromemPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
}

func newAIProvider(cfg *config.Config) (aiProvider, error) {
	switch cfg.AIProvider {
	case config.ProviderOllama:
		return ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.OllamaEmbedModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   cfg.ModelMedium,
				Token:   cfg.OllamaChatToken,
			},
		), nil
	case config.ProviderOpenAI:
		p, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			EmbedModel: cfg.OpenAIEmbedModel,
			ChatModel:  cfg.ModelMedium,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
}
