// Package app wires configuration, storage and clients into the running
// application.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airi-ai/airi/internal/chat"
	"github.com/airi-ai/airi/internal/command"
	"github.com/airi-ai/airi/internal/config"
	"github.com/airi-ai/airi/internal/embedding"
	"github.com/airi-ai/airi/internal/llm"
	"github.com/airi-ai/airi/internal/log"
	"github.com/airi-ai/airi/internal/memory"
	"github.com/airi-ai/airi/internal/profile"
	"github.com/airi-ai/airi/internal/session"
	"github.com/airi-ai/airi/internal/websearch"
)

// App holds the assembled application graph.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Sessions *session.Store
	Profiles *profile.Store
	Memories *memory.Store
	LLM      *llm.Client
	Web      *websearch.Client
	Registry *command.Registry
	Chat     *chat.Orchestrator
}

// Setup builds the full application from configuration. The caller owns the
// returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	sessions := session.New(session.NewPGQuerier(pool), cfg.InitialLoadSize, logger)
	profiles := profile.New(profile.NewPGQuerier(pool), logger)

	embedder, err := embedding.NewGenAI(ctx, cfg.EmbedderAPIKey, cfg.EmbedderModel)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	memories, err := memory.New(memory.NewPGQuerier(pool), embedder, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating memory store: %w", err)
	}

	llmClient := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.Model, logger)
	web := websearch.New(cfg.SearXNGBaseURL, logger)

	help := command.NewHelp()
	registry := command.NewRegistry(logger,
		command.NewRemember(memories),
		command.NewMemoryList(memories),
		command.NewForget(memories),
		help,
	)
	help.Bind(registry)

	orchestrator := chat.New(sessions, profiles, memories, llmClient, web, registry,
		chat.Config{
			HistoryDepth:   cfg.HistoryDepth,
			MemoryTopK:     cfg.MemoryTopK,
			ScoreThreshold: cfg.ScoreThreshold,
			CharBudget:     cfg.CharBudget,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
		}, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Sessions: sessions,
		Profiles: profiles,
		Memories: memories,
		LLM:      llmClient,
		Web:      web,
		Registry: registry,
		Chat:     orchestrator,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
