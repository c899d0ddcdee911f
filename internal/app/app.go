// Package app assembles the application: configuration, tracing,
// database, Genkit, and the support engine with all its collaborators.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolvd/resolvd/db"
	"github.com/resolvd/resolvd/internal/answer"
	"github.com/resolvd/resolvd/internal/config"
	"github.com/resolvd/resolvd/internal/contextpack"
	"github.com/resolvd/resolvd/internal/database"
	"github.com/resolvd/resolvd/internal/engine"
	"github.com/resolvd/resolvd/internal/faq"
	"github.com/resolvd/resolvd/internal/history"
	"github.com/resolvd/resolvd/internal/llm"
	"github.com/resolvd/resolvd/internal/log"
	"github.com/resolvd/resolvd/internal/observability"
	"github.com/resolvd/resolvd/internal/retrieval"
	"github.com/resolvd/resolvd/internal/ticket"
)

// App is the assembled application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool
	Engine *engine.Engine

	FAQ           *faq.Store
	Conversations *history.Store
	Tickets       *ticket.Store

	otelShutdown func(context.Context) error
}

// New builds the application. The returned cleanup function closes the
// connection pool and flushes pending trace spans; it is safe to call
// exactly once.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var otelShutdown func(context.Context) error
	if cfg.Agent.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			AgentHost:   cfg.Agent.Host,
			Environment: cfg.Agent.Environment,
			ServiceName: cfg.Agent.ServiceName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("setting up tracing: %w", err)
		}
		otelShutdown = shutdown
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, err
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	eng, stores, err := buildEngine(g, pool, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	app := &App{
		Config:        cfg,
		Logger:        logger,
		Genkit:        g,
		Pool:          pool,
		Engine:        eng,
		FAQ:           stores.faq,
		Conversations: stores.conversations,
		Tickets:       stores.tickets,
		otelShutdown:  otelShutdown,
	}

	cleanup := func() {
		pool.Close()
		if otelShutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shut down tracer provider", "error", err)
			}
		}
	}
	return app, cleanup, nil
}

type appStores struct {
	faq           *faq.Store
	conversations *history.Store
	tickets       *ticket.Store
}

// buildEngine wires the pipeline components onto shared infrastructure.
func buildEngine(g *genkit.Genkit, pool *pgxpool.Pool, cfg *config.Config, logger log.Logger) (*engine.Engine, appStores, error) {
	faqStore, err := faq.NewStore(pool, logger)
	if err != nil {
		return nil, appStores{}, err
	}
	convStore, err := history.NewStore(pool, logger)
	if err != nil {
		return nil, appStores{}, err
	}
	ticketStore, err := ticket.NewStore(pool, logger)
	if err != nil {
		return nil, appStores{}, err
	}

	embedder, err := retrieval.NewEmbedder(
		googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel),
		cfg.EmbeddingDimension,
		logger,
	)
	if err != nil {
		return nil, appStores{}, err
	}

	retriever, err := retrieval.NewRetriever(embedder, faqStore, retrieval.Params{
		TopK:             cfg.Retrieval.TopK,
		MinSimilarity:    cfg.Retrieval.MinSimilarity,
		StrongSimilarity: cfg.Retrieval.StrongSimilarity,
		AcceptMargin:     cfg.Retrieval.AcceptMargin,
	}, logger)
	if err != nil {
		return nil, appStores{}, err
	}

	generator, err := llm.NewClient(llm.Config{
		Genkit:      g,
		ModelName:   cfg.FullModelName(),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Logger:      logger,
	})
	if err != nil {
		return nil, appStores{}, err
	}

	packer, err := contextpack.NewPacker(generator, logger)
	if err != nil {
		return nil, appStores{}, err
	}
	composer, err := answer.NewComposer(generator, logger)
	if err != nil {
		return nil, appStores{}, err
	}
	synthesizer, err := ticket.NewSynthesizer(generator, packer, cfg.Context.Budget(), logger)
	if err != nil {
		return nil, appStores{}, err
	}

	eng, err := engine.New(engine.Config{
		Retriever:       retriever,
		Composer:        composer,
		Packer:          packer,
		Synthesizer:     synthesizer,
		Conversations:   convStore,
		Tickets:         ticketStore,
		TokenBudget:     cfg.Context.Budget(),
		MaxHistoryTurns: cfg.Context.MaxHistoryTurns,
		Logger:          logger,
	})
	if err != nil {
		return nil, appStores{}, err
	}
	return eng, appStores{faq: faqStore, conversations: convStore, tickets: ticketStore}, nil
}
