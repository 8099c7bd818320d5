// Package bootstrap builds the object graph. Construction is fail-fast:
// a missing index artifact, a bad provider key or an unreachable vector
// store aborts startup instead of surfacing on the first query.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/config"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/ports"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/core/usecase"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/indexstore/localfs"
	minioStore "github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/indexstore/minio"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/llm/groq"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/llm/ollama"
	natsqueue "github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/queue/nats"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/rerank/crossencoder"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/repository/postgres"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/resilience"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/vector/memindex"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/infrastructure/vector/qdrant"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/observability/metrics"
)

const ServiceName = "onboarding-api"

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.ServerMetrics

	Answers ports.AnswerService
	Stats   ports.StatsService
	History ports.HistoryStore

	// Refresher is non-nil when NATS is configured and the index backend
	// supports in-process reload.
	Refresher *natsqueue.Refresher
	Reloader  ports.IndexReloader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	serverMetrics := metrics.NewServerMetrics(ServiceName)
	runner := resilience.NewRunner(resilience.DefaultPolicy())

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, runner)
	embedder := ollama.NewEmbedder(ollamaClient)

	generator, err := buildGenerator(cfg, ollamaClient, runner)
	if err != nil {
		return nil, err
	}

	index, reloader, err := buildIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	retriever, err := usecase.NewRetriever(ctx, embedder, index, cfg.OverfetchFactor)
	if err != nil {
		return nil, err
	}

	var reranker ports.Reranker
	if cfg.RerankURL != "" {
		reranker = crossencoder.New(cfg.RerankURL, cfg.RerankModel, runner)
	}

	assembler := usecase.NewAssembler(cfg.ContextTokenBudget, cfg.ContextTruncateChars)
	pipeline, err := usecase.NewPipeline(
		retriever,
		reranker,
		assembler,
		generator,
		usecase.PipelineTimeouts{
			// The retrieve stage embeds the query first, so its budget
			// covers both calls.
			Retrieve: cfg.EmbedTimeout + cfg.RetrieveTimeout,
			Rerank:   cfg.RerankTimeout,
			Generate: cfg.GenerateTimeout,
		},
		cfg.TopKDefault,
		logger,
	)
	if err != nil {
		return nil, err
	}

	stats := usecase.NewStatsUseCase(index, cfg.VectorStore, logger)
	serverMetrics.SetIndexDocuments(stats.IndexStats(ctx).NumDocuments)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: serverMetrics,
		Answers: pipeline,
		Stats:   stats,
	}

	var closers []func()

	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		history := postgres.NewHistoryRepository(db)
		if err := history.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure history schema: %w", err)
		}
		app.History = history
		closers = append(closers, func() { _ = db.Close() })
	}

	if reloader != nil {
		app.Reloader = &instrumentedReloader{
			inner:   reloader,
			stats:   stats,
			metrics: serverMetrics,
		}
		if cfg.NATSURL != "" {
			refresher, err := natsqueue.New(cfg.NATSURL, cfg.NATSRefreshSubject, logger, natsqueue.Options{})
			if err != nil {
				return nil, fmt.Errorf("init refresh subscriber: %w", err)
			}
			app.Refresher = refresher
			closers = append(closers, refresher.Close)
		}
	}

	app.closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildGenerator(cfg config.Config, ollamaClient *ollama.Client, runner *resilience.Runner) (ports.AnswerGenerator, error) {
	switch cfg.Provider {
	case "groq":
		client, err := groq.New(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel, runner)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "ollama":
		return ollama.NewGenerator(ollamaClient), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func buildIndex(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.VectorIndex, ports.IndexReloader, error) {
	switch cfg.VectorStore {
	case "memory":
		store, err := buildArtifactStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		index, err := memindex.New(ctx, store, cfg.IndexArtifactKey, cfg.IndexMetaKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return index, index, nil
	case "qdrant":
		// Qdrant picks up new points as the indexing job writes them; there
		// is no snapshot to reload.
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
}

func buildArtifactStore(ctx context.Context, cfg config.Config) (ports.ArtifactStore, error) {
	if cfg.UseRemoteStore {
		return minioStore.New(ctx, cfg.RemoteEndpoint, cfg.Bucket, cfg.ProjectID, cfg.CredentialsPath, cfg.RemoteUseSSL)
	}
	return localfs.New(cfg.IndexPath)
}

// instrumentedReloader records reload outcomes and keeps the index size
// gauge current after each successful swap.
type instrumentedReloader struct {
	inner   ports.IndexReloader
	stats   ports.StatsService
	metrics *metrics.ServerMetrics
}

func (r *instrumentedReloader) Reload(ctx context.Context) error {
	err := r.inner.Reload(ctx)
	r.metrics.RecordIndexReload(ServiceName, err)
	if err == nil {
		r.metrics.SetIndexDocuments(r.stats.IndexStats(ctx).NumDocuments)
	}
	return err
}
