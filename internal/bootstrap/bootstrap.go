// Package bootstrap assembles the application graph once, at startup.
// Every client is constructed here and passed down explicitly; nothing
// lazily initializes shared state at call time.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/hybrid-retriever/internal/config"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
	"github.com/kirillkom/hybrid-retriever/internal/core/usecase"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/chunking"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/extractor"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/extractor/pdfdoc"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/extractor/xlsxdoc"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/resilience"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/hybrid-retriever/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	Retrieval ports.RetrievalService
	Answer    ports.AnswerService
	Ingestor  ports.DocumentIngestor
	Processor ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	chunkRepo := postgres.NewChunkRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	ingestExecutor := resilience.NewExecutor(resilience.IngestConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: ingestExecutor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	searchExecutor := resilience.NewExecutor(resilience.InteractiveConfig())
	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: searchExecutor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	structured := ollama.NewStructuredClient(ollamaClient)

	vectorDB := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		ResilienceExecutor: searchExecutor,
	})
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	docExtractor := extractor.NewComposite(plaintext.NewExtractor(storage)).
		RegisterMime("application/pdf", pdfdoc.NewExtractor(storage)).
		RegisterExtension(".pdf", pdfdoc.NewExtractor(storage)).
		RegisterMime("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsxdoc.NewExtractor(storage)).
		RegisterExtension(".xlsx", xlsxdoc.NewExtractor(storage))

	planner := usecase.NewLLMIntentPlanner(structured)
	expander := usecase.NewLLMQueryExpander(structured)
	evaluator := usecase.NewLLMQualityEvaluator(structured)
	reranker := usecase.NewRelevanceReranker(structured, cfg.RetrievalRerankCap)

	retrieval := usecase.NewRetrievalOrchestrator(
		embedder,
		vectorDB,
		chunkRepo,
		planner,
		expander,
		evaluator,
		reranker,
		retrievalOptions(cfg),
	)

	answer := usecase.NewAnswerUseCase(retrieval, generator)
	ingestor := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processor := usecase.NewProcessDocumentUseCase(repo, docExtractor, chunker, embedder, vectorDB, chunkRepo)

	return &App{
		Config: cfg,

		Queue: queue,
		Repo:  repo,

		Retrieval: retrieval,
		Answer:    answer,
		Ingestor:  ingestor,
		Processor: processor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func retrievalOptions(cfg config.Config) usecase.RetrievalOptions {
	return usecase.RetrievalOptions{
		Policy:           usecase.RetryPolicy(cfg.RetrievalPolicy),
		MaxAttempts:      cfg.RetrievalMaxAttempts,
		CandidateLimit:   cfg.RetrievalCandidateLimit,
		FusionRRFK:       cfg.RetrievalFusionRRFK,
		RerankEnabled:    cfg.RetrievalEnableReranker,
		QualityThreshold: cfg.RetrievalQualityThreshold,
		PlanTimeout:      time.Duration(cfg.RetrievalPlanTimeoutSeconds) * time.Second,
		SearchTimeout:    time.Duration(cfg.RetrievalSearchTimeoutSeconds) * time.Second,
		RerankTimeout:    time.Duration(cfg.RetrievalRerankTimeoutSeconds) * time.Second,
		ExpandTimeout:    time.Duration(cfg.RetrievalExpandTimeoutSeconds) * time.Second,
		EvaluateTimeout:  time.Duration(cfg.RetrievalEvaluateTimeoutSeconds) * time.Second,
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
