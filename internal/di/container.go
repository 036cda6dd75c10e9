package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"policy-rag/internal/adapter/corpus"
	"policy-rag/internal/adapter/ollama"
	"policy-rag/internal/adapter/repository"
	"policy-rag/internal/domain"
	"policy-rag/internal/infra/config"
	"policy-rag/internal/infra/httpclient"
	"policy-rag/internal/usecase"
	"policy-rag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	ChunkRepo domain.PolicyChunkRepository
	DocRepo   domain.PolicyDocumentRepository
	JobRepo   domain.PolicyJobRepository

	// Usecases
	IngestUsecase  usecase.IngestDocumentUsecase
	CorpusUsecase  usecase.IngestCorpusUsecase
	ResolveUsecase usecase.ResolveContextUsecase
	AnswerUsecase  usecase.AnswerPolicyUsecase

	// Worker and corpus watcher
	Worker  *worker.JobWorker
	Source  *corpus.FSSource
	Watcher *corpus.Watcher
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	// Repositories
	chunkRepo := repository.NewPolicyChunkRepository(pool)
	docRepo := repository.NewPolicyDocumentRepository(pool)
	jobRepo := repository.NewPolicyJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(30 * time.Second)
	generatorHTTP := httpclient.NewPooledClient(120 * time.Second)

	// Ollama clients
	embedder := ollama.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, embedderHTTP)
	generator := ollama.NewGenerator(cfg.OllamaURL, cfg.GeneratorModel, generatorHTTP)

	// Domain services
	hasher := domain.NewSourceHashPolicy()
	chunker := domain.NewChunker()
	dateExtractor := domain.NewDateExtractor()
	classifier := domain.NewNoiseClassifier()
	keyer := domain.NewFilenameTopicKeyer()

	// Corpus source
	source, err := corpus.NewFSSource(cfg.CorpusDir, log)
	if err != nil {
		return nil, fmt.Errorf("open corpus dir: %w", err)
	}

	// Ingestion usecases
	ingestUsecase := usecase.NewIngestDocumentUsecase(
		docRepo, chunkRepo, txManager, hasher, chunker, embedder,
		dateExtractor, classifier, log,
	)
	limiter := rate.NewLimiter(rate.Limit(cfg.IngestRatePerSec), cfg.IngestRatePerSec)
	corpusUsecase := usecase.NewIngestCorpusUsecase(source, ingestUsecase, limiter, cfg.IngestConcurrency, log)

	// Retrieval config
	retrievalConfig := usecase.RetrievalConfig{
		SearchLimit: cfg.SearchLimit,
		TopK:        cfg.AnswerTopK,
	}
	if err := retrievalConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retrieval config: %w", err)
	}

	resolveUsecase := usecase.NewResolveContextUsecase(chunkRepo, embedder, keyer, retrievalConfig, log)

	promptBuilder := usecase.NewXMLPromptBuilder("Answer in plain English.")
	answerUsecase := usecase.NewAnswerPolicyUsecase(
		resolveUsecase, promptBuilder, generator, usecase.NewOutputValidator(),
		cfg.AnswerCacheSize, cfg.AnswerCacheTTL,
		cfg.AnswerMaxTokens, cfg.PromptVersion, log,
	)

	// Worker and watcher
	jobWorker := worker.NewJobWorker(jobRepo, source, ingestUsecase, corpusUsecase, cfg.WorkerPollEvery, log)
	watcher := corpus.NewWatcher(source, jobRepo, log)

	return &ApplicationComponents{
		ChunkRepo:      chunkRepo,
		DocRepo:        docRepo,
		JobRepo:        jobRepo,
		IngestUsecase:  ingestUsecase,
		CorpusUsecase:  corpusUsecase,
		ResolveUsecase: resolveUsecase,
		AnswerUsecase:  answerUsecase,
		Worker:         jobWorker,
		Source:         source,
		Watcher:        watcher,
	}, nil
}
