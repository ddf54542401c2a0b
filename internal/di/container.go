package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"agent-orchestrator/internal/adapter/httpapi"
	"agent-orchestrator/internal/adapter/memvec"
	"agent-orchestrator/internal/adapter/ollama"
	"agent-orchestrator/internal/adapter/openweather"
	"agent-orchestrator/internal/adapter/qdrant"
	"agent-orchestrator/internal/adapter/repository"
	"agent-orchestrator/internal/domain"
	"agent-orchestrator/internal/infra"
	"agent-orchestrator/internal/infra/config"
	"agent-orchestrator/internal/infra/httpclient"
	"agent-orchestrator/internal/usecase"
	"agent-orchestrator/internal/worker"
)

const weatherRequestsPerSecond = 1.0

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	VectorIndex domain.VectorIndex
	Registry    *usecase.SessionRegistry

	IndexUsecase usecase.IndexDocumentUsecase
	AgentUsecase usecase.AgentUsecase

	Handler  *httpapi.Handler
	JobQueue *worker.JobQueue
	Worker   *worker.IndexWorker

	pool *pgxpool.Pool
}

// NewApplicationComponents wires all dependencies from config. A Postgres
// pool is only opened when the pgvector backend is selected.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(60 * time.Second)
	generatorHTTP := httpclient.NewPooledClient(120 * time.Second)
	qdrantHTTP := httpclient.NewPooledClient(30 * time.Second)
	weatherHTTP := httpclient.NewPooledClient(10 * time.Second)

	// External clients
	embedder := ollama.NewEmbedder(cfg.Ollama.URL, cfg.Ollama.EmbeddingModel, embedderHTTP)
	generator := ollama.NewGenerator(cfg.Ollama.URL, cfg.Ollama.GenerationModel, generatorHTTP)
	weatherClient := openweather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, weatherHTTP, weatherRequestsPerSecond)

	// Vector index backend
	var (
		index domain.VectorIndex
		pool  *pgxpool.Pool
	)
	switch cfg.Agent.VectorBackend {
	case "memory":
		index = memvec.New()
	case "qdrant":
		index = qdrant.NewIndex(cfg.Qdrant.URL, qdrantHTTP, log)
	case "pgvector":
		var err error
		pool, err = infra.NewPostgresPool(ctx, cfg.DB.DSN(), cfg.DB.MaxConns, cfg.DB.MinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		index = repository.NewPgvectorIndex(pool)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.Agent.VectorBackend)
	}
	log.Info("vector backend selected", "backend", cfg.Agent.VectorBackend)

	// Domain services
	hasher := domain.NewSourceHashPolicy()
	chunker := domain.NewChunker(cfg.Agent.ChunkSize, cfg.Agent.ChunkOverlap)
	router := domain.NewRouter(cfg.Agent.WeatherSignals)
	registry := usecase.NewSessionRegistry()

	// Usecases
	indexUsecase := usecase.NewIndexDocumentUsecase(registry, hasher, chunker, embedder, index, log)
	retrieveUsecase := usecase.NewRetrieveContextUsecase(registry, embedder, index, cfg.Agent.TopK, log)
	promptBuilder := usecase.NewXMLPromptBuilder()
	synthesizeUsecase := usecase.NewSynthesizeAnswerUsecase(promptBuilder, generator, cfg.Agent.MaxTokens, log)
	agentUsecase := usecase.NewAgentUsecase(
		router, registry, retrieveUsecase, synthesizeUsecase, weatherClient, log,
		usecase.WithAnswerCache(cfg.Cache.Size),
	)

	// Async indexing
	jobQueue := worker.NewJobQueue()
	indexWorker := worker.NewIndexWorker(jobQueue, indexUsecase, log)

	handler := httpapi.NewHandler(agentUsecase, indexUsecase, jobQueue)

	return &ApplicationComponents{
		VectorIndex:  index,
		Registry:     registry,
		IndexUsecase: indexUsecase,
		AgentUsecase: agentUsecase,
		Handler:      handler,
		JobQueue:     jobQueue,
		Worker:       indexWorker,
		pool:         pool,
	}, nil
}

// Close releases backend resources.
func (c *ApplicationComponents) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
