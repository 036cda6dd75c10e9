package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase/retrieval"

	"github.com/google/uuid"
)

// ResolveContextInput defines the input parameters for ResolveContext.
type ResolveContextInput struct {
	Query             string
	IncludeSuperseded bool
}

// ResolveContextOutput carries the resolved context chunks. Contexts is
// empty, never an error, when nothing in the corpus matches the query.
type ResolveContextOutput struct {
	RetrievalID string
	Contexts    []retrieval.ContextItem
}

// ResolveContextUsecase retrieves candidate chunks and resolves conflicting
// policy revisions down to the authoritative context.
type ResolveContextUsecase interface {
	Execute(ctx context.Context, input ResolveContextInput) (*ResolveContextOutput, error)
}

type resolveContextUsecase struct {
	chunkRepo domain.PolicyChunkRepository
	encoder   domain.VectorEncoder
	keyer     domain.TopicKeyer
	config    RetrievalConfig
	logger    *slog.Logger
}

// NewResolveContextUsecase creates a new ResolveContextUsecase.
func NewResolveContextUsecase(
	chunkRepo domain.PolicyChunkRepository,
	encoder domain.VectorEncoder,
	keyer domain.TopicKeyer,
	config RetrievalConfig,
	logger *slog.Logger,
) ResolveContextUsecase {
	return &resolveContextUsecase{
		chunkRepo: chunkRepo,
		encoder:   encoder,
		keyer:     keyer,
		config:    config,
		logger:    logger,
	}
}

func (u *resolveContextUsecase) Execute(ctx context.Context, input ResolveContextInput) (*ResolveContextOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	sc := &retrieval.StageContext{
		RetrievalID:       uuid.NewString(),
		Query:             input.Query,
		IncludeSuperseded: input.IncludeSuperseded,
		SearchLimit:       u.config.SearchLimit,
		TopK:              u.config.TopK,
	}

	// Stage 1: embed the query.
	embeddings, err := u.encoder.Encode(ctx, []string{input.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}
	sc.QueryEmbedding = embeddings[0]

	// Stage 2: vector search over current document versions.
	sc.Candidates, err = u.chunkRepo.Search(ctx, sc.QueryEmbedding, sc.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	if len(sc.Candidates) == 0 {
		u.logger.Info("retrieval_empty",
			slog.String("retrieval_id", sc.RetrievalID))
		return &ResolveContextOutput{RetrievalID: sc.RetrievalID}, nil
	}

	// Stages 3-5: group by topic, resolve conflicts, rank by similarity.
	retrieval.Group(sc, u.keyer, u.logger)
	retrieval.Resolve(sc, u.logger)
	contexts := retrieval.Rank(sc, u.logger)

	return &ResolveContextOutput{
		RetrievalID: sc.RetrievalID,
		Contexts:    contexts,
	}, nil
}
