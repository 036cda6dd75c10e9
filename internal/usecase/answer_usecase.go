package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase/retrieval"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// FallbackAnswer is the exact answer returned when no policy covers the
// question. Callers treat it as a successful response, not an error.
const FallbackAnswer = "no matching policy found"

// FallbackCategory classifies why a fallback was triggered, aiding
// observability.
type FallbackCategory string

const (
	FallbackRetrievalEmpty   FallbackCategory = "retrieval_empty"
	FallbackGenerationFailed FallbackCategory = "generation_failed"
	FallbackValidationFailed FallbackCategory = "validation_failed"
	FallbackLLMFallback      FallbackCategory = "llm_fallback"
)

// AnswerPolicyInput encapsulates the parameters that drive an answer request.
type AnswerPolicyInput struct {
	Query             string
	IncludeSuperseded bool
	MaxTokens         int
}

// AnswerPolicyOutput is the normalized answer response returned to API
// clients.
type AnswerPolicyOutput struct {
	Answer           string
	Citations        []Citation
	Contexts         []retrieval.ContextItem
	Fallback         bool
	Reason           string
	FallbackCategory FallbackCategory
	RetrievalID      string
	PromptVersion    string
	Cached           bool
}

// Citation connects a chunk-level citation to the metadata needed by callers.
type Citation struct {
	ChunkID       string
	ChunkText     string
	SourceFile    string
	EffectiveDate string
	Quote         string
	Label         string
}

// AnswerPolicyUsecase defines the contract for generating grounded policy
// answers.
type AnswerPolicyUsecase interface {
	Execute(ctx context.Context, input AnswerPolicyInput) (*AnswerPolicyOutput, error)
}

type answerPolicyUsecase struct {
	resolve       ResolveContextUsecase
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	validator     OutputValidator
	cache         *expirable.LRU[string, *AnswerPolicyOutput]
	maxTokens     int
	promptVersion string
	logger        *slog.Logger
}

// NewAnswerPolicyUsecase wires together the components needed to answer a
// policy question. cacheSize 0 disables the answer cache.
func NewAnswerPolicyUsecase(
	resolve ResolveContextUsecase,
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	validator OutputValidator,
	cacheSize int,
	cacheTTL time.Duration,
	maxTokens int,
	promptVersion string,
	logger *slog.Logger,
) AnswerPolicyUsecase {
	var cache *expirable.LRU[string, *AnswerPolicyOutput]
	if cacheSize > 0 {
		cache = expirable.NewLRU[string, *AnswerPolicyOutput](cacheSize, nil, cacheTTL)
	}
	return &answerPolicyUsecase{
		resolve:       resolve,
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		validator:     validator,
		cache:         cache,
		maxTokens:     maxTokens,
		promptVersion: promptVersion,
		logger:        logger,
	}
}

func (u *answerPolicyUsecase) Execute(ctx context.Context, input AnswerPolicyInput) (*AnswerPolicyOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	cacheKey := answerCacheKey(query, input.IncludeSuperseded)
	if u.cache != nil {
		if cached, ok := u.cache.Get(cacheKey); ok {
			out := *cached
			out.Cached = true
			u.logger.Info("answer_cache_hit", slog.String("retrieval_id", out.RetrievalID))
			return &out, nil
		}
	}

	retrieved, err := u.resolve.Execute(ctx, ResolveContextInput{
		Query:             query,
		IncludeSuperseded: input.IncludeSuperseded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve context: %w", err)
	}

	if len(retrieved.Contexts) == 0 {
		u.logger.Info("answer_fallback",
			slog.String("retrieval_id", retrieved.RetrievalID),
			slog.String("category", string(FallbackRetrievalEmpty)))
		return u.fallback(retrieved, FallbackRetrievalEmpty, "no relevant policy chunks retrieved"), nil
	}

	out, err := u.generate(ctx, query, retrieved, input.MaxTokens)
	if err != nil {
		return nil, err
	}

	if u.cache != nil && !out.Fallback {
		u.cache.Add(cacheKey, out)
	}
	return out, nil
}

func (u *answerPolicyUsecase) generate(ctx context.Context, query string, retrieved *ResolveContextOutput, maxTokens int) (*AnswerPolicyOutput, error) {
	if maxTokens <= 0 {
		maxTokens = u.maxTokens
	}

	messages, err := u.promptBuilder.Build(PromptInput{
		Query:         query,
		PromptVersion: u.promptVersion,
		Contexts:      retrieved.Contexts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	llmResp, err := u.llmClient.Generate(ctx, messages, maxTokens)
	if err != nil {
		u.logger.Warn("llm_generation_failed",
			slog.String("retrieval_id", retrieved.RetrievalID),
			slog.String("error", err.Error()))
		return u.fallback(retrieved, FallbackGenerationFailed, fmt.Sprintf("llm generation failed: %v", err)), nil
	}
	if llmResp == nil || strings.TrimSpace(llmResp.Text) == "" || !llmResp.Done {
		u.logger.Warn("llm_response_incomplete",
			slog.String("retrieval_id", retrieved.RetrievalID),
			slog.Int("context_count", len(retrieved.Contexts)))
		return u.fallback(retrieved, FallbackGenerationFailed, "llm response empty or incomplete"), nil
	}

	parsed, err := u.validator.Validate(llmResp.Text, retrieved.Contexts)
	if err != nil {
		u.logger.Warn("llm_response_validation_failed",
			slog.String("retrieval_id", retrieved.RetrievalID),
			slog.String("error", err.Error()))
		return u.fallback(retrieved, FallbackValidationFailed, fmt.Sprintf("validation failed: %v", err)), nil
	}
	if parsed.Fallback || strings.TrimSpace(parsed.Answer) == "" {
		reason := parsed.Reason
		if reason == "" {
			reason = "model signaled fallback"
		}
		return u.fallback(retrieved, FallbackLLMFallback, reason), nil
	}

	return &AnswerPolicyOutput{
		Answer:        strings.TrimSpace(parsed.Answer),
		Citations:     buildCitations(retrieved.Contexts, parsed.Citations),
		Contexts:      retrieved.Contexts,
		RetrievalID:   retrieved.RetrievalID,
		PromptVersion: u.promptVersion,
	}, nil
}

func (u *answerPolicyUsecase) fallback(retrieved *ResolveContextOutput, category FallbackCategory, reason string) *AnswerPolicyOutput {
	return &AnswerPolicyOutput{
		Answer:           FallbackAnswer,
		Contexts:         retrieved.Contexts,
		Fallback:         true,
		Reason:           reason,
		FallbackCategory: category,
		RetrievalID:      retrieved.RetrievalID,
		PromptVersion:    u.promptVersion,
	}
}

func buildCitations(contexts []retrieval.ContextItem, raw []LLMCitation) []Citation {
	ctxMap := make(map[string]retrieval.ContextItem, len(contexts))
	for _, ctx := range contexts {
		ctxMap[ctx.ChunkID.String()] = ctx
	}

	var citations []Citation
	for _, cite := range raw {
		meta, ok := ctxMap[cite.ChunkID]
		if !ok {
			continue
		}
		citations = append(citations, Citation{
			ChunkID:       cite.ChunkID,
			ChunkText:     meta.ChunkText,
			SourceFile:    meta.SourceFile,
			EffectiveDate: meta.EffectiveDate,
			Quote:         cite.Quote,
			Label:         meta.Citation,
		})
	}
	return citations
}

func answerCacheKey(query string, includeSuperseded bool) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%t", query, includeSuperseded)))
	return hex.EncodeToString(hash[:])
}
