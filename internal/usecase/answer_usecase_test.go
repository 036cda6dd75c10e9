package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase"
	"policy-rag/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAnswerUsecase(resolve usecase.ResolveContextUsecase, llm domain.LLMClient, cacheSize int) usecase.AnswerPolicyUsecase {
	return usecase.NewAnswerPolicyUsecase(
		resolve,
		usecase.NewXMLPromptBuilder(),
		llm,
		usecase.NewOutputValidator(),
		cacheSize,
		time.Minute,
		512,
		"policy-v1",
		testLogger(),
	)
}

func contextItem(text string) retrieval.ContextItem {
	return retrieval.ContextItem{
		ChunkID:       uuid.New(),
		ChunkText:     text,
		SourceFile:    "policies/leave-policy-2024.txt",
		EffectiveDate: "2024-06-15",
		DateSource:    "content",
		Score:         0.9,
		Citation:      "leave-policy-2024.txt (effective 2024-06-15)",
	}
}

func TestAnswerPolicy_Success(t *testing.T) {
	resolve := new(mockResolveContextUsecase)
	llm := new(mockLLMClient)
	uc := newAnswerUsecase(resolve, llm, 0)

	item := contextItem("Employees accrue 20 vacation days per year.")
	resolve.On("Execute", mock.Anything, mock.Anything).Return(&usecase.ResolveContextOutput{
		RetrievalID: "r-1",
		Contexts:    []retrieval.ContextItem{item},
	}, nil)

	llmResponse := `{
  "answer": "You accrue 20 vacation days per year. [` + item.ChunkID.String() + `]",
  "citations": [{"chunk_id":"` + item.ChunkID.String() + `","quote":"20 vacation days per year"}],
  "fallback": false,
  "reason": ""
}`
	llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: llmResponse, Done: true}, nil)

	output, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "how many vacation days"})
	require.NoError(t, err)

	assert.False(t, output.Fallback)
	assert.Contains(t, output.Answer, "20 vacation days")
	require.Len(t, output.Citations, 1)
	assert.Equal(t, item.ChunkID.String(), output.Citations[0].ChunkID)
	assert.Equal(t, "leave-policy-2024.txt (effective 2024-06-15)", output.Citations[0].Label)
	assert.Equal(t, "r-1", output.RetrievalID)
}

func TestAnswerPolicy_EmptyRetrievalFallsBack(t *testing.T) {
	resolve := new(mockResolveContextUsecase)
	llm := new(mockLLMClient)
	uc := newAnswerUsecase(resolve, llm, 0)

	resolve.On("Execute", mock.Anything, mock.Anything).Return(&usecase.ResolveContextOutput{RetrievalID: "r-2"}, nil)

	output, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "sabbatical on mars"})
	require.NoError(t, err, "an unanswerable question is a valid response, not an error")

	assert.True(t, output.Fallback)
	assert.Equal(t, usecase.FallbackAnswer, output.Answer)
	assert.Equal(t, usecase.FallbackRetrievalEmpty, output.FallbackCategory)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswerPolicy_GenerationFailureFallsBack(t *testing.T) {
	resolve := new(mockResolveContextUsecase)
	llm := new(mockLLMClient)
	uc := newAnswerUsecase(resolve, llm, 0)

	resolve.On("Execute", mock.Anything, mock.Anything).Return(&usecase.ResolveContextOutput{
		RetrievalID: "r-3",
		Contexts:    []retrieval.ContextItem{contextItem("some policy text")},
	}, nil)
	llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(nil, errors.New("connection refused"))

	output, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "expenses"})
	require.NoError(t, err)

	assert.True(t, output.Fallback)
	assert.Equal(t, usecase.FallbackGenerationFailed, output.FallbackCategory)
	assert.NotEmpty(t, output.Contexts, "contexts still returned so callers can inspect retrieval")
}

func TestAnswerPolicy_InvalidCitationFallsBack(t *testing.T) {
	resolve := new(mockResolveContextUsecase)
	llm := new(mockLLMClient)
	uc := newAnswerUsecase(resolve, llm, 0)

	resolve.On("Execute", mock.Anything, mock.Anything).Return(&usecase.ResolveContextOutput{
		RetrievalID: "r-4",
		Contexts:    []retrieval.ContextItem{contextItem("some policy text")},
	}, nil)

	llmResponse := `{
  "answer": "made up",
  "citations": [{"chunk_id":"` + uuid.NewString() + `"}],
  "fallback": false
}`
	llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: llmResponse, Done: true}, nil)

	output, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "expenses"})
	require.NoError(t, err)

	assert.True(t, output.Fallback)
	assert.Equal(t, usecase.FallbackValidationFailed, output.FallbackCategory)
}

func TestAnswerPolicy_CacheServesRepeatQuery(t *testing.T) {
	resolve := new(mockResolveContextUsecase)
	llm := new(mockLLMClient)
	uc := newAnswerUsecase(resolve, llm, 8)

	item := contextItem("remote work is allowed two days per week")
	resolve.On("Execute", mock.Anything, mock.Anything).Return(&usecase.ResolveContextOutput{
		RetrievalID: "r-5",
		Contexts:    []retrieval.ContextItem{item},
	}, nil).Once()

	llmResponse := `{
  "answer": "Two days per week. [` + item.ChunkID.String() + `]",
  "citations": [{"chunk_id":"` + item.ChunkID.String() + `"}],
  "fallback": false
}`
	llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: llmResponse, Done: true}, nil).Once()

	first, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "remote work"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "remote work"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)

	resolve.AssertNumberOfCalls(t, "Execute", 1)
}

func TestAnswerPolicy_SupersededFlagBypassesSharedCacheEntry(t *testing.T) {
	resolve := new(mockResolveContextUsecase)
	llm := new(mockLLMClient)
	uc := newAnswerUsecase(resolve, llm, 8)

	item := contextItem("pto policy")
	resolve.On("Execute", mock.Anything, mock.Anything).Return(&usecase.ResolveContextOutput{
		RetrievalID: "r-6",
		Contexts:    []retrieval.ContextItem{item},
	}, nil)

	llmResponse := `{
  "answer": "pto answer [` + item.ChunkID.String() + `]",
  "citations": [{"chunk_id":"` + item.ChunkID.String() + `"}],
  "fallback": false
}`
	llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: llmResponse, Done: true}, nil)

	_, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "pto"})
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), usecase.AnswerPolicyInput{Query: "pto", IncludeSuperseded: true})
	require.NoError(t, err)
	assert.False(t, second.Cached, "the superseded variant has its own cache key")

	resolve.AssertNumberOfCalls(t, "Execute", 2)
}
