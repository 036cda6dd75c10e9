package usecase_test

import (
	"context"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockPolicyDocumentRepository struct {
	mock.Mock
}

func (m *mockPolicyDocumentRepository) GetBySourcePath(ctx context.Context, path string) (*domain.PolicyDocument, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PolicyDocument), args.Error(1)
}

func (m *mockPolicyDocumentRepository) CreateDocument(ctx context.Context, doc *domain.PolicyDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockPolicyDocumentRepository) UpdateCurrentVersion(ctx context.Context, docID uuid.UUID, versionID uuid.UUID) error {
	return m.Called(ctx, docID, versionID).Error(0)
}

func (m *mockPolicyDocumentRepository) GetLatestVersion(ctx context.Context, docID uuid.UUID) (*domain.PolicyDocumentVersion, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PolicyDocumentVersion), args.Error(1)
}

func (m *mockPolicyDocumentRepository) CreateVersion(ctx context.Context, version *domain.PolicyDocumentVersion) error {
	return m.Called(ctx, version).Error(0)
}

func (m *mockPolicyDocumentRepository) DeleteBySourcePath(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type mockPolicyChunkRepository struct {
	mock.Mock
}

func (m *mockPolicyChunkRepository) BulkInsertChunks(ctx context.Context, chunks []domain.PolicyChunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *mockPolicyChunkRepository) GetChunksByVersionID(ctx context.Context, versionID uuid.UUID) ([]domain.PolicyChunk, error) {
	args := m.Called(ctx, versionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PolicyChunk), args.Error(1)
}

func (m *mockPolicyChunkRepository) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, queryVector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

type mockVectorEncoder struct {
	mock.Mock
}

func (m *mockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockVectorEncoder) Version() string {
	return "mock-embedder-v1"
}

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Generate(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, messages, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *mockLLMClient) Version() string {
	return "mock-llm-v1"
}

// mockTxManager runs the function directly; transaction semantics are the
// repository adapter's concern.
type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockCorpusSource struct {
	mock.Mock
}

func (m *mockCorpusSource) List(ctx context.Context) ([]domain.SourceDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SourceDocument), args.Error(1)
}

func (m *mockCorpusSource) Load(ctx context.Context, path string) (*domain.SourceDocument, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceDocument), args.Error(1)
}

type mockResolveContextUsecase struct {
	mock.Mock
}

func (m *mockResolveContextUsecase) Execute(ctx context.Context, input usecase.ResolveContextInput) (*usecase.ResolveContextOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ResolveContextOutput), args.Error(1)
}

type mockIngestDocumentUsecase struct {
	mock.Mock
}

func (m *mockIngestDocumentUsecase) Upsert(ctx context.Context, doc domain.SourceDocument) (usecase.IngestOutcome, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(usecase.IngestOutcome), args.Error(1)
}

func (m *mockIngestDocumentUsecase) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}
