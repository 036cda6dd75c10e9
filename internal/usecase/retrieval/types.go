package retrieval

import (
	"policy-rag/internal/domain"

	"github.com/google/uuid"
)

// StageContext carries data between pipeline stages.
type StageContext struct {
	// Input
	RetrievalID       string
	Query             string
	IncludeSuperseded bool

	// Stage 1 outputs
	QueryEmbedding []float32

	// Stage 2 outputs
	Candidates []domain.SearchResult

	// Stage 3 outputs
	Groups map[domain.TopicKey][]domain.SearchResult

	// Stage 4 outputs
	Winners    []domain.SearchResult
	Superseded []domain.SearchResult

	// Config values (set once at init)
	SearchLimit int
	TopK        int
}

// ContextItem represents a single retrieved chunk with the document metadata
// cited alongside it.
type ContextItem struct {
	ChunkID       uuid.UUID
	ChunkText     string
	SourceFile    string
	EffectiveDate string // ISO8601 date, empty when unknown
	DateSource    string
	Score         float32
	Noise         bool
	NoiseReason   string
	Superseded    bool
	Citation      string
}
