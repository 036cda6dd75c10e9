package httpapi

import (
	"net/http"
	"strings"
	"time"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase"
	"policy-rag/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler exposes the policy retrieval and answer endpoints.
type Handler struct {
	resolveUsecase usecase.ResolveContextUsecase
	answerUsecase  usecase.AnswerPolicyUsecase
	jobRepo        domain.PolicyJobRepository
}

func NewHandler(
	resolveUsecase usecase.ResolveContextUsecase,
	answerUsecase usecase.AnswerPolicyUsecase,
	jobRepo domain.PolicyJobRepository,
) *Handler {
	return &Handler{
		resolveUsecase: resolveUsecase,
		answerUsecase:  answerUsecase,
		jobRepo:        jobRepo,
	}
}

// Register wires the handler's routes into the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/policy/answer", h.Answer)
	e.POST("/v1/policy/retrieve", h.Retrieve)
	e.POST("/internal/policy/ingest", h.EnqueueIngest)
	e.POST("/internal/policy/reingest", h.EnqueueReingest)
}

type answerRequest struct {
	Query             string `json:"query"`
	IncludeSuperseded bool   `json:"include_superseded"`
	MaxTokens         int    `json:"max_tokens"`
}

type contextPayload struct {
	ChunkID       string  `json:"chunk_id"`
	ChunkText     string  `json:"chunk_text"`
	SourceFile    string  `json:"source_file"`
	EffectiveDate string  `json:"effective_date,omitempty"`
	DateSource    string  `json:"date_source"`
	Score         float32 `json:"score"`
	Noise         bool    `json:"noise,omitempty"`
	NoiseReason   string  `json:"noise_reason,omitempty"`
	Superseded    bool    `json:"superseded,omitempty"`
	Citation      string  `json:"citation"`
}

type citationPayload struct {
	ChunkID       string `json:"chunk_id"`
	SourceFile    string `json:"source_file"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Quote         string `json:"quote,omitempty"`
	Label         string `json:"label"`
}

type answerResponse struct {
	Answer        string            `json:"answer"`
	Citations     []citationPayload `json:"citations,omitempty"`
	Contexts      []contextPayload  `json:"contexts"`
	Fallback      bool              `json:"fallback"`
	Reason        string            `json:"reason,omitempty"`
	RetrievalID   string            `json:"retrieval_id"`
	PromptVersion string            `json:"prompt_version"`
	Cached        bool              `json:"cached,omitempty"`
}

// Answer generates a grounded answer for a policy question. An unanswerable
// question is a 200 with fallback set, never an error status.
// (POST /v1/policy/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req answerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerPolicyInput{
		Query:             req.Query,
		IncludeSuperseded: req.IncludeSuperseded,
		MaxTokens:         req.MaxTokens,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	citations := make([]citationPayload, 0, len(output.Citations))
	for _, cite := range output.Citations {
		citations = append(citations, citationPayload{
			ChunkID:       cite.ChunkID,
			SourceFile:    cite.SourceFile,
			EffectiveDate: cite.EffectiveDate,
			Quote:         cite.Quote,
			Label:         cite.Label,
		})
	}

	return ctx.JSON(http.StatusOK, answerResponse{
		Answer:        output.Answer,
		Citations:     citations,
		Contexts:      toContextPayloads(output.Contexts),
		Fallback:      output.Fallback,
		Reason:        output.Reason,
		RetrievalID:   output.RetrievalID,
		PromptVersion: output.PromptVersion,
		Cached:        output.Cached,
	})
}

type retrieveRequest struct {
	Query             string `json:"query"`
	IncludeSuperseded bool   `json:"include_superseded"`
}

type retrieveResponse struct {
	RetrievalID string           `json:"retrieval_id"`
	Contexts    []contextPayload `json:"contexts"`
}

// Retrieve returns the resolved context chunks without generation.
// (POST /v1/policy/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req retrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.resolveUsecase.Execute(ctx.Request().Context(), usecase.ResolveContextInput{
		Query:             req.Query,
		IncludeSuperseded: req.IncludeSuperseded,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, retrieveResponse{
		RetrievalID: output.RetrievalID,
		Contexts:    toContextPayloads(output.Contexts),
	})
}

type ingestRequest struct {
	SourcePath string `json:"source_path"`
}

// EnqueueIngest queues a single document for (re)indexing.
// (POST /internal/policy/ingest)
func (h *Handler) EnqueueIngest(ctx echo.Context) error {
	var req ingestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.SourcePath) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing source_path"})
	}

	return h.enqueue(ctx, domain.JobTypeIngestDocument, map[string]interface{}{
		"source_path": req.SourcePath,
	})
}

// EnqueueReingest queues a full corpus re-scan.
// (POST /internal/policy/reingest)
func (h *Handler) EnqueueReingest(ctx echo.Context) error {
	return h.enqueue(ctx, domain.JobTypeReingestCorpus, map[string]interface{}{})
}

func (h *Handler) enqueue(ctx echo.Context, jobType string, payload map[string]interface{}) error {
	now := time.Now()
	job := &domain.PolicyJob{
		ID:        uuid.New(),
		JobType:   jobType,
		Payload:   payload,
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "status": "queued"})
}

func toContextPayloads(contexts []retrieval.ContextItem) []contextPayload {
	payloads := make([]contextPayload, 0, len(contexts))
	for _, c := range contexts {
		payloads = append(payloads, contextPayload{
			ChunkID:       c.ChunkID.String(),
			ChunkText:     c.ChunkText,
			SourceFile:    c.SourceFile,
			EffectiveDate: c.EffectiveDate,
			DateSource:    c.DateSource,
			Score:         c.Score,
			Noise:         c.Noise,
			NoiseReason:   c.NoiseReason,
			Superseded:    c.Superseded,
			Citation:      c.Citation,
		})
	}
	return payloads
}
