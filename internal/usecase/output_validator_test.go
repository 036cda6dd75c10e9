package usecase_test

import (
	"testing"

	"policy-rag/internal/usecase"
	"policy-rag/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputValidator_Valid(t *testing.T) {
	validator := usecase.NewOutputValidator()
	chunkID := uuid.New()
	contexts := []retrieval.ContextItem{{ChunkID: chunkID}}

	raw := `{
  "answer": "Policy allows it. [` + chunkID.String() + `]",
  "citations": [{"chunk_id":"` + chunkID.String() + `","quote":"allows it"}],
  "fallback": false,
  "reason": ""
}`
	answer, err := validator.Validate(raw, contexts)
	require.NoError(t, err)
	assert.Contains(t, answer.Answer, "Policy allows it")
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "allows it", answer.Citations[0].Quote)
}

func TestOutputValidator_Rejections(t *testing.T) {
	validator := usecase.NewOutputValidator()
	chunkID := uuid.New()
	contexts := []retrieval.ContextItem{{ChunkID: chunkID}}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty response", raw: "   "},
		{name: "not json", raw: "I think the answer is..."},
		{name: "missing answer", raw: `{"answer":"","citations":[{"chunk_id":"` + chunkID.String() + `"}],"fallback":false}`},
		{name: "missing citations", raw: `{"answer":"text","citations":[],"fallback":false}`},
		{name: "citation without chunk_id", raw: `{"answer":"text","citations":[{"chunk_id":""}],"fallback":false}`},
		{name: "citation outside context", raw: `{"answer":"text","citations":[{"chunk_id":"` + uuid.NewString() + `"}],"fallback":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Validate(tt.raw, contexts)
			assert.Error(t, err)
		})
	}
}

func TestOutputValidator_FallbackNeedsNoCitations(t *testing.T) {
	validator := usecase.NewOutputValidator()

	raw := `{"answer":"","citations":[],"fallback":true,"reason":"nothing relevant"}`
	answer, err := validator.Validate(raw, nil)
	require.NoError(t, err)
	assert.True(t, answer.Fallback)
	assert.Equal(t, "nothing relevant", answer.Reason)
}
