package usecase

import (
	"fmt"
	"strings"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase/retrieval"
)

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Query         string
	PromptVersion string
	Contexts      []retrieval.ContextItem
}

// PromptBuilder builds the chat messages sent to the LLM.
type PromptBuilder interface {
	Build(input PromptInput) ([]domain.Message, error)
}

// XMLPromptBuilder creates structured prompts that separate context,
// instructions, query, and format.
type XMLPromptBuilder struct {
	additionalInstructions []string
}

// NewXMLPromptBuilder creates a prompt builder with optional extra
// instructions appended.
func NewXMLPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &XMLPromptBuilder{
		additionalInstructions: additionalInstructions,
	}
}

// Build renders the Messages for the chat API.
func (b *XMLPromptBuilder) Build(input PromptInput) ([]domain.Message, error) {
	if input.PromptVersion == "" {
		return nil, fmt.Errorf("prompt version is required")
	}

	var sysSb strings.Builder
	sysSb.WriteString("<instructions>\n")

	instructions := []string{
		"You are an assistant that answers questions about company policy based ONLY on the provided <context>.",
		"1. Each <document> in the context is a chunk from the authoritative revision of a policy. Superseded revisions are marked with <superseded>true</superseded> and must never contradict the current ones in your answer.",
		"2. Answer the <query> using strictly the facts from the <context>.",
		"3. When documents disagree, trust the one with the later <effective_date>; mention the effective date when it matters to the answer.",
		"4. IMPORTANT: Only set \"fallback\": true if there is absolutely NO relevant information in the context. If there is ANY relevant information, you MUST provide an answer, even if partial.",
		"5. You MUST cite the chunks you used: the \"citations\" array must list every chunk_id backing a statement, and statements in the answer end with [chunk_id].",
		"6. Do not include external knowledge or invent policy rules.",
		"7. Follow the JSON format specified below EXACTLY.",
	}

	for _, inst := range append(instructions, b.additionalInstructions...) {
		sysSb.WriteString("  <line>")
		sysSb.WriteString(escape(inst))
		sysSb.WriteString("</line>\n")
	}
	sysSb.WriteString("</instructions>\n\n")

	sysSb.WriteString("<format>\n")
	sysSb.WriteString("JSON: {\n")
	sysSb.WriteString("  \"answer\": \"Markdown text value... [chunk_id]\",\n")
	sysSb.WriteString("  \"citations\": [{\"chunk_id\":\"...\", \"quote\":\"optional supporting quote\"}],\n")
	sysSb.WriteString("  \"fallback\": false,  // Set true ONLY if no relevant context exists\n")
	sysSb.WriteString("  \"reason\": \"\"  // Explain why fallback is true, if applicable\n")
	sysSb.WriteString("}\n")
	sysSb.WriteString("</format>\n")

	var userSb strings.Builder
	userSb.WriteString(fmt.Sprintf("<context version=%q>\n", escape(input.PromptVersion)))
	for _, ctx := range input.Contexts {
		userSb.WriteString("  <document>\n")
		writeElement(&userSb, "chunk_id", ctx.ChunkID.String())
		writeElement(&userSb, "source_file", ctx.SourceFile)
		writeElement(&userSb, "effective_date", ctx.EffectiveDate)
		writeElement(&userSb, "date_source", ctx.DateSource)
		writeElement(&userSb, "score", fmt.Sprintf("%.6f", ctx.Score))
		writeElement(&userSb, "superseded", fmt.Sprintf("%t", ctx.Superseded))
		writeElement(&userSb, "chunk_text", ctx.ChunkText)
		userSb.WriteString("  </document>\n")
	}
	userSb.WriteString("</context>\n\n")

	userSb.WriteString("<query>\n")
	userSb.WriteString(escape(input.Query))
	userSb.WriteString("\n</query>\n")

	return []domain.Message{
		{Role: "system", Content: sysSb.String()},
		{Role: "user", Content: userSb.String()},
	}, nil
}

func writeElement(sb *strings.Builder, tag, value string) {
	sb.WriteString("    <")
	sb.WriteString(tag)
	sb.WriteString(">")
	sb.WriteString(escape(value))
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteString(">\n")
}

func escape(value string) string {
	s := strings.TrimSpace(value)
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}
