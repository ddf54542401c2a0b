package usecase

import (
	"fmt"
	"strings"

	"agent-orchestrator/internal/domain"
)

// PromptInput contains the pieces that feed into the prompt builder. Exactly
// one of Contexts or Weather is expected to be populated; the builder does
// not care which fulfillment path produced the context.
type PromptInput struct {
	Query    string
	Contexts []ContextItem
	Weather  *domain.WeatherPayload
}

// PromptBuilder renders the prompt sent to the LLM.
type PromptBuilder interface {
	Build(input PromptInput) (string, error)
}

// XMLPromptBuilder creates structured prompts that separate instructions,
// context, and query, and constrain the answer to the supplied context.
type XMLPromptBuilder struct {
	additionalInstructions []string
}

// NewXMLPromptBuilder creates a prompt builder with optional extra
// instructions appended.
func NewXMLPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &XMLPromptBuilder{additionalInstructions: additionalInstructions}
}

// Build renders the full prompt text.
func (b *XMLPromptBuilder) Build(input PromptInput) (string, error) {
	if strings.TrimSpace(input.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	if len(input.Contexts) == 0 && input.Weather == nil {
		return "", fmt.Errorf("prompt requires context")
	}

	var sb strings.Builder
	sb.WriteString("<instructions>\n")
	instructions := []string{
		"You are an assistant that answers the <query> using ONLY the information inside <context>.",
		"Do not introduce outside facts. If the context does not contain the answer, say that you do not know.",
		"Answer in 2-4 plain sentences.",
	}
	for _, inst := range append(instructions, b.additionalInstructions...) {
		sb.WriteString("  <line>")
		sb.WriteString(escape(inst))
		sb.WriteString("</line>\n")
	}
	sb.WriteString("</instructions>\n\n")

	sb.WriteString("<context>\n")
	for _, c := range input.Contexts {
		sb.WriteString("  <document>\n")
		sb.WriteString("    <chunk_id>")
		sb.WriteString(escape(c.ChunkID.String()))
		sb.WriteString("</chunk_id>\n")
		sb.WriteString("    <score>")
		sb.WriteString(fmt.Sprintf("%.6f", c.Score))
		sb.WriteString("</score>\n")
		sb.WriteString("    <chunk_text>")
		sb.WriteString(escape(c.ChunkText))
		sb.WriteString("</chunk_text>\n")
		sb.WriteString("  </document>\n")
	}
	if input.Weather != nil {
		w := input.Weather
		sb.WriteString("  <weather>\n")
		sb.WriteString("    <location>")
		sb.WriteString(escape(w.LocationName))
		sb.WriteString("</location>\n")
		sb.WriteString("    <temperature_c>")
		sb.WriteString(fmt.Sprintf("%.1f", w.TemperatureC))
		sb.WriteString("</temperature_c>\n")
		sb.WriteString("    <condition>")
		sb.WriteString(escape(w.Condition))
		sb.WriteString("</condition>\n")
		sb.WriteString("    <humidity_percent>")
		sb.WriteString(fmt.Sprintf("%d", w.Humidity))
		sb.WriteString("</humidity_percent>\n")
		sb.WriteString("    <wind_speed>")
		sb.WriteString(fmt.Sprintf("%.1f", w.WindSpeed))
		sb.WriteString("</wind_speed>\n")
		sb.WriteString("  </weather>\n")
	}
	sb.WriteString("</context>\n\n")

	sb.WriteString("<query>\n")
	sb.WriteString(escape(input.Query))
	sb.WriteString("\n</query>\n")

	return sb.String(), nil
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
