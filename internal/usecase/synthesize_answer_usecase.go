package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agent-orchestrator/internal/domain"
)

// InsufficientContextAnswer is returned on the RAG path when retrieval
// produced no chunks. The completion capability is not invoked in that case,
// so an empty prompt can never turn into a hallucinated answer.
const InsufficientContextAnswer = "I could not find relevant information in the indexed document for this question. " +
	"Try rephrasing the question or re-indexing the document."

// SynthesizeInput carries a query plus the fulfillment payload the answer
// must be derived from.
type SynthesizeInput struct {
	Query    string
	Contexts []ContextItem
	Weather  *domain.WeatherPayload
}

// SynthesizeOutput is the rendered answer.
type SynthesizeOutput struct {
	Answer string
	// Synthesized is false when the canned insufficient-context answer was
	// returned without calling the LLM.
	Synthesized bool
}

// SynthesizeAnswerUsecase renders a final answer from the supplied context.
// It is agnostic about where the context came from; its only policy is
// "derive strictly from what is given".
type SynthesizeAnswerUsecase interface {
	Execute(ctx context.Context, input SynthesizeInput) (*SynthesizeOutput, error)
}

type synthesizeAnswerUsecase struct {
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	maxTokens     int
	logger        *slog.Logger
}

// NewSynthesizeAnswerUsecase wires the prompt builder and LLM client into an
// answer synthesizer.
func NewSynthesizeAnswerUsecase(
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	maxTokens int,
	logger *slog.Logger,
) SynthesizeAnswerUsecase {
	return &synthesizeAnswerUsecase{
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		maxTokens:     maxTokens,
		logger:        logger,
	}
}

func (u *synthesizeAnswerUsecase) Execute(ctx context.Context, input SynthesizeInput) (*SynthesizeOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	if len(input.Contexts) == 0 && input.Weather == nil {
		u.logger.Info("synthesis_skipped_empty_context", slog.String("query", input.Query))
		return &SynthesizeOutput{Answer: InsufficientContextAnswer, Synthesized: false}, nil
	}

	prompt, err := u.promptBuilder.Build(PromptInput{
		Query:    input.Query,
		Contexts: input.Contexts,
		Weather:  input.Weather,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	resp, err := u.llmClient.Generate(ctx, prompt, u.maxTokens)
	if err != nil {
		return nil, domain.NewUpstreamError("completion", err)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		return nil, domain.NewUpstreamError("completion", fmt.Errorf("empty completion"))
	}

	return &SynthesizeOutput{Answer: answer, Synthesized: true}, nil
}
