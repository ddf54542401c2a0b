package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agent-orchestrator/internal/domain"
	"agent-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSynthesizer(llm *MockLLMClient) usecase.SynthesizeAnswerUsecase {
	return usecase.NewSynthesizeAnswerUsecase(usecase.NewXMLPromptBuilder(), llm, 512, testLogger())
}

func TestSynthesizeAnswer_Execute_WithChunks(t *testing.T) {
	llm := new(MockLLMClient)
	uc := newSynthesizer(llm)

	llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Attention lets a model focus.") &&
			strings.Contains(prompt, "What is attention?")
	}), 512).Return(&domain.LLMResponse{Text: "Attention focuses the model.", Done: true}, nil)

	out, err := uc.Execute(context.Background(), usecase.SynthesizeInput{
		Query: "What is attention?",
		Contexts: []usecase.ContextItem{
			{ChunkID: uuid.New(), ChunkText: "Attention lets a model focus.", Score: 0.9},
		},
	})

	require.NoError(t, err)
	assert.True(t, out.Synthesized)
	assert.Equal(t, "Attention focuses the model.", out.Answer)
}

func TestSynthesizeAnswer_Execute_EmptyContextSkipsLLM(t *testing.T) {
	llm := new(MockLLMClient)
	uc := newSynthesizer(llm)

	out, err := uc.Execute(context.Background(), usecase.SynthesizeInput{
		Query: "What does the document say?",
	})

	require.NoError(t, err)
	assert.False(t, out.Synthesized)
	assert.Equal(t, usecase.InsufficientContextAnswer, out.Answer)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSynthesizeAnswer_Execute_WeatherPayload(t *testing.T) {
	llm := new(MockLLMClient)
	uc := newSynthesizer(llm)

	llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Berlin") && strings.Contains(prompt, "18.0")
	}), 512).Return(&domain.LLMResponse{Text: "It is 18 degrees in Berlin.", Done: true}, nil)

	out, err := uc.Execute(context.Background(), usecase.SynthesizeInput{
		Query: "What is the temperature in Berlin?",
		Weather: &domain.WeatherPayload{
			LocationName: "Berlin",
			TemperatureC: 18.0,
			Condition:    "clouds",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "It is 18 degrees in Berlin.", out.Answer)
}

func TestSynthesizeAnswer_Execute_LLMFailure(t *testing.T) {
	llm := new(MockLLMClient)
	uc := newSynthesizer(llm)

	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("model unavailable"))

	_, err := uc.Execute(context.Background(), usecase.SynthesizeInput{
		Query:    "q",
		Contexts: []usecase.ContextItem{{ChunkID: uuid.New(), ChunkText: "x"}},
	})

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "completion", upstream.Capability)
}
