package usecase_test

import (
	"context"
	"strings"
	"testing"

	"agent-orchestrator/internal/domain"
	"agent-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type agentFixture struct {
	registry *usecase.SessionRegistry
	encoder  *MockVectorEncoder
	index    *MockVectorIndex
	llm      *MockLLMClient
	weather  *MockWeatherClient
	agent    usecase.AgentUsecase
}

func newAgentFixture(opts ...usecase.AgentOption) *agentFixture {
	f := &agentFixture{
		registry: usecase.NewSessionRegistry(),
		encoder:  new(MockVectorEncoder),
		index:    new(MockVectorIndex),
		llm:      new(MockLLMClient),
		weather:  new(MockWeatherClient),
	}
	retrieve := usecase.NewRetrieveContextUsecase(f.registry, f.encoder, f.index, 5, testLogger())
	synthesize := usecase.NewSynthesizeAnswerUsecase(usecase.NewXMLPromptBuilder(), f.llm, 512, testLogger())
	f.agent = usecase.NewAgentUsecase(
		domain.NewRouter(nil), f.registry, retrieve, synthesize, f.weather, testLogger(), opts...,
	)
	return f
}

// Scenario: a document is indexed and the query asks about its content.
func TestAgent_Execute_RAGPath(t *testing.T) {
	f := newAgentFixture()
	putHandle(f.registry, "sess-1", 3)

	query := "What does the document say about the attention mechanism?"
	queryVec := []float32{0.1, 0.2, 0.3}
	chunkText := "Attention is a mechanism that lets a model focus on relevant input tokens."

	f.encoder.On("Encode", mock.Anything, []string{query}).Return([][]float32{queryVec}, nil)
	f.index.On("Search", mock.Anything, "sess-1", queryVec, 5).Return([]domain.VectorMatch{
		{ID: uuid.New(), Ordinal: 0, Content: chunkText, Score: 0.92},
	}, nil)
	f.llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, chunkText)
	}), 512).Return(&domain.LLMResponse{Text: "The document explains attention as a focusing mechanism.", Done: true}, nil)

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     query,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RouteRAG, result.Route)
	assert.Equal(t, usecase.PhaseAnswered, result.Phase)
	require.Len(t, result.Contexts, 1)
	assert.Equal(t, chunkText, result.Contexts[0].ChunkText)
	assert.Equal(t, "The document explains attention as a focusing mechanism.", result.Answer)
	f.weather.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

// Scenario: no document indexed, weather question routes to the live lookup.
func TestAgent_Execute_WeatherPath(t *testing.T) {
	f := newAgentFixture()

	f.weather.On("Fetch", mock.Anything, "Berlin").Return(&domain.WeatherPayload{
		LocationName: "Berlin",
		TemperatureC: 7.5,
		Condition:    "light rain",
	}, nil)
	f.llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Berlin") && strings.Contains(prompt, "7.5")
	}), 512).Return(&domain.LLMResponse{Text: "It is 7.5 degrees and rainy in Berlin.", Done: true}, nil)

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     "What is the current temperature in Berlin?",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RouteWeather, result.Route)
	assert.Contains(t, result.Answer, "Berlin")
	require.NotNil(t, result.Weather)
	assert.Equal(t, 7.5, result.Weather.TemperatureC)
	f.index.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Weather wins even when an index exists for the session.
func TestAgent_Execute_WeatherBeatsRAG(t *testing.T) {
	f := newAgentFixture()
	putHandle(f.registry, "sess-1", 3)

	f.weather.On("Fetch", mock.Anything, "Oslo").Return(&domain.WeatherPayload{
		LocationName: "Oslo", TemperatureC: -2, Condition: "snow",
	}, nil)
	f.llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: "Snowy and -2 in Oslo.", Done: true}, nil)

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     "Does the document mention the weather in Oslo?",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RouteWeather, result.Route)
}

// Scenario: no document indexed, non-weather question is unsupported.
func TestAgent_Execute_Unsupported(t *testing.T) {
	f := newAgentFixture()

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     "What does the document say about transformers?",
	})

	assert.ErrorIs(t, err, domain.ErrUnroutableQuery)
	assert.Equal(t, domain.RouteUnsupported, result.Route)
	assert.Equal(t, usecase.PhaseError, result.Phase)
	assert.Empty(t, result.Answer)
	f.llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgent_Execute_WeatherLocationMissing(t *testing.T) {
	f := newAgentFixture()

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     "What is the weather like?",
	})

	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	assert.Equal(t, usecase.PhaseError, result.Phase)
	assert.Empty(t, result.Answer)
	f.weather.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestAgent_Execute_RetrievalErrorPropagates(t *testing.T) {
	f := newAgentFixture()
	putHandle(f.registry, "sess-1", 3)

	f.encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1, 0.2, 0.3}}, nil)
	f.index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     "Tell me about the document.",
	})

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Empty(t, result.Answer)
	f.llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgent_Execute_EmptyRetrievalGivesCannedAnswer(t *testing.T) {
	f := newAgentFixture()
	putHandle(f.registry, "sess-1", 3)

	f.encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1, 0.2, 0.3}}, nil)
	f.index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.VectorMatch{}, nil)

	result, err := f.agent.Execute(context.Background(), usecase.AgentInput{
		SessionID: "sess-1",
		Query:     "Tell me about the document.",
	})

	require.NoError(t, err)
	assert.Equal(t, usecase.InsufficientContextAnswer, result.Answer)
	f.llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgent_Execute_AnswerCache(t *testing.T) {
	f := newAgentFixture(usecase.WithAnswerCache(16))
	putHandle(f.registry, "sess-1", 3)

	query := "Summarize the document."
	f.encoder.On("Encode", mock.Anything, []string{query}).
		Return([][]float32{{0.1, 0.2, 0.3}}, nil).Once()
	f.index.On("Search", mock.Anything, "sess-1", mock.Anything, 5).Return([]domain.VectorMatch{
		{ID: uuid.New(), Content: "summary material", Score: 0.8},
	}, nil).Once()
	f.llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: "A summary.", Done: true}, nil).Once()

	first, err := f.agent.Execute(context.Background(), usecase.AgentInput{SessionID: "sess-1", Query: query})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.agent.Execute(context.Background(), usecase.AgentInput{SessionID: "sess-1", Query: query})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Answer, second.Answer)

	// One retrieval and one generation in total.
	f.encoder.AssertNumberOfCalls(t, "Encode", 1)
	f.llm.AssertNumberOfCalls(t, "Generate", 1)
}

func TestAgent_Execute_CacheInvalidatedByReindex(t *testing.T) {
	f := newAgentFixture(usecase.WithAnswerCache(16))
	putHandle(f.registry, "sess-1", 3)

	query := "Summarize the document."
	f.encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1, 0.2, 0.3}}, nil)
	f.index.On("Search", mock.Anything, "sess-1", mock.Anything, 5).Return([]domain.VectorMatch{
		{ID: uuid.New(), Content: "material", Score: 0.8},
	}, nil)
	f.llm.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{Text: "A summary.", Done: true}, nil)

	_, err := f.agent.Execute(context.Background(), usecase.AgentInput{SessionID: "sess-1", Query: query})
	require.NoError(t, err)

	// Re-index: new handle identity means the cached entry no longer matches.
	putHandle(f.registry, "sess-1", 3)

	second, err := f.agent.Execute(context.Background(), usecase.AgentInput{SessionID: "sess-1", Query: query})
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	f.llm.AssertNumberOfCalls(t, "Generate", 2)
}
