package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"agent-orchestrator/internal/domain"

	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockVectorEncoder
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string {
	return "mock-encoder-v1"
}

// MockVectorIndex
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Replace(ctx context.Context, sessionID string, dimension int, points []domain.VectorPoint) error {
	args := m.Called(ctx, sessionID, dimension, points)
	return args.Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, sessionID string, vector []float32, k int) ([]domain.VectorMatch, error) {
	args := m.Called(ctx, sessionID, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VectorMatch), args.Error(1)
}

func (m *MockVectorIndex) Drop(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockLLMClient
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *MockLLMClient) Version() string {
	return "mock-llm-v1"
}

// MockWeatherClient
type MockWeatherClient struct {
	mock.Mock
}

func (m *MockWeatherClient) Fetch(ctx context.Context, location string) (*domain.WeatherPayload, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeatherPayload), args.Error(1)
}
