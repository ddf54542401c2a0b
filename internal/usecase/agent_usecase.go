package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"agent-orchestrator/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// AgentPhase names a state of the query-answer cycle.
type AgentPhase string

const (
	PhaseStart     AgentPhase = "start"
	PhaseRouted    AgentPhase = "routed"
	PhaseFulfilled AgentPhase = "fulfilled"
	PhaseAnswered  AgentPhase = "answered"
	PhaseError     AgentPhase = "error"
)

// AgentState is the mutable record threaded through one query-answer cycle.
// It is created fresh per query and owned exclusively by the executor for
// the duration of the cycle; it is never shared across concurrent queries.
type AgentState struct {
	SessionID string
	Query     string
	Phase     AgentPhase
	Decision  domain.RouteDecision
	Contexts  []ContextItem
	Weather   *domain.WeatherPayload
	Answer    string
	Err       error
}

// AgentInput is one user turn.
type AgentInput struct {
	SessionID string
	Query     string
	TopK      int
}

// AgentResult is the caller-facing outcome of one cycle, including the
// diagnostic metadata accumulated along the way.
type AgentResult struct {
	Route          domain.Route
	MatchedSignals []string
	Answer         string
	Contexts       []ContextItem
	Weather        *domain.WeatherPayload
	Phase          AgentPhase
	FromCache      bool
}

// AgentUsecase drives Router -> fulfillment -> Synthesizer for one query.
type AgentUsecase interface {
	Execute(ctx context.Context, input AgentInput) (*AgentResult, error)
}

type agentUsecase struct {
	router        *domain.Router
	registry      *SessionRegistry
	retrieve      RetrieveContextUsecase
	synthesize    SynthesizeAnswerUsecase
	weatherClient domain.WeatherClient
	answerCache   *lru.Cache[string, string]
	logger        *slog.Logger
}

// AgentOption customizes the executor.
type AgentOption func(*agentUsecase)

// WithAnswerCache enables an LRU cache for RAG answers. Entries are keyed by
// (session, index handle, query), so any re-index invalidates them
// implicitly. Weather answers are live data and are never cached.
func WithAnswerCache(size int) AgentOption {
	return func(u *agentUsecase) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[string, string](size)
		if err != nil {
			u.logger.Warn("answer_cache_disabled", slog.String("error", err.Error()))
			return
		}
		u.answerCache = cache
	}
}

// NewAgentUsecase wires the router, fulfillment paths, and synthesizer into
// the query state machine.
func NewAgentUsecase(
	router *domain.Router,
	registry *SessionRegistry,
	retrieve RetrieveContextUsecase,
	synthesize SynthesizeAnswerUsecase,
	weatherClient domain.WeatherClient,
	logger *slog.Logger,
	opts ...AgentOption,
) AgentUsecase {
	u := &agentUsecase{
		router:        router,
		registry:      registry,
		retrieve:      retrieve,
		synthesize:    synthesize,
		weatherClient: weatherClient,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute runs one cycle: START -> ROUTED -> FULFILLED -> ANSWERED, with a
// terminal ERROR reachable from any state. Every transition is attempted at
// most once; no step is retried. On error the returned result carries the
// route diagnostics and an empty answer.
func (u *agentUsecase) Execute(ctx context.Context, input AgentInput) (*AgentResult, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	state := &AgentState{
		SessionID: input.SessionID,
		Query:     input.Query,
		Phase:     PhaseStart,
	}

	// START -> ROUTED
	indexAvailable := u.registry.Get(input.SessionID) != nil
	state.Decision = u.router.Classify(input.Query, indexAvailable)
	state.Phase = PhaseRouted
	u.logger.Info("query_routed",
		slog.String("session_id", input.SessionID),
		slog.String("route", string(state.Decision.Route)),
		slog.Any("signals", state.Decision.MatchedSignals),
		slog.Bool("index_available", indexAvailable))

	// ROUTED -> FULFILLED
	var fromCache bool
	switch state.Decision.Route {
	case domain.RouteWeather:
		state.Err = u.fulfillWeather(ctx, state)
	case domain.RouteRAG:
		fromCache = u.fulfillRAG(ctx, state, input.TopK)
	case domain.RouteUnsupported:
		state.Err = domain.ErrUnroutableQuery
	}
	if state.Err != nil {
		return u.fail(state)
	}
	state.Phase = PhaseFulfilled

	// FULFILLED -> ANSWERED
	if state.Answer == "" {
		out, err := u.synthesize.Execute(ctx, SynthesizeInput{
			Query:    state.Query,
			Contexts: state.Contexts,
			Weather:  state.Weather,
		})
		if err != nil {
			state.Err = err
			return u.fail(state)
		}
		state.Answer = out.Answer

		if u.answerCache != nil && !fromCache && state.Decision.Route == domain.RouteRAG && out.Synthesized {
			if key, ok := u.cacheKey(state.SessionID, state.Query); ok {
				u.answerCache.Add(key, state.Answer)
			}
		}
	}
	state.Phase = PhaseAnswered

	return &AgentResult{
		Route:          state.Decision.Route,
		MatchedSignals: state.Decision.MatchedSignals,
		Answer:         state.Answer,
		Contexts:       state.Contexts,
		Weather:        state.Weather,
		Phase:          state.Phase,
		FromCache:      fromCache,
	}, nil
}

func (u *agentUsecase) fulfillWeather(ctx context.Context, state *AgentState) error {
	location, err := domain.ParseLocation(state.Query)
	if err != nil {
		return err
	}

	payload, err := u.weatherClient.Fetch(ctx, location)
	if err != nil {
		return domain.NewUpstreamError("weather", err)
	}
	state.Weather = payload
	return nil
}

// fulfillRAG populates state with retrieved context, or a cached answer when
// one exists for the current index generation. Returns whether the answer
// came from the cache.
func (u *agentUsecase) fulfillRAG(ctx context.Context, state *AgentState, topK int) bool {
	if u.answerCache != nil {
		if key, ok := u.cacheKey(state.SessionID, state.Query); ok {
			if answer, hit := u.answerCache.Get(key); hit {
				u.logger.Info("answer_cache_hit", slog.String("session_id", state.SessionID))
				state.Answer = answer
				return true
			}
		}
	}

	out, err := u.retrieve.Execute(ctx, RetrieveContextInput{
		SessionID: state.SessionID,
		Query:     state.Query,
		TopK:      topK,
	})
	if err != nil {
		state.Err = err
		return false
	}
	state.Contexts = out.Contexts
	return false
}

func (u *agentUsecase) cacheKey(sessionID, query string) (string, bool) {
	handle := u.registry.Get(sessionID)
	if handle == nil {
		return "", false
	}
	sum := sha256.Sum256([]byte(query))
	return sessionID + ":" + handle.ID.String() + ":" + hex.EncodeToString(sum[:]), true
}

// fail moves the cycle to the terminal ERROR state. The answer stays empty:
// the core never returns a fabricated answer alongside an error.
func (u *agentUsecase) fail(state *AgentState) (*AgentResult, error) {
	state.Phase = PhaseError
	u.logger.Warn("cycle_failed",
		slog.String("session_id", state.SessionID),
		slog.String("route", string(state.Decision.Route)),
		slog.String("error", state.Err.Error()))

	return &AgentResult{
		Route:          state.Decision.Route,
		MatchedSignals: state.Decision.MatchedSignals,
		Contexts:       state.Contexts,
		Phase:          PhaseError,
	}, state.Err
}
