// Package httpapi exposes the agent over HTTP using echo.
package httpapi

import (
	"errors"
	"net/http"

	"agent-orchestrator/internal/adapter/pdftext"
	"agent-orchestrator/internal/domain"
	"agent-orchestrator/internal/usecase"
	"agent-orchestrator/internal/worker"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	agentUsecase usecase.AgentUsecase
	indexUsecase usecase.IndexDocumentUsecase
	jobQueue     *worker.JobQueue
}

func NewHandler(
	agentUsecase usecase.AgentUsecase,
	indexUsecase usecase.IndexDocumentUsecase,
	jobQueue *worker.JobQueue,
) *Handler {
	return &Handler{
		agentUsecase: agentUsecase,
		indexUsecase: indexUsecase,
		jobQueue:     jobQueue,
	}
}

// Register mounts all routes on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
	e.POST("/v1/agent/answer", h.Answer)
	e.POST("/v1/sessions/:session_id/index", h.IndexDocument)
	e.DELETE("/v1/sessions/:session_id/index", h.DropIndex)
	e.GET("/v1/jobs/:job_id", h.JobStatus)
}

type answerRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
}

type contextResponse struct {
	ChunkID   string  `json:"chunk_id"`
	ChunkText string  `json:"chunk_text"`
	Ordinal   int     `json:"ordinal"`
	Score     float32 `json:"score"`
}

type weatherResponse struct {
	Location     string  `json:"location"`
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"`
	Humidity     int     `json:"humidity"`
	WindSpeed    float64 `json:"wind_speed"`
}

type answerResponse struct {
	Answer         string            `json:"answer"`
	Route          string            `json:"route"`
	MatchedSignals []string          `json:"matched_signals,omitempty"`
	Contexts       []contextResponse `json:"contexts,omitempty"`
	Weather        *weatherResponse  `json:"weather,omitempty"`
	FromCache      bool              `json:"from_cache"`
}

// Answer runs one agent cycle for the query.
// (POST /v1/agent/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req answerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.SessionID == "" || req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "session_id and query are required"})
	}

	result, err := h.agentUsecase.Execute(ctx.Request().Context(), usecase.AgentInput{
		SessionID: req.SessionID,
		Query:     req.Query,
		TopK:      req.TopK,
	})
	if err != nil {
		return h.errorJSON(ctx, err)
	}

	contexts := make([]contextResponse, 0, len(result.Contexts))
	for _, c := range result.Contexts {
		contexts = append(contexts, contextResponse{
			ChunkID:   c.ChunkID.String(),
			ChunkText: c.ChunkText,
			Ordinal:   c.Ordinal,
			Score:     c.Score,
		})
	}

	var weather *weatherResponse
	if result.Weather != nil {
		weather = &weatherResponse{
			Location:     result.Weather.LocationName,
			TemperatureC: result.Weather.TemperatureC,
			Condition:    result.Weather.Condition,
			Humidity:     result.Weather.Humidity,
			WindSpeed:    result.Weather.WindSpeed,
		}
	}

	return ctx.JSON(http.StatusOK, answerResponse{
		Answer:         result.Answer,
		Route:          string(result.Route),
		MatchedSignals: result.MatchedSignals,
		Contexts:       contexts,
		Weather:        weather,
		FromCache:      result.FromCache,
	})
}

type indexRequest struct {
	Text string `json:"text"`
}

type indexResponse struct {
	HandleID   string `json:"handle_id"`
	ChunkCount int    `json:"chunk_count"`
	SourceHash string `json:"source_hash"`
}

// IndexDocument builds the session's index from JSON text or an uploaded
// PDF. With ?async=true the document is queued and a job ID is returned.
// (POST /v1/sessions/:session_id/index)
func (h *Handler) IndexDocument(ctx echo.Context) error {
	sessionID := ctx.Param("session_id")
	if sessionID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing session_id"})
	}

	text, err := h.documentText(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if ctx.QueryParam("async") == "true" {
		jobID := h.jobQueue.Enqueue(sessionID, text)
		return ctx.JSON(http.StatusAccepted, map[string]string{
			"job_id": jobID.String(),
			"status": worker.StatusQueued,
		})
	}

	handle, err := h.indexUsecase.Index(ctx.Request().Context(), sessionID, text)
	if err != nil {
		return h.errorJSON(ctx, err)
	}

	return ctx.JSON(http.StatusOK, indexResponse{
		HandleID:   handle.ID.String(),
		ChunkCount: handle.ChunkCount,
		SourceHash: handle.SourceHash,
	})
}

// documentText pulls the document body out of the request: a multipart
// "file" part (PDF) when present, otherwise the JSON text field.
func (h *Handler) documentText(ctx echo.Context) (string, error) {
	if file, err := ctx.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return "", errors.New("unreadable upload")
		}
		defer src.Close()

		text, err := pdftext.Extract(src)
		if err != nil {
			return "", errors.New("unable to extract text from pdf")
		}
		return text, nil
	}

	var req indexRequest
	if err := ctx.Bind(&req); err != nil {
		return "", errors.New("invalid request")
	}
	return req.Text, nil
}

// DropIndex discards the session's index.
// (DELETE /v1/sessions/:session_id/index)
func (h *Handler) DropIndex(ctx echo.Context) error {
	sessionID := ctx.Param("session_id")
	if sessionID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing session_id"})
	}

	if err := h.indexUsecase.Drop(ctx.Request().Context(), sessionID); err != nil {
		return h.errorJSON(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// JobStatus reports the state of an asynchronous indexing job.
// (GET /v1/jobs/:job_id)
func (h *Handler) JobStatus(ctx echo.Context) error {
	jobID, err := uuid.Parse(ctx.Param("job_id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	job := h.jobQueue.Get(jobID)
	if job == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]string{
		"job_id":     job.ID.String(),
		"session_id": job.SessionID,
		"status":     job.Status,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Healthz reports liveness.
func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports readiness.
func (h *Handler) Readyz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// errorJSON maps domain errors onto HTTP statuses.
func (h *Handler) errorJSON(ctx echo.Context, err error) error {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrEmptyDocument):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNoIndex):
		return ctx.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnroutableQuery), errors.Is(err, domain.ErrLocationNotFound):
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &upstream):
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error":      err.Error(),
			"capability": upstream.Capability,
		})
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
