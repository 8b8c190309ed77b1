package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bull/uwp-rag-server/internal/answer"
	"github.com/bull/uwp-rag-server/internal/ingest"
)

const defaultK = 5

// Answerer produces cited answers.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (*answer.Result, error)
}

// IngestService starts and reports ingestion runs.
type IngestService interface {
	Start(ctx context.Context, maxPages int) error
	Status() ingest.Status
}

// IndexInfo reports on the vector collection.
type IndexInfo interface {
	CollectionExists(ctx context.Context) (bool, error)
	Count(ctx context.Context) (uint64, error)
}

type AskRequest struct {
	Question string `json:"question" binding:"required,min=1,max=1000"`
	K        *int   `json:"k" binding:"omitempty,min=1,max=20"`
}

type IngestStartRequest struct {
	MaxPages *int `json:"max_pages" binding:"omitempty,min=10,max=2000"`
}

type IngestStartResponse struct {
	Message  string `json:"message"`
	MaxPages int    `json:"max_pages"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	EmbedModel       string `json:"embed_model"`
	ChatModel        string `json:"chat_model"`
	CollectionExists bool   `json:"collection_exists"`
	ChunkCount       uint64 `json:"chunk_count"`
}

type Handler struct {
	answerer        Answerer
	ingest          IngestService
	index           IndexInfo
	embedModel      string
	chatModel       string
	defaultMaxPages int
	logger          *slog.Logger
}

func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	k := defaultK
	if req.K != nil {
		k = *req.K
	}

	ctx := c.Request.Context()
	res, err := h.answerer.Answer(ctx, req.Question, k)
	if err != nil {
		h.logger.ErrorContext(ctx, "Answer failed", "error", err)
		detail := "Failed to answer question: " + err.Error()
		if errors.Is(err, answer.ErrChatFailed) {
			detail = "OpenAI API error: " + err.Error()
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: detail})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) StartIngest(c *gin.Context) {
	var req IngestStartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortValidation(c, err)
		return
	}

	maxPages := h.defaultMaxPages
	if req.MaxPages != nil {
		maxPages = *req.MaxPages
	}

	if err := h.ingest.Start(c.Request.Context(), maxPages); err != nil {
		if errors.Is(err, ingest.ErrIngestRunning) {
			c.JSON(http.StatusConflict, ErrorResponse{Detail: "Ingestion already in progress"})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "Failed to start ingestion", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}

	c.JSON(http.StatusOK, IngestStartResponse{Message: "Ingestion started", MaxPages: maxPages})
}

func (h *Handler) IngestStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.ingest.Status())
}

// Health reports model names and collection state. Vector store errors read as
// a missing collection rather than failing the check.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		EmbedModel: h.embedModel,
		ChatModel:  h.chatModel,
	}

	exists, err := h.index.CollectionExists(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "Collection check failed", "error", err)
	}
	resp.CollectionExists = exists
	if exists {
		count, err := h.index.Count(ctx)
		if err != nil {
			h.logger.WarnContext(ctx, "Chunk count failed", "error", err)
		}
		resp.ChunkCount = count
	}

	c.JSON(http.StatusOK, resp)
}
