package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"cyberlegal-backend/models"

	"github.com/gin-gonic/gin"
)

// MaxTopK bounds top_k / n_results on the text endpoints
const MaxTopK = 20

// Answerer runs the text pipeline
type Answerer interface {
	Answer(ctx context.Context, question string, topK int) (*models.AnswerResult, error)
}

// QueryHandler handles the text question endpoints
type QueryHandler struct {
	answerer    Answerer
	defaultTopK int
	logger      *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(answerer Answerer, defaultTopK int, logger *slog.Logger) *QueryHandler {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryHandler{answerer: answerer, defaultTopK: defaultTopK, logger: logger}
}

// AskRequest represents the request body for POST /api/ask
type AskRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k"`
}

// AskResponse is the data returned by POST /api/ask
type AskResponse struct {
	Answer  string               `json:"answer"`
	Sources []models.CaseSummary `json:"sources"`
}

// AnalyzeRequest represents the request body for POST /api/analyze
type AnalyzeRequest struct {
	Query    string `json:"query"`
	NResults *int   `json:"n_results"`
}

// Ask handles POST /api/ask
func (h *QueryHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON")
		return
	}

	question, topK, ok := h.validate(c, req.Question, req.TopK, h.defaultTopK)
	if !ok {
		return
	}

	result, err := h.answerer.Answer(c.Request.Context(), question, topK)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": AskResponse{
			Answer:  result.AnswerText,
			Sources: nonNil(result.CaseSummaries),
		},
	})
}

// Analyze handles POST /api/analyze
func (h *QueryHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON")
		return
	}

	query, nResults, ok := h.validate(c, req.Query, req.NResults, 3)
	if !ok {
		return
	}

	result, err := h.answerer.Answer(c.Request.Context(), query, nResults)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	result.CaseSummaries = nonNil(result.CaseSummaries)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

func (h *QueryHandler) validate(c *gin.Context, text string, k *int, fallback int) (string, int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Question must not be empty")
		return "", 0, false
	}

	topK := fallback
	if k != nil {
		topK = *k
	}
	if topK < 1 || topK > MaxTopK {
		respondError(c, http.StatusBadRequest, "INVALID_TOP_K", fmt.Sprintf("top_k must be between 1 and %d", MaxTopK))
		return "", 0, false
	}
	return text, topK, true
}

func nonNil(summaries []models.CaseSummary) []models.CaseSummary {
	if summaries == nil {
		return []models.CaseSummary{}
	}
	return summaries
}
