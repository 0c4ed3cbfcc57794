package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"cyberlegal-backend/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps a fatal pipeline error to a status and a generic message.
// The underlying error is logged, never returned to the caller.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	logger.Error("query failed", "request_id", RequestIDFrom(c), "path", c.FullPath(), "error", err)

	switch {
	case errors.Is(err, service.ErrTimeout):
		respondError(c, http.StatusGatewayTimeout, "TIMEOUT", "The request took too long. Please try again.")
	case errors.Is(err, service.ErrCaseStoreUnavailable):
		respondError(c, http.StatusServiceUnavailable, "CASE_STORE_UNAVAILABLE", "The case database is currently unavailable.")
	case errors.Is(err, service.ErrTranscriptionFailed):
		respondError(c, http.StatusUnprocessableEntity, "TRANSCRIPTION_FAILED", "The recording could not be transcribed.")
	default:
		respondError(c, http.StatusInternalServerError, "QUERY_FAILED", "Could not process the query.")
	}
}
