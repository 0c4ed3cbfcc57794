package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP routes. A nil voice handler leaves /api/process-audio unregistered.
func NewRouter(query *QueryHandler, voice *VoiceHandler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/ask", query.Ask)
		api.POST("/analyze", query.Analyze)

		if voice != nil {
			api.POST("/process-audio", voice.ProcessAudio)
		}
	}

	return r
}
