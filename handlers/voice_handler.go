package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"cyberlegal-backend/models"
	"cyberlegal-backend/service"
	"cyberlegal-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultMaxAudioBytes bounds an uploaded recording
const DefaultMaxAudioBytes = 25 << 20

// VoiceProcessor runs the voice round trip
type VoiceProcessor interface {
	Process(ctx context.Context, req service.VoiceRequest) (*models.VoiceResult, error)
}

// VoiceHandler handles recorded-question uploads
type VoiceHandler struct {
	voice         VoiceProcessor
	archive       storage.Storage // nil disables archiving
	maxAudioBytes int64
	logger        *slog.Logger
}

// VoiceHandlerOption is a functional option for VoiceHandler
type VoiceHandlerOption func(*VoiceHandler)

// VoiceWithArchive stores every accepted recording in s
func VoiceWithArchive(s storage.Storage) VoiceHandlerOption {
	return func(h *VoiceHandler) {
		h.archive = s
	}
}

// VoiceWithMaxAudioBytes overrides DefaultMaxAudioBytes
func VoiceWithMaxAudioBytes(n int64) VoiceHandlerOption {
	return func(h *VoiceHandler) {
		h.maxAudioBytes = n
	}
}

// VoiceWithLogger sets the logger
func VoiceWithLogger(logger *slog.Logger) VoiceHandlerOption {
	return func(h *VoiceHandler) {
		h.logger = logger
	}
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(voice VoiceProcessor, opts ...VoiceHandlerOption) *VoiceHandler {
	h := &VoiceHandler{voice: voice, maxAudioBytes: DefaultMaxAudioBytes}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// ProcessAudio handles POST /api/process-audio
func (h *VoiceHandler) ProcessAudio(c *gin.Context) {
	language := strings.ToLower(strings.TrimSpace(c.PostForm("target_lang")))
	if language == "" {
		language = service.PivotLanguage
	}
	if !service.IsSupportedLanguage(language) {
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_LANGUAGE",
			fmt.Sprintf("Supported languages: %s", strings.Join(service.SupportedLanguages(), ", ")))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "Audio file is required")
		return
	}
	if fileHeader.Size > h.maxAudioBytes {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxAudioBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "FILE_OPEN_ERROR", "Could not read the uploaded file")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, h.maxAudioBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "FILE_OPEN_ERROR", "Could not read the uploaded file")
		return
	}
	if int64(len(audio)) > h.maxAudioBytes {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxAudioBytes))
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = storage.ContentType(fileHeader.Filename)
	}

	result, err := h.voice.Process(c.Request.Context(), service.VoiceRequest{
		Audio:    audio,
		MimeType: mimeType,
		Language: language,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	// Only recordings that produced an answer are kept
	h.archiveRecording(c, fileHeader.Filename, audio)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// archiveRecording stores the upload when archiving is enabled. Failures are logged only.
func (h *VoiceHandler) archiveRecording(c *gin.Context, filename string, audio []byte) {
	if h.archive == nil || len(audio) == 0 {
		return
	}

	name := "recording" + strings.ToLower(filepath.Ext(filename))
	path, err := h.archive.Upload(c.Request.Context(), uuid.New(), name, bytes.NewReader(audio))
	if err != nil {
		h.logger.Warn("failed to archive recording", "request_id", RequestIDFrom(c), "error", err)
		return
	}
	h.logger.Debug("recording archived", "request_id", RequestIDFrom(c), "path", path)
}
