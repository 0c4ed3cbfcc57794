package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperModel transcribes audio through a whisper.cpp HTTP server
type WhisperModel struct {
	url    string
	client *http.Client
}

// NewWhisperLoader returns a loader that connects to the whisper server at url
// and confirms it is reachable before handing out the model
func NewWhisperLoader(url string, timeout time.Duration) ModelLoader {
	return func(ctx context.Context) (SpeechModel, error) {
		if timeout == 0 {
			timeout = 120 * time.Second
		}
		m := &WhisperModel{
			url:    strings.TrimRight(url, "/"),
			client: &http.Client{Timeout: timeout},
		}
		if err := m.ping(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (m *WhisperModel) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("whisper server unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("whisper server unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Transcribe posts audio to the server's /inference endpoint
func (m *WhisperModel) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "recording"+audioExtension(mimeType))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	fields := map[string]string{
		"response_format": "json",
		"temperature":     "0.0",
	}
	if language != "" {
		fields["language"] = language
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("whisper error: %d - %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var out struct {
		Text  string `json:"text"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("whisper error: %s", out.Error)
	}
	return out.Text, nil
}

func audioExtension(mimeType string) string {
	switch normalizeAudioMIME(mimeType) {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/flac":
		return ".flac"
	default:
		return ".webm"
	}
}
