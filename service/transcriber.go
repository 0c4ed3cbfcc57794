package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
)

// SpeechModel recognizes speech in an audio payload. An empty language lets the
// model detect the language itself.
type SpeechModel interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error)
}

// ModelLoader constructs a SpeechModel. Construction is expensive and happens once per process.
type ModelLoader func(ctx context.Context) (SpeechModel, error)

// ModelManager owns the process-wide transcription model and builds it on first use.
// Concurrent first callers block until the single construction finishes and all
// observe the same instance. A failed construction is not cached.
type ModelManager struct {
	mu     sync.Mutex
	loader ModelLoader
	model  SpeechModel
	loads  int
	logger *slog.Logger
}

// ModelManagerOption is a functional option for ModelManager
type ModelManagerOption func(*ModelManager)

// ManagerWithLogger sets the logger
func ManagerWithLogger(logger *slog.Logger) ModelManagerOption {
	return func(m *ModelManager) {
		m.logger = logger
	}
}

// NewModelManager creates a manager that builds its model with loader
func NewModelManager(loader ModelLoader, opts ...ModelManagerOption) *ModelManager {
	m := &ModelManager{loader: loader}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Model returns the shared model, constructing it if needed
func (m *ModelManager) Model(ctx context.Context) (SpeechModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.model != nil {
		return m.model, nil
	}
	if m.loader == nil {
		return nil, fmt.Errorf("%w: no loader configured", ErrModelUnavailable)
	}

	m.loads++
	start := time.Now()
	model, err := m.loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: loader returned no model", ErrModelUnavailable)
	}
	m.logger.Info("transcription model loaded", "duration", time.Since(start))

	m.model = model
	return model, nil
}

// Loads reports how many constructions have been attempted
func (m *ModelManager) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// SupportedTranscriptionCodes are the language hints forwarded to the model
var SupportedTranscriptionCodes = map[string]bool{
	"en": true,
	"hi": true,
	"kn": true,
	"ta": true,
}

// Transcriber converts recorded speech to text using the shared model
type Transcriber struct {
	models  *ModelManager
	timeout time.Duration
}

// NewTranscriber creates a transcriber backed by models
func NewTranscriber(models *ModelManager, timeout time.Duration) *Transcriber {
	return &Transcriber{models: models, timeout: timeout}
}

// Transcribe returns the trimmed transcript of audio. languageHint is used only
// when it is a supported transcription code. Empty audio yields "".
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType, languageHint string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	model, err := t.models.Model(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	if !SupportedTranscriptionCodes[languageHint] {
		languageHint = ""
	}

	callCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	text, err := model.Transcribe(callCtx, audio, mimeType, languageHint)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", classify(ErrTranscriptionFailed, err)
	}
	return strings.TrimSpace(text), nil
}

// geminiSpeechModel transcribes audio with a multimodal Gemini model
type geminiSpeechModel struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiSpeechLoader returns a loader that opens a dedicated Gemini client for transcription
func NewGeminiSpeechLoader(apiKey, model string, logger *slog.Logger) ModelLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) (SpeechModel, error) {
		if apiKey == "" {
			return nil, errors.New("GEMINI_API_KEY not set")
		}
		client, err := NewGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return &geminiSpeechModel{client: client, model: model, logger: logger}, nil
	}
}

func (g *geminiSpeechModel) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: normalizeAudioMIME(mimeType), Data: audio},
		genai.Text(transcriptionPrompt(language)),
	)
	if err != nil {
		return "", err
	}

	text, err := responseText(resp, g.logger)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == noSpeechMarker {
		return "", nil
	}
	return text, nil
}

const noSpeechMarker = "[no speech]"

func transcriptionPrompt(language string) string {
	prompt := "Transcribe the speech in this audio verbatim. Return only the transcript with no commentary. " +
		"If the recording contains no speech, return exactly " + noSpeechMarker + "."
	if language != "" {
		prompt += " The speaker uses the language with ISO 639-1 code \"" + language + "\"; transcribe in that language and script."
	}
	return prompt
}

func normalizeAudioMIME(mimeType string) string {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if mimeType == "" || mimeType == "application/octet-stream" {
		return "audio/webm"
	}
	return mimeType
}
