package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCaseStoreUnavailable = errors.New("case store unavailable")
	ErrEmbeddingFailed      = errors.New("failed to generate embedding")
	ErrNoEmbeddingClient    = errors.New("embedding client not configured")
	ErrGenerationFailed     = errors.New("failed to generate content")
	ErrTranscriptionFailed  = errors.New("failed to transcribe audio")
	ErrModelUnavailable     = errors.New("transcription model unavailable")
	ErrTranslationFailed    = errors.New("translation failed")
	ErrSpeechFailed         = errors.New("speech synthesis failed")
	ErrTimeout              = errors.New("external call timed out")
	ErrInvalidTopK          = errors.New("top_k must be positive")
)

// classify wraps err with kind, or with ErrTimeout when the call ran out of time
func classify(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", kind, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}
