package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cyberlegal-backend/models"
)

const (
	// DegradedModeAnswer is returned when no language model is configured
	DegradedModeAnswer = "⚠️ The legal assistant is running without a language model (GEMINI_API_KEY not set). No guidance could be generated."
	// NoEvidenceAnswer is returned when retrieval finds no matching cases
	NoEvidenceAnswer = "No relevant cases found for this query."

	DefaultTemperature     float32 = 0.2
	DefaultMaxOutputTokens int32   = 700
)

// CompletionRequest is a single system + user prompt exchange
type CompletionRequest struct {
	SystemInstruction string
	UserInstruction   string
	Temperature       float32
	MaxOutputTokens   int32
}

// Completer is a hosted language-model completion service
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// AnswerService runs the text pipeline: retrieve, format evidence, synthesize
type AnswerService struct {
	retriever       *Retriever
	formatter       *EvidenceFormatter
	completer       Completer
	temperature     float32
	maxOutputTokens int32
	timeout         time.Duration
	logger          *slog.Logger
}

// AnswerServiceOption is a functional option for AnswerService
type AnswerServiceOption func(*AnswerService)

// AnswerWithRetriever sets the case retriever
func AnswerWithRetriever(r *Retriever) AnswerServiceOption {
	return func(s *AnswerService) {
		s.retriever = r
	}
}

// AnswerWithFormatter sets the evidence formatter
func AnswerWithFormatter(f *EvidenceFormatter) AnswerServiceOption {
	return func(s *AnswerService) {
		s.formatter = f
	}
}

// AnswerWithCompleter sets the language model. A nil completer leaves the service in degraded mode.
func AnswerWithCompleter(c Completer) AnswerServiceOption {
	return func(s *AnswerService) {
		s.completer = c
	}
}

// AnswerWithGeneration sets the sampling temperature and output token budget
func AnswerWithGeneration(temperature float32, maxOutputTokens int32) AnswerServiceOption {
	return func(s *AnswerService) {
		s.temperature = temperature
		s.maxOutputTokens = maxOutputTokens
	}
}

// AnswerWithTimeout bounds each completion call
func AnswerWithTimeout(timeout time.Duration) AnswerServiceOption {
	return func(s *AnswerService) {
		s.timeout = timeout
	}
}

// AnswerWithLogger sets the logger
func AnswerWithLogger(logger *slog.Logger) AnswerServiceOption {
	return func(s *AnswerService) {
		s.logger = logger
	}
}

// NewAnswerService creates a new answer service
func NewAnswerService(opts ...AnswerServiceOption) *AnswerService {
	s := &AnswerService{
		formatter:       NewEvidenceFormatter(DefaultSummaryMaxChars),
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Degraded reports whether the service has no language model
func (s *AnswerService) Degraded() bool {
	return s.completer == nil
}

// Answer retrieves the topK most similar cases and synthesizes guidance from them
func (s *AnswerService) Answer(ctx context.Context, question string, topK int) (*models.AnswerResult, error) {
	if s.retriever == nil {
		return nil, errors.New("retriever not set")
	}

	items, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		// Without any credentials there are no embeddings either; degraded mode still answers
		if s.Degraded() && errors.Is(err, ErrNoEmbeddingClient) {
			s.logger.Warn("no embedding client and no language model, returning degraded answer")
			return &models.AnswerResult{
				AnswerText:    DegradedModeAnswer,
				CaseSummaries: []models.CaseSummary{},
			}, nil
		}
		return nil, err
	}

	if len(items) == 0 {
		s.logger.Warn("no cases retrieved", "top_k", topK)
		return &models.AnswerResult{
			AnswerText:    NoEvidenceAnswer,
			CaseSummaries: []models.CaseSummary{},
		}, nil
	}

	if s.Degraded() {
		s.logger.Warn("language model not configured, returning degraded answer", "retrieved", len(items))
		return &models.AnswerResult{
			AnswerText:     DegradedModeAnswer,
			CaseSummaries:  []models.CaseSummary{},
			RetrievedCount: len(items),
		}, nil
	}

	evidence, summaries := s.formatter.Format(items)

	answer, err := s.Synthesize(ctx, question, evidence)
	if err != nil {
		return nil, err
	}

	return &models.AnswerResult{
		AnswerText:     answer,
		CaseSummaries:  summaries,
		RetrievedCount: len(items),
	}, nil
}

// Synthesize asks the language model to answer question from the evidence block.
// The generated text is returned unmodified.
func (s *AnswerService) Synthesize(ctx context.Context, question, evidence string) (string, error) {
	if s.Degraded() {
		return DegradedModeAnswer, nil
	}

	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.completer.Complete(callCtx, CompletionRequest{
		SystemInstruction: systemPrompt,
		UserInstruction:   buildUserPrompt(question, evidence),
		Temperature:       s.temperature,
		MaxOutputTokens:   s.maxOutputTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		s.logger.Error("answer generation failed", "error", err)
		return "", classify(ErrGenerationFailed, err)
	}

	return answer, nil
}
