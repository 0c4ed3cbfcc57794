package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// maxEmbedBatch is the largest batch the embedding endpoint accepts
const maxEmbedBatch = 100

// NewGeminiClient creates a Gemini client. An empty apiKey returns (nil, nil)
// so callers can run in degraded mode.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiCompleter implements Completer on the Gemini generateContent API
type GeminiCompleter struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiCompleter creates a completer for the named model
func NewGeminiCompleter(client *genai.Client, model string, logger *slog.Logger) *GeminiCompleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiCompleter{client: client, model: model, logger: logger}
}

// Complete sends one system + user exchange and returns the generated text
func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserInstruction))
	if err != nil {
		return "", err
	}
	return responseText(resp, g.logger)
}

// responseText concatenates the text parts of every candidate
func responseText(resp *genai.GenerateContentResponse, logger *slog.Logger) (string, error) {
	if resp == nil {
		return "", errors.New("API returned no response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("API blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("API returned no candidates")
	}

	var text strings.Builder
	for i, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
			logger.Warn("candidate finished early", "candidate", i, "finish_reason", candidate.FinishReason.String())
		}
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			return "", fmt.Errorf("API candidate has no parts (finish reason: %s)", candidate.FinishReason)
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	if text.Len() == 0 {
		return "", errors.New("API returned empty content")
	}
	return text.String(), nil
}

// GeminiEmbedder produces normalized retrieval embeddings with a Gemini embedding model
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates an embedder whose vectors must have the given dimensions
func NewGeminiEmbedder(client *genai.Client, model string, dimensions int) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}
}

// Dimensions returns the expected vector length
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// EmbedQuery embeds a search query
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, ErrNoEmbeddingClient)
	}

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(ErrEmbeddingFailed, err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingFailed)
	}
	return e.checked(res.Embedding.Values)
}

// EmbedDocuments embeds case documents in batches, preserving order
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, ErrNoEmbeddingClient)
	}

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		batch := em.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, classify(ErrEmbeddingFailed, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d documents", ErrEmbeddingFailed, len(res.Embeddings), end-start)
		}
		for _, emb := range res.Embeddings {
			v, err := e.checked(emb.Values)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, v)
		}
	}
	return vectors, nil
}

func (e *GeminiEmbedder) checked(values []float32) ([]float32, error) {
	if e.dimensions > 0 && len(values) != e.dimensions {
		return nil, fmt.Errorf("%w: embedding must be %d dimensions, got %d", ErrEmbeddingFailed, e.dimensions, len(values))
	}
	return normalize(values), nil
}

// normalize scales v to unit length in place
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}
