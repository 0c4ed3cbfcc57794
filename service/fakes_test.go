package service

import (
	"context"
	"sync"

	"cyberlegal-backend/models"
)

type fakeStore struct {
	result *models.CaseQueryResult
	err    error
	block  bool

	mu       sync.Mutex
	texts    []string
	nResults int
}

func (f *fakeStore) Query(ctx context.Context, texts []string, nResults int) (*models.CaseQueryResult, error) {
	f.mu.Lock()
	f.texts = texts
	f.nResults = nResults
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

// storeResult builds a single-row query result from parallel slices
func storeResult(ids []string, docs []string, metas []map[string]any, dists []float64) *models.CaseQueryResult {
	return &models.CaseQueryResult{
		IDs:       [][]string{ids},
		Documents: [][]string{docs},
		Metadatas: [][]map[string]any{metas},
		Distances: [][]float64{dists},
	}
}

type fakeCompleter struct {
	answer string
	err    error
	calls  []CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.answer, f.err
}

type fakeSpeechModel struct {
	text      string
	err       error
	languages []string
}

func (f *fakeSpeechModel) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	f.languages = append(f.languages, language)
	return f.text, f.err
}

type translateCall struct {
	text, source, target string
}

type fakeTranslator struct {
	prefix string
	err    error
	calls  []translateCall
}

func (f *fakeTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.calls = append(f.calls, translateCall{text: text, source: source, target: target})
	if f.err != nil {
		return "", f.err
	}
	return "[" + target + "] " + text, nil
}

type fakeSpeechClient struct {
	audio []byte
	err   error
	texts []string
	codes []string
}

func (f *fakeSpeechClient) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	f.texts = append(f.texts, text)
	f.codes = append(f.codes, languageCode)
	return f.audio, f.err
}
