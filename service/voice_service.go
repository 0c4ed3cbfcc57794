package service

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"cyberlegal-backend/models"
)

// Answerer runs the text pipeline for a pivot-language question
type Answerer interface {
	Answer(ctx context.Context, question string, topK int) (*models.AnswerResult, error)
}

// AudioTranscriber turns recorded speech into text
type AudioTranscriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, languageHint string) (string, error)
}

// TextTranslator translates between language codes
type TextTranslator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// SpeechRenderer turns text into encoded audio
type SpeechRenderer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

// VoiceRequest is one recorded question
type VoiceRequest struct {
	Audio    []byte
	MimeType string
	Language string // language name, e.g. "hindi"
	TopK     int
}

// VoiceService orchestrates the voice round trip:
// resolve language → transcribe → translate to pivot → answer → translate back → speak
type VoiceService struct {
	transcriber AudioTranscriber
	translator  TextTranslator
	answerer    Answerer
	speech      SpeechRenderer
	defaultTopK int
	logger      *slog.Logger
}

// VoiceServiceOption is a functional option for VoiceService
type VoiceServiceOption func(*VoiceService)

// VoiceWithTranscriber sets the transcriber
func VoiceWithTranscriber(t AudioTranscriber) VoiceServiceOption {
	return func(s *VoiceService) {
		s.transcriber = t
	}
}

// VoiceWithTranslator sets the translator
func VoiceWithTranslator(t TextTranslator) VoiceServiceOption {
	return func(s *VoiceService) {
		s.translator = t
	}
}

// VoiceWithAnswerer sets the text pipeline
func VoiceWithAnswerer(a Answerer) VoiceServiceOption {
	return func(s *VoiceService) {
		s.answerer = a
	}
}

// VoiceWithSpeech sets the speech synthesizer
func VoiceWithSpeech(r SpeechRenderer) VoiceServiceOption {
	return func(s *VoiceService) {
		s.speech = r
	}
}

// VoiceWithDefaultTopK sets the retrieval depth used when a request does not specify one
func VoiceWithDefaultTopK(k int) VoiceServiceOption {
	return func(s *VoiceService) {
		s.defaultTopK = k
	}
}

// VoiceWithLogger sets the logger
func VoiceWithLogger(logger *slog.Logger) VoiceServiceOption {
	return func(s *VoiceService) {
		s.logger = logger
	}
}

// NewVoiceService creates a new voice service
func NewVoiceService(opts ...VoiceServiceOption) *VoiceService {
	s := &VoiceService{defaultTopK: 5}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Each stage consumes the previous stage's output type, so the order is fixed at compile time.

type resolvedLanguage struct {
	pack     models.LanguagePack
	pivot    models.LanguagePack
	degraded []models.VoiceStage
}

type nativeQuery struct {
	resolvedLanguage
	text string
}

type pivotQuery struct {
	nativeQuery
	text string
}

type pivotAnswer struct {
	pivotQuery
	result *models.AnswerResult
}

type nativeAnswer struct {
	pivotAnswer
	text string
}

// Process runs the full voice pipeline. Only transcription and text-pipeline
// failures are returned as errors; translation and speech fall back to the
// original text and empty audio, recorded in DegradedStages.
func (s *VoiceService) Process(ctx context.Context, req VoiceRequest) (*models.VoiceResult, error) {
	if s.transcriber == nil || s.answerer == nil {
		return nil, errors.New("voice pipeline not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lang := s.resolveLanguage(req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, err := s.transcribe(ctx, req, lang)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pivot := s.translateQuery(ctx, query)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer, err := s.answer(ctx, req, pivot)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	native := s.translateAnswer(ctx, answer)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.synthesize(ctx, native), nil
}

func (s *VoiceService) resolveLanguage(req VoiceRequest) resolvedLanguage {
	pack := ResolveLanguage(req.Language)
	s.logger.Debug("resolved voice language",
		"stage", models.StageResolveLanguage, "requested", req.Language, "language", pack.Name)
	return resolvedLanguage{pack: pack, pivot: PivotPack()}
}

func (s *VoiceService) transcribe(ctx context.Context, req VoiceRequest, lang resolvedLanguage) (nativeQuery, error) {
	text, err := s.transcriber.Transcribe(ctx, req.Audio, req.MimeType, lang.pack.TranscriptionCode)
	if err != nil {
		s.logger.Error("voice query failed",
			"stage", models.StageTranscribe, "language", lang.pack.Name, "error", err)
		return nativeQuery{}, err
	}
	s.logger.Debug("transcribed voice query",
		"stage", models.StageTranscribe, "language", lang.pack.Name, "chars", len(text))
	return nativeQuery{resolvedLanguage: lang, text: text}, nil
}

func (s *VoiceService) translateQuery(ctx context.Context, q nativeQuery) pivotQuery {
	out := pivotQuery{nativeQuery: q, text: q.text}
	if q.pack.TranslationCode == q.pivot.TranslationCode {
		return out
	}

	translated, ok := s.bestEffortTranslate(ctx, q.text, q.pack.TranslationCode, q.pivot.TranslationCode, models.StageTranslateQuery)
	out.text = translated
	if !ok {
		out.degraded = append(out.degraded, models.StageTranslateQuery)
	}
	return out
}

func (s *VoiceService) answer(ctx context.Context, req VoiceRequest, q pivotQuery) (pivotAnswer, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}
	result, err := s.answerer.Answer(ctx, q.text, topK)
	if err != nil {
		s.logger.Error("voice query failed",
			"stage", models.StageTextPipeline, "top_k", topK, "error", err)
		return pivotAnswer{}, err
	}
	return pivotAnswer{pivotQuery: q, result: result}, nil
}

func (s *VoiceService) translateAnswer(ctx context.Context, a pivotAnswer) nativeAnswer {
	out := nativeAnswer{pivotAnswer: a, text: a.result.AnswerText}
	if a.pack.TranslationCode == a.pivot.TranslationCode {
		return out
	}

	translated, ok := s.bestEffortTranslate(ctx, a.result.AnswerText, a.pivot.TranslationCode, a.pack.TranslationCode, models.StageTranslateAnswer)
	out.text = translated
	if !ok {
		out.degraded = append(out.degraded, models.StageTranslateAnswer)
	}
	return out
}

func (s *VoiceService) synthesize(ctx context.Context, a nativeAnswer) *models.VoiceResult {
	result := &models.VoiceResult{
		QueryTextNative:    a.nativeQuery.text,
		ResponseTextNative: a.text,
		CaseSummaries:      a.result.CaseSummaries,
	}
	if result.CaseSummaries == nil {
		result.CaseSummaries = []models.CaseSummary{}
	}

	degraded := a.degraded
	if s.speech == nil {
		degraded = append(degraded, models.StageSynthesize)
	} else if audio, err := s.speech.Synthesize(ctx, a.text, a.pack.SynthesisCode); err != nil {
		s.logger.Warn("speech synthesis failed, returning no audio",
			"stage", models.StageSynthesize, "language", a.pack.Name, "error", err)
		degraded = append(degraded, models.StageSynthesize)
	} else {
		result.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
	}

	result.DegradedStages = degraded
	return result
}

// bestEffortTranslate substitutes the original text when translation fails
func (s *VoiceService) bestEffortTranslate(ctx context.Context, text, source, target string, stage models.VoiceStage) (string, bool) {
	if s.translator == nil {
		s.logger.Warn("no translator configured, keeping original text", "stage", stage)
		return text, false
	}
	translated, err := s.translator.Translate(ctx, text, source, target)
	if err != nil {
		s.logger.Warn("translation failed, keeping original text",
			"stage", stage, "source", source, "target", target, "error", err)
		return text, false
	}
	return translated, true
}
