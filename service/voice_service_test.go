package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"testing"

	"cyberlegal-backend/models"

	"github.com/stretchr/testify/require"
)

type stubTranscriber struct {
	text  string
	err   error
	hints []string
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType, languageHint string) (string, error) {
	s.hints = append(s.hints, languageHint)
	return s.text, s.err
}

type stubAnswerer struct {
	result    *models.AnswerResult
	err       error
	questions []string
	topKs     []int
}

func (s *stubAnswerer) Answer(ctx context.Context, question string, topK int) (*models.AnswerResult, error) {
	s.questions = append(s.questions, question)
	s.topKs = append(s.topKs, topK)
	return s.result, s.err
}

func answered(text string) *stubAnswerer {
	return &stubAnswerer{result: &models.AnswerResult{
		AnswerText:    text,
		CaseSummaries: []models.CaseSummary{{Title: "Bank Fraud", Year: 2022}},
	}}
}

func TestVoiceService_EnglishPassThrough(t *testing.T) {
	translator := &fakeTranslator{}
	speech := &fakeSpeechClient{audio: []byte("mp3")}
	answerer := answered("File a complaint.")
	transcriber := &stubTranscriber{text: "my account was hacked"}

	svc := NewVoiceService(
		VoiceWithTranscriber(transcriber),
		VoiceWithTranslator(translator),
		VoiceWithAnswerer(answerer),
		VoiceWithSpeech(NewSpeechSynthesizer(speech, 0)),
	)

	result, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "english"})
	require.NoError(t, err)
	require.Empty(t, translator.calls)
	require.Equal(t, []string{"en"}, transcriber.hints)
	require.Equal(t, []string{"my account was hacked"}, answerer.questions)
	require.Equal(t, []int{5}, answerer.topKs)

	require.Equal(t, "my account was hacked", result.QueryTextNative)
	require.Equal(t, "File a complaint.", result.ResponseTextNative)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3")), result.AudioBase64)
	require.Equal(t, []string{"en-IN"}, speech.codes)
	require.Len(t, result.CaseSummaries, 1)
	require.Empty(t, result.DegradedStages)
}

func TestVoiceService_HindiRoundTrip(t *testing.T) {
	translator := &fakeTranslator{}
	speech := &fakeSpeechClient{audio: []byte("mp3")}
	answerer := answered("File a complaint.")

	svc := NewVoiceService(
		VoiceWithTranscriber(&stubTranscriber{text: "मेरा खाता हैक हो गया"}),
		VoiceWithTranslator(translator),
		VoiceWithAnswerer(answerer),
		VoiceWithSpeech(NewSpeechSynthesizer(speech, 0)),
		VoiceWithDefaultTopK(3),
	)

	result, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "Hindi"})
	require.NoError(t, err)

	require.Equal(t, []translateCall{
		{text: "मेरा खाता हैक हो गया", source: "hi", target: "en"},
		{text: "File a complaint.", source: "en", target: "hi"},
	}, translator.calls)
	require.Equal(t, []string{"[en] मेरा खाता हैक हो गया"}, answerer.questions)
	require.Equal(t, []int{3}, answerer.topKs)

	require.Equal(t, "मेरा खाता हैक हो गया", result.QueryTextNative)
	require.Equal(t, "[hi] File a complaint.", result.ResponseTextNative)
	require.Equal(t, []string{"hi-IN"}, speech.codes)
	require.Equal(t, []string{"[hi] File a complaint."}, speech.texts)
}

func TestVoiceService_UnknownLanguageUsesPivot(t *testing.T) {
	translator := &fakeTranslator{}
	transcriber := &stubTranscriber{text: "hello"}
	svc := NewVoiceService(
		VoiceWithTranscriber(transcriber),
		VoiceWithTranslator(translator),
		VoiceWithAnswerer(answered("ok")),
	)

	_, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "klingon"})
	require.NoError(t, err)
	require.Equal(t, []string{"en"}, transcriber.hints)
	require.Empty(t, translator.calls)
}

func TestVoiceService_TranslationFailureDegrades(t *testing.T) {
	answerer := answered("File a complaint.")
	svc := NewVoiceService(
		VoiceWithTranscriber(&stubTranscriber{text: "என் கணக்கு"}),
		VoiceWithTranslator(&fakeTranslator{err: ErrTranslationFailed}),
		VoiceWithAnswerer(answerer),
		VoiceWithSpeech(NewSpeechSynthesizer(&fakeSpeechClient{audio: []byte("mp3")}, 0)),
	)

	result, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "tamil"})
	require.NoError(t, err)
	require.Equal(t, []string{"என் கணக்கு"}, answerer.questions)
	require.Equal(t, "File a complaint.", result.ResponseTextNative)
	require.Equal(t, []models.VoiceStage{models.StageTranslateQuery, models.StageTranslateAnswer}, result.DegradedStages)
	require.NotEmpty(t, result.AudioBase64)
}

func TestVoiceService_SpeechFailureDegrades(t *testing.T) {
	svc := NewVoiceService(
		VoiceWithTranscriber(&stubTranscriber{text: "hello"}),
		VoiceWithAnswerer(answered("ok")),
		VoiceWithSpeech(NewSpeechSynthesizer(&fakeSpeechClient{err: errors.New("quota")}, 0)),
	)

	result, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "english"})
	require.NoError(t, err)
	require.Empty(t, result.AudioBase64)
	require.Equal(t, "ok", result.ResponseTextNative)
	require.Equal(t, []models.VoiceStage{models.StageSynthesize}, result.DegradedStages)
}

func TestVoiceService_NoSpeechConfigured(t *testing.T) {
	answerer := &stubAnswerer{result: &models.AnswerResult{AnswerText: NoEvidenceAnswer}}
	svc := NewVoiceService(
		VoiceWithTranscriber(&stubTranscriber{text: "hello"}),
		VoiceWithAnswerer(answerer),
	)

	result, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a")})
	require.NoError(t, err)
	require.NotNil(t, result.CaseSummaries)
	require.Empty(t, result.CaseSummaries)
	require.Equal(t, []models.VoiceStage{models.StageSynthesize}, result.DegradedStages)
}

func TestVoiceService_FatalErrors(t *testing.T) {
	t.Run("transcription", func(t *testing.T) {
		answerer := answered("ok")
		svc := NewVoiceService(
			VoiceWithTranscriber(&stubTranscriber{err: ErrTranscriptionFailed}),
			VoiceWithAnswerer(answerer),
		)
		_, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "hindi"})
		require.ErrorIs(t, err, ErrTranscriptionFailed)
		require.Empty(t, answerer.questions)
	})

	t.Run("text pipeline", func(t *testing.T) {
		svc := NewVoiceService(
			VoiceWithTranscriber(&stubTranscriber{text: "hello"}),
			VoiceWithAnswerer(&stubAnswerer{err: ErrCaseStoreUnavailable}),
		)
		_, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a")})
		require.ErrorIs(t, err, ErrCaseStoreUnavailable)
	})

	t.Run("cancelled", func(t *testing.T) {
		transcriber := &stubTranscriber{text: "hello"}
		svc := NewVoiceService(VoiceWithTranscriber(transcriber), VoiceWithAnswerer(answered("ok")))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Process(ctx, VoiceRequest{Audio: []byte("a")})
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, transcriber.hints)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := NewVoiceService().Process(context.Background(), VoiceRequest{})
		require.Error(t, err)
	})
}

func TestVoiceService_LogsFailedStage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc := NewVoiceService(
		VoiceWithTranscriber(&stubTranscriber{err: ErrTranscriptionFailed}),
		VoiceWithAnswerer(answered("ok")),
		VoiceWithLogger(logger),
	)
	_, err := svc.Process(context.Background(), VoiceRequest{Audio: []byte("a"), Language: "tamil"})
	require.Error(t, err)
	require.Contains(t, buf.String(), "stage=resolve_language")
	require.Contains(t, buf.String(), "stage=transcribe")

	buf.Reset()
	svc = NewVoiceService(
		VoiceWithTranscriber(&stubTranscriber{text: "hello"}),
		VoiceWithAnswerer(&stubAnswerer{err: ErrCaseStoreUnavailable}),
		VoiceWithLogger(logger),
	)
	_, err = svc.Process(context.Background(), VoiceRequest{Audio: []byte("a")})
	require.Error(t, err)
	require.Contains(t, buf.String(), "stage=text_pipeline")
}
