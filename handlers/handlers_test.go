package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cyberlegal-backend/models"
	"cyberlegal-backend/service"
	"cyberlegal-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

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

type stubVoice struct {
	result   *models.VoiceResult
	err      error
	requests []service.VoiceRequest
}

func (s *stubVoice) Process(ctx context.Context, req service.VoiceRequest) (*models.VoiceResult, error) {
	s.requests = append(s.requests, req)
	return s.result, s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(answerer Answerer, voice VoiceProcessor, opts ...VoiceHandlerOption) *gin.Engine {
	var vh *VoiceHandler
	if voice != nil {
		vh = NewVoiceHandler(voice, append(opts, VoiceWithLogger(quietLogger))...)
	}
	return NewRouter(NewQueryHandler(answerer, 5, quietLogger), vh, quietLogger)
}

func doJSON(t *testing.T, r http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubAnswerer{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	_, err := uuid.Parse(w.Header().Get(requestIDHeader))
	require.NoError(t, err)
}

func TestAsk(t *testing.T) {
	answerer := &stubAnswerer{result: &models.AnswerResult{
		AnswerText:    "Report it to the cyber cell.",
		CaseSummaries: []models.CaseSummary{{Title: "Bank Fraud", Year: 2022, Summary: "s", FullText: "f"}},
	}}
	r := newTestRouter(answerer, nil)

	w, env := doJSON(t, r, "/api/ask", `{"question":"  my UPI was hacked  "}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var data AskResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, "Report it to the cyber cell.", data.Answer)
	require.Len(t, data.Sources, 1)
	require.Equal(t, []string{"my UPI was hacked"}, answerer.questions)
	require.Equal(t, []int{5}, answerer.topKs)
}

func TestAsk_Validation(t *testing.T) {
	r := newTestRouter(&stubAnswerer{}, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `question=x`, "INVALID_REQUEST"},
		{"empty question", `{"question":"  "}`, "INVALID_REQUEST"},
		{"top k zero", `{"question":"x","top_k":0}`, "INVALID_TOP_K"},
		{"top k too large", `{"question":"x","top_k":21}`, "INVALID_TOP_K"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, "/api/ask", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.False(t, env.Success)
			require.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestAsk_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: dial tcp: refused", service.ErrCaseStoreUnavailable), http.StatusServiceUnavailable, "CASE_STORE_UNAVAILABLE"},
		{fmt.Errorf("%w: %w", service.ErrGenerationFailed, service.ErrTimeout), http.StatusGatewayTimeout, "TIMEOUT"},
		{fmt.Errorf("%w: quota", service.ErrGenerationFailed), http.StatusInternalServerError, "QUERY_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			r := newTestRouter(&stubAnswerer{err: tt.err}, nil)
			w, env := doJSON(t, r, "/api/ask", `{"question":"x"}`)
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.code, env.Error.Code)
			require.NotContains(t, env.Error.Message, "quota")
			require.NotContains(t, env.Error.Message, "refused")
		})
	}
}

func TestAnalyze(t *testing.T) {
	answerer := &stubAnswerer{result: &models.AnswerResult{AnswerText: service.NoEvidenceAnswer}}
	r := newTestRouter(answerer, nil)

	w, env := doJSON(t, r, "/api/analyze", `{"query":"sextortion"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"answer":"No relevant cases found for this query.","case_summaries":[]}`, string(env.Data))
	require.Equal(t, []int{3}, answerer.topKs)
}

func multipartBody(t *testing.T, fields map[string]string, filename string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func doUpload(t *testing.T, r http.Handler, fields map[string]string, filename string, audio []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	body, contentType := multipartBody(t, fields, filename, audio)
	req := httptest.NewRequest(http.MethodPost, "/api/process-audio", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestProcessAudio(t *testing.T) {
	voice := &stubVoice{result: &models.VoiceResult{
		QueryTextNative:    "मेरा खाता हैक हो गया",
		ResponseTextNative: "शिकायत दर्ज करें",
		AudioBase64:        "bXAz",
		CaseSummaries:      []models.CaseSummary{},
	}}
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	r := newTestRouter(&stubAnswerer{}, voice, VoiceWithArchive(archive))

	w, env := doUpload(t, r, map[string]string{"target_lang": "Hindi"}, "question.wav", []byte("RIFF"))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var data models.VoiceResult
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, "शिकायत दर्ज करें", data.ResponseTextNative)
	require.Equal(t, "bXAz", data.AudioBase64)

	require.Len(t, voice.requests, 1)
	require.Equal(t, "hindi", voice.requests[0].Language)
	require.Equal(t, []byte("RIFF"), voice.requests[0].Audio)
	require.Equal(t, "audio/wav", voice.requests[0].MimeType)
}

func TestProcessAudio_DefaultsToEnglish(t *testing.T) {
	voice := &stubVoice{result: &models.VoiceResult{CaseSummaries: []models.CaseSummary{}}}
	r := newTestRouter(&stubAnswerer{}, voice)

	w, _ := doUpload(t, r, nil, "q.webm", []byte("x"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, service.PivotLanguage, voice.requests[0].Language)
}

func TestProcessAudio_Validation(t *testing.T) {
	voice := &stubVoice{}

	t.Run("unsupported language", func(t *testing.T) {
		w, env := doUpload(t, newTestRouter(&stubAnswerer{}, voice), map[string]string{"target_lang": "klingon"}, "q.wav", []byte("x"))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "UNSUPPORTED_LANGUAGE", env.Error.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		w, env := doUpload(t, newTestRouter(&stubAnswerer{}, voice), map[string]string{"target_lang": "tamil"}, "", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "MISSING_FILE", env.Error.Code)
	})

	t.Run("too large", func(t *testing.T) {
		r := newTestRouter(&stubAnswerer{}, voice, VoiceWithMaxAudioBytes(4))
		w, env := doUpload(t, r, nil, "q.wav", []byte("12345"))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "FILE_TOO_LARGE", env.Error.Code)
	})

	require.Empty(t, voice.requests)
}

func TestProcessAudio_TranscriptionFailure(t *testing.T) {
	voice := &stubVoice{err: fmt.Errorf("%w: corrupt container", service.ErrTranscriptionFailed)}
	w, env := doUpload(t, newTestRouter(&stubAnswerer{}, voice), nil, "q.wav", []byte("x"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "TRANSCRIPTION_FAILED", env.Error.Code)
}

type failingStorage struct{ storage.Storage }

func (failingStorage) Upload(ctx context.Context, id uuid.UUID, filename string, data io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestProcessAudio_ArchiveFailureIsNotFatal(t *testing.T) {
	voice := &stubVoice{result: &models.VoiceResult{CaseSummaries: []models.CaseSummary{}}}
	r := newTestRouter(&stubAnswerer{}, voice, VoiceWithArchive(failingStorage{}))

	w, _ := doUpload(t, r, nil, "q.wav", []byte("x"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, voice.requests, 1)
}

type countingStorage struct {
	storage.Storage
	uploads []string
}

func (s *countingStorage) Upload(ctx context.Context, id uuid.UUID, filename string, data io.Reader) (string, error) {
	s.uploads = append(s.uploads, filename)
	return id.String() + "/" + filename, nil
}

func TestProcessAudio_ArchivesOnlyAnsweredRecordings(t *testing.T) {
	t.Run("failed pipeline", func(t *testing.T) {
		archive := &countingStorage{}
		voice := &stubVoice{err: fmt.Errorf("%w: corrupt container", service.ErrTranscriptionFailed)}
		r := newTestRouter(&stubAnswerer{}, voice, VoiceWithArchive(archive))

		w, _ := doUpload(t, r, nil, "q.wav", []byte("x"))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Empty(t, archive.uploads)
	})

	t.Run("answered", func(t *testing.T) {
		archive := &countingStorage{}
		voice := &stubVoice{result: &models.VoiceResult{CaseSummaries: []models.CaseSummary{}}}
		r := newTestRouter(&stubAnswerer{}, voice, VoiceWithArchive(archive))

		w, _ := doUpload(t, r, nil, "q.WAV", []byte("x"))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"recording.wav"}, archive.uploads)
	})
}

func TestProcessAudio_NotRegisteredWithoutVoice(t *testing.T) {
	r := newTestRouter(&stubAnswerer{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/process-audio", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
