package main

import (
	"context"
	"log/slog"
	"os"

	"cyberlegal-backend/config"
	"cyberlegal-backend/handlers"
	"cyberlegal-backend/logging"
	"cyberlegal-backend/repository"
	"cyberlegal-backend/service"
	"cyberlegal-backend/storage"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
	translate "google.golang.org/api/translate/v2"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	ctx := context.Background()

	db, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Embeddings use the Google key so retrieval keeps working when only the LLM key is missing
	embedClient, err := service.NewGeminiClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		logger.Error("failed to initialize embedding client", "error", err)
		os.Exit(1)
	}
	if embedClient != nil {
		defer embedClient.Close()
	}
	embedder := service.NewGeminiEmbedder(embedClient, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	caseRepo := repository.NewCaseRepository(db, embedder)

	answerOpts := []service.AnswerServiceOption{
		service.AnswerWithRetriever(service.NewRetriever(caseRepo, cfg.CallTimeout)),
		service.AnswerWithFormatter(service.NewEvidenceFormatter(cfg.SummaryMaxChars)),
		service.AnswerWithGeneration(cfg.Temperature, cfg.MaxOutputTokens),
		service.AnswerWithTimeout(cfg.GenerationTimeout),
		service.AnswerWithLogger(logger),
	}
	geminiClient, err := service.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Error("failed to initialize gemini", "error", err)
		os.Exit(1)
	}
	if geminiClient != nil {
		defer geminiClient.Close()
		answerOpts = append(answerOpts, service.AnswerWithCompleter(service.NewGeminiCompleter(geminiClient, cfg.GenerationModel, logger)))
	} else {
		logger.Warn("GEMINI_API_KEY not set, answers will be degraded")
	}
	answerService := service.NewAnswerService(answerOpts...)

	translator, speech := initGoogleServices(ctx, cfg, logger)

	voiceService := service.NewVoiceService(
		service.VoiceWithTranscriber(service.NewTranscriber(service.NewModelManager(transcriptionLoader(cfg, logger), service.ManagerWithLogger(logger)), cfg.CallTimeout)),
		service.VoiceWithTranslator(translator),
		service.VoiceWithAnswerer(answerService),
		service.VoiceWithSpeech(speech),
		service.VoiceWithDefaultTopK(cfg.DefaultTopK),
		service.VoiceWithLogger(logger),
	)

	voiceOpts := []handlers.VoiceHandlerOption{handlers.VoiceWithLogger(logger)}
	if cfg.ArchiveRecordings {
		archive, err := storage.NewStorage(cfg.Storage)
		if err != nil {
			logger.Error("failed to initialize storage", "error", err)
			os.Exit(1)
		}
		voiceOpts = append(voiceOpts, handlers.VoiceWithArchive(archive))
		logger.Info("recording archive enabled", "type", cfg.Storage.Type)
	}

	r := handlers.NewRouter(
		handlers.NewQueryHandler(answerService, cfg.DefaultTopK, logger),
		handlers.NewVoiceHandler(voiceService, voiceOpts...),
		logger,
	)

	logger.Info("server starting", "port", cfg.Port, "transcription_backend", cfg.TranscriptionBackend)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

func transcriptionLoader(cfg *config.Config, logger *slog.Logger) service.ModelLoader {
	if cfg.TranscriptionBackend == "whisper" {
		return service.NewWhisperLoader(cfg.WhisperURL, cfg.GenerationTimeout)
	}
	return service.NewGeminiSpeechLoader(cfg.GeminiAPIKey, cfg.TranscriptionModel, logger)
}

// initGoogleServices builds the translation and speech adapters. Without a key,
// both run with no client and every call degrades.
func initGoogleServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.Translator, *service.SpeechSynthesizer) {
	if cfg.GoogleAPIKey == "" {
		logger.Warn("GOOGLE_API_KEY not set, voice answers will not be translated or spoken")
		return service.NewTranslator(nil, cfg.CallTimeout), service.NewSpeechSynthesizer(nil, cfg.CallTimeout)
	}

	var translationClient service.TranslationClient
	translateSvc, err := translate.NewService(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		logger.Warn("failed to initialize translation service", "error", err)
	} else {
		translationClient = service.NewGoogleTranslationClient(translateSvc)
	}

	var speechClient service.SpeechClient
	ttsSvc, err := texttospeech.NewService(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
	if err != nil {
		logger.Warn("failed to initialize text-to-speech service", "error", err)
	} else {
		speechClient = service.NewGoogleSpeechClient(ttsSvc)
	}

	return service.NewTranslator(translationClient, cfg.CallTimeout), service.NewSpeechSynthesizer(speechClient, cfg.CallTimeout)
}
