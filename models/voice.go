package models

// LanguagePack holds the codes each voice stage needs for one language
type LanguagePack struct {
	Name              string `json:"name"`
	TranscriptionCode string `json:"transcription_code"`
	TranslationCode   string `json:"translation_code"`
	SynthesisCode     string `json:"synthesis_code"`
}

// VoiceStage names a step of the voice pipeline
type VoiceStage string

const (
	StageResolveLanguage VoiceStage = "resolve_language"
	StageTranscribe      VoiceStage = "transcribe"
	StageTranslateQuery  VoiceStage = "translate_query"
	StageTextPipeline    VoiceStage = "text_pipeline"
	StageTranslateAnswer VoiceStage = "translate_answer"
	StageSynthesize      VoiceStage = "synthesize_speech"
)

// VoiceResult is the output of a voice query
type VoiceResult struct {
	QueryTextNative    string        `json:"query_text_native"`
	ResponseTextNative string        `json:"response_text_native"`
	AudioBase64        string        `json:"audio_base64"`
	CaseSummaries      []CaseSummary `json:"sources"`
	// DegradedStages lists best-effort stages that fell back to their substitute value
	DegradedStages []VoiceStage `json:"degraded_stages,omitempty"`
}
