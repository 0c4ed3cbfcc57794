package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	texttospeech "google.golang.org/api/texttospeech/v1"
)

// maxSpeechBytes is the Text-to-Speech input limit per request. Longer answers
// are spoken in several requests split at sentence boundaries.
const maxSpeechBytes = 5000

// sentenceTerminators end a sentence when followed by whitespace; '।' is the Devanagari danda
const sentenceTerminators = ".।?!"

// SpeechClient is an external text-to-speech service returning encoded audio
type SpeechClient interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

// SpeechSynthesizer converts answer text to spoken audio
type SpeechSynthesizer struct {
	client  SpeechClient
	timeout time.Duration
}

// NewSpeechSynthesizer creates a synthesizer; a nil client fails every non-empty request
func NewSpeechSynthesizer(client SpeechClient, timeout time.Duration) *SpeechSynthesizer {
	return &SpeechSynthesizer{client: client, timeout: timeout}
}

// Synthesize returns encoded audio for text. Blank text yields an empty payload
// and no service call. Failures return ErrSpeechFailed; callers treat that as
// "audio unavailable".
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if s.client == nil {
		return nil, fmt.Errorf("%w: no speech client configured", ErrSpeechFailed)
	}

	var audio []byte
	for i, chunk := range speechChunks(text, maxSpeechBytes) {
		part, err := s.synthesizeChunk(ctx, chunk, languageCode)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i+1, err)
		}
		// MP3 frames are self-delimiting, so concatenated parts play back in order
		audio = append(audio, part...)
	}
	return audio, nil
}

func (s *SpeechSynthesizer) synthesizeChunk(ctx context.Context, text, languageCode string) ([]byte, error) {
	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	audio, err := s.client.Synthesize(callCtx, text, languageCode)
	if err != nil {
		return nil, classify(ErrSpeechFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrSpeechFailed)
	}
	return audio, nil
}

// speechChunks packs whole sentences into chunks of at most maxBytes bytes.
// A sentence longer than maxBytes is split at whitespace, or at a rune boundary
// when it has none.
func speechChunks(text string, maxBytes int) []string {
	var chunks []string
	var current strings.Builder
	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, sentence := range splitSentences(text) {
		for _, piece := range splitOversized(sentence, maxBytes) {
			if current.Len()+len(piece) > maxBytes {
				flush()
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

// splitSentences cuts text after each terminator that is followed by whitespace.
// The pieces concatenate back to text.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	afterTerminator, afterSpace := false, false

	for i, r := range text {
		switch {
		case strings.ContainsRune(sentenceTerminators, r):
			if afterSpace {
				sentences = append(sentences, text[start:i])
				start = i
			}
			afterTerminator, afterSpace = true, false
		case unicode.IsSpace(r):
			afterSpace = afterTerminator
		default:
			if afterSpace {
				sentences = append(sentences, text[start:i])
				start = i
			}
			afterTerminator, afterSpace = false, false
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func splitOversized(s string, maxBytes int) []string {
	var pieces []string
	for len(s) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if i := strings.LastIndexFunc(s[:cut], unicode.IsSpace); i > 0 {
			cut = i
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		pieces = append(pieces, s[:cut])
		s = s[cut:]
	}
	return append(pieces, s)
}

// GoogleSpeechClient implements SpeechClient on Cloud Text-to-Speech, producing MP3
type GoogleSpeechClient struct {
	svc *texttospeech.Service
}

// NewGoogleSpeechClient wraps a Cloud Text-to-Speech service
func NewGoogleSpeechClient(svc *texttospeech.Service) *GoogleSpeechClient {
	return &GoogleSpeechClient{svc: svc}
}

// Synthesize returns MP3 audio for text spoken in languageCode
func (c *GoogleSpeechClient) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	resp, err := c.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input:       &texttospeech.SynthesisInput{Text: text},
		Voice:       &texttospeech.VoiceSelectionParams{LanguageCode: languageCode},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if resp.AudioContent == "" {
		return nil, errors.New("no audio content returned")
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	return audio, nil
}
