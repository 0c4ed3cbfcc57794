package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	translate "google.golang.org/api/translate/v2"
)

// TranslationClient is an external machine-translation service
type TranslationClient interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Translator translates text between language codes
type Translator struct {
	client  TranslationClient
	timeout time.Duration
}

// NewTranslator creates a translator; a nil client fails every non-identity translation
func NewTranslator(client TranslationClient, timeout time.Duration) *Translator {
	return &Translator{client: client, timeout: timeout}
}

// Translate returns text unchanged, without calling the service, when source equals
// target or text is blank. Service failures return ErrTranslationFailed; the caller
// decides whether to fall back to the original text.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if t.client == nil {
		return "", fmt.Errorf("%w: no translation client configured", ErrTranslationFailed)
	}

	callCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	translated, err := t.client.Translate(callCtx, text, source, target)
	if err != nil {
		return "", classify(ErrTranslationFailed, err)
	}
	if strings.TrimSpace(translated) == "" {
		return "", fmt.Errorf("%w: empty translation", ErrTranslationFailed)
	}
	return translated, nil
}

// GoogleTranslationClient implements TranslationClient on Cloud Translation v2
type GoogleTranslationClient struct {
	svc *translate.Service
}

// NewGoogleTranslationClient wraps a Cloud Translation service
func NewGoogleTranslationClient(svc *translate.Service) *GoogleTranslationClient {
	return &GoogleTranslationClient{svc: svc}
}

// Translate translates plain text from source to target
func (c *GoogleTranslationClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := c.svc.Translations.List([]string{text}, target).
		Source(source).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(resp.Translations) == 0 {
		return "", errors.New("no translations returned")
	}
	return html.UnescapeString(resp.Translations[0].TranslatedText), nil
}
