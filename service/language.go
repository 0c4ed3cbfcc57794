package service

import (
	"sort"
	"strings"

	"cyberlegal-backend/models"
)

// PivotLanguage is the language the text pipeline runs in
const PivotLanguage = "english"

var languagePacks = map[string]models.LanguagePack{
	"english": {Name: "english", TranscriptionCode: "en", TranslationCode: "en", SynthesisCode: "en-IN"},
	"hindi":   {Name: "hindi", TranscriptionCode: "hi", TranslationCode: "hi", SynthesisCode: "hi-IN"},
	"kannada": {Name: "kannada", TranscriptionCode: "kn", TranslationCode: "kn", SynthesisCode: "kn-IN"},
	"tamil":   {Name: "tamil", TranscriptionCode: "ta", TranslationCode: "ta", SynthesisCode: "ta-IN"},
}

// ResolveLanguage looks up the pack for a language name, case-insensitively.
// Unknown names resolve to the pivot language.
func ResolveLanguage(name string) models.LanguagePack {
	if pack, ok := languagePacks[strings.ToLower(strings.TrimSpace(name))]; ok {
		return pack
	}
	return languagePacks[PivotLanguage]
}

// PivotPack returns the pivot language pack
func PivotPack() models.LanguagePack {
	return languagePacks[PivotLanguage]
}

// IsSupportedLanguage reports whether name has its own language pack
func IsSupportedLanguage(name string) bool {
	_, ok := languagePacks[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// SupportedLanguages returns the supported language names in sorted order
func SupportedLanguages() []string {
	names := make([]string, 0, len(languagePacks))
	for name := range languagePacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
