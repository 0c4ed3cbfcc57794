package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"cyberlegal-backend/models"
)

const (
	// DefaultSummaryMaxChars bounds CaseSummary.Summary before the ellipsis
	DefaultSummaryMaxChars = 450
	// DefaultCaseTitle replaces titles that are empty after cleaning
	DefaultCaseTitle = "Related Case"

	notAvailable = "N/A"
	ellipsis     = "..."
)

var (
	caseNumbering = regexp.MustCompile(`(?i)\b(?:incident|case)\s*\d+\s*-?\s*`)
	incidentLine  = regexp.MustCompile(`(?im)^[ \t]*incident:[^\n]*(?:\n|$)`)
	categoryLine  = regexp.MustCompile(`(?im)^[ \t]*category:[^\n]*(?:\n|$)`)
)

// CleanTitle strips "Incident 12 -" / "Case 3" numbering from a case title
func CleanTitle(title string) string {
	for {
		stripped := caseNumbering.ReplaceAllString(title, "")
		if stripped == title {
			break
		}
		title = stripped
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultCaseTitle
	}
	return title
}

// CleanDocument removes the "Incident:" and "Category:" header lines that the
// ingestion job prepends to every record
func CleanDocument(doc string) string {
	if doc == "" {
		return ""
	}
	doc = incidentLine.ReplaceAllString(doc, "")
	doc = categoryLine.ReplaceAllString(doc, "")
	return strings.TrimSpace(doc)
}

// Summarize shortens doc to maxChars characters, backing off to the last full
// sentence. Without a sentence terminator the raw cut gets an ellipsis.
func Summarize(doc string, maxChars int) string {
	runes := []rune(doc)
	if len(runes) <= maxChars {
		return strings.TrimSpace(doc)
	}

	cut := string(runes[:maxChars])
	if i := strings.LastIndex(cut, "."); i != -1 {
		return cut[:i+1]
	}
	return cut + ellipsis
}

// EvidenceFormatter turns retrieved items into the prompt evidence block and
// the user-facing case summaries
type EvidenceFormatter struct {
	SummaryMaxChars int
}

// NewEvidenceFormatter creates a formatter; non-positive budgets use DefaultSummaryMaxChars
func NewEvidenceFormatter(summaryMaxChars int) *EvidenceFormatter {
	if summaryMaxChars <= 0 {
		summaryMaxChars = DefaultSummaryMaxChars
	}
	return &EvidenceFormatter{SummaryMaxChars: summaryMaxChars}
}

// Format builds the evidence block and summaries in retrieval order
func (f *EvidenceFormatter) Format(items []models.RetrievedItem) (string, []models.CaseSummary) {
	var block strings.Builder
	summaries := make([]models.CaseSummary, 0, len(items))

	for _, item := range items {
		meta := item.Metadata
		cleanDoc := CleanDocument(item.Document)
		title := CleanTitle(metaString(meta, models.MetaTitle))

		summaries = append(summaries, models.CaseSummary{
			Title:     title,
			Year:      metaYear(meta),
			Summary:   Summarize(cleanDoc, f.SummaryMaxChars),
			FullText:  cleanDoc,
			Category:  metaString(meta, models.MetaCategory),
			Location:  metaString(meta, models.MetaLocation),
			NextSteps: metaNextSteps(meta),
		})

		laws := strings.TrimSpace(metaString(meta, models.MetaLaws))
		if laws == "" {
			laws = notAvailable
		}

		fmt.Fprintf(&block, "\nTitle: %s\nLaws Involved: %s\nDescription:\n%s\n", title, laws, cleanDoc)
	}

	return block.String(), summaries
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// metaYear returns the year as an int when it is integral, else the raw string, else "N/A"
func metaYear(meta map[string]any) any {
	switch v := meta[models.MetaYear].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		return v.String()
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if s != "" {
			return s
		}
	}
	return notAvailable
}

// metaNextSteps decodes next_steps, stored either as a JSON-encoded string or a list
func metaNextSteps(meta map[string]any) []string {
	var raw []any
	switch v := meta[models.MetaNextSteps].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return nil
		}
	case []any:
		raw = v
	case []string:
		raw = make([]any, len(v))
		for i, s := range v {
			raw[i] = s
		}
	default:
		return nil
	}

	var steps []string
	for _, step := range raw {
		if s, ok := step.(string); ok && strings.TrimSpace(s) != "" {
			steps = append(steps, strings.TrimSpace(s))
		}
	}
	return steps
}
