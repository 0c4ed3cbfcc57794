// Package ingest turns the raw case corpus into case records for the case store.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cyberlegal-backend/models"

	"github.com/google/uuid"
)

// RawCase is one corpus entry as exported by the case collection tooling
type RawCase struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// ParseCorpus accepts either a JSON list of cases or an object mapping a
// category name to a list of cases. Entries without metadata are skipped and
// counted in skipped.
func ParseCorpus(data []byte) (cases []RawCase, skipped int, err error) {
	var items []json.RawMessage

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		items = list
	} else {
		var grouped map[string]json.RawMessage
		if err := json.Unmarshal(data, &grouped); err != nil {
			return nil, 0, errors.New("corpus must be a JSON list or an object of lists")
		}
		categories := make([]string, 0, len(grouped))
		for category := range grouped {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			var group []json.RawMessage
			if err := json.Unmarshal(grouped[category], &group); err != nil {
				continue
			}
			items = append(items, group...)
		}
	}

	for _, raw := range items {
		var c RawCase
		if err := json.Unmarshal(raw, &c); err != nil || len(c.Metadatas) == 0 || c.Metadatas[0] == nil {
			skipped++
			continue
		}
		cases = append(cases, c)
	}
	return cases, skipped, nil
}

// BuildRecord composes the embedded document and flat metadata for one case
func BuildRecord(c RawCase) (models.CaseRecord, error) {
	if len(c.Metadatas) == 0 || c.Metadatas[0] == nil {
		return models.CaseRecord{}, errors.New("case has no metadata")
	}
	meta := c.Metadatas[0]

	var description string
	if len(c.Documents) > 0 {
		description = c.Documents[0]
	}

	laws := lawsText(meta["laws_involved"])
	title := stringOr(meta, "title", "Unknown")
	year := yearOf(meta["year"])

	document := fmt.Sprintf(
		"Incident: %s\nCategory: %s\nDescription: %s\nLocation: %s (%s)\nLaws Involved: %s\nSeverity: %s",
		title,
		stringOr(meta, "category", "Unknown"),
		description,
		stringOr(meta, "location", "Unknown"),
		yearText(meta["year"]),
		laws,
		stringOr(meta, "seriousness_level", "Unknown"),
	)

	nextSteps, err := json.Marshal(stepsOf(meta["next_steps_user_should_take"]))
	if err != nil {
		return models.CaseRecord{}, fmt.Errorf("failed to encode next steps: %w", err)
	}

	id := ""
	if len(c.IDs) > 0 {
		id = strings.TrimSpace(c.IDs[0])
	}
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(document)).String()
	}

	return models.CaseRecord{
		ID:       id,
		Document: document,
		Metadata: map[string]any{
			models.MetaTitle:            stringOr(meta, "title", ""),
			models.MetaCategory:         stringOr(meta, "category", ""),
			models.MetaSubcategory:      stringOr(meta, "subcategory", ""),
			models.MetaSeriousnessLevel: stringOr(meta, "seriousness_level", ""),
			models.MetaLocation:         stringOr(meta, "location", "Unknown"),
			models.MetaYear:             year,
			models.MetaNextSteps:        string(nextSteps),
			models.MetaLaws:             laws,
		},
	}, nil
}

// lawsText joins the "section" of each cited law, or stringifies a free-text value
func lawsText(v any) string {
	switch laws := v.(type) {
	case nil:
		return ""
	case []any:
		var sections []string
		for _, law := range laws {
			if m, ok := law.(map[string]any); ok {
				sections = append(sections, fmt.Sprint(valueOr(m["section"], "")))
			}
		}
		return strings.Join(sections, "; ")
	case string:
		return laws
	default:
		return fmt.Sprint(laws)
	}
}

func stepsOf(v any) []string {
	steps := []string{}
	list, ok := v.([]any)
	if !ok {
		return steps
	}
	for _, step := range list {
		if s, ok := step.(string); ok {
			steps = append(steps, s)
		}
	}
	return steps
}

func yearOf(v any) int {
	switch y := v.(type) {
	case float64:
		return int(y)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
			return n
		}
	}
	return 0
}

func yearText(v any) string {
	if v == nil {
		return "Unknown"
	}
	if n := yearOf(v); n != 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprint(v)
}

func stringOr(meta map[string]any, key, fallback string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func valueOr(v any, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
