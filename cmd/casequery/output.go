package main

import (
	"fmt"
	"io"
	"strings"

	"cyberlegal-backend/models"
	"cyberlegal-backend/service"
)

const rule = "--------------------------------------------------------------------------------"

func printSearchResults(w io.Writer, query string, items []models.RetrievedItem) {
	fmt.Fprintf(w, "Query: %s\n", query)
	if len(items) == 0 {
		fmt.Fprintln(w, service.NoEvidenceAnswer)
		return
	}

	summaries := service.NewEvidenceFormatter(0)
	_, cases := summaries.Format(items)

	for i, item := range items {
		meta := item.Metadata
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Result %d: %s\n", i+1, cases[i].Title)
		if item.Distance != nil {
			fmt.Fprintf(w, "Distance: %.4f\n", *item.Distance)
		}
		fmt.Fprintf(w, "Category: %s\n", orNA(meta[models.MetaCategory]))
		fmt.Fprintf(w, "Location: %s (%v)\n", orNA(meta[models.MetaLocation]), cases[i].Year)
		fmt.Fprintf(w, "Severity: %s\n", orNA(meta[models.MetaSeriousnessLevel]))
		fmt.Fprintf(w, "Laws: %s\n", orNA(meta[models.MetaLaws]))
		printNextSteps(w, cases[i].NextSteps)
	}
	fmt.Fprintln(w, rule)
}

func printAnswer(w io.Writer, result *models.AnswerResult) {
	fmt.Fprintln(w, strings.TrimSpace(result.AnswerText))
	if len(result.CaseSummaries) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Related cases:")
	for i, cs := range result.CaseSummaries {
		fmt.Fprintf(w, "%d. %s (%v)\n", i+1, cs.Title, cs.Year)
		fmt.Fprintf(w, "   %s\n", cs.Summary)
	}
}

func printNextSteps(w io.Writer, steps []string) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(w, "Next steps:")
	for _, step := range steps {
		fmt.Fprintf(w, "  - %s\n", step)
	}
}

func orNA(v any) string {
	if v == nil {
		return "N/A"
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "N/A"
	}
	return s
}
