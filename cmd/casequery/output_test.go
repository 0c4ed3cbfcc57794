package main

import (
	"bytes"
	"testing"

	"cyberlegal-backend/models"
	"cyberlegal-backend/service"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestPrintSearchResults(t *testing.T) {
	d := 0.1234
	items := []models.RetrievedItem{{
		ID:       "hack-1",
		Document: "Incident: Incident 5 - Bank Fraud\nDescription: Victim lost funds.",
		Metadata: map[string]any{
			models.MetaTitle:     "Incident 5 - Bank Fraud",
			models.MetaCategory:  "hacking",
			models.MetaLocation:  "Pune",
			models.MetaYear:      float64(2022),
			models.MetaLaws:      "IT Act 66C",
			models.MetaNextSteps: `["Call 1930"]`,
		},
		Distance: &d,
	}}

	var buf bytes.Buffer
	printSearchResults(&buf, "bank fraud", items)
	out := buf.String()

	require.Contains(t, out, "Result 1: Bank Fraud")
	require.Contains(t, out, "Distance: 0.1234")
	require.Contains(t, out, "Location: Pune (2022)")
	require.Contains(t, out, "Severity: N/A")
	require.Contains(t, out, "  - Call 1930")
}

func TestPrintSearchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	printSearchResults(&buf, "q", nil)
	require.Contains(t, buf.String(), service.NoEvidenceAnswer)
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &models.AnswerResult{
		AnswerText:    "  Report it.  ",
		CaseSummaries: []models.CaseSummary{{Title: "Bank Fraud", Year: 2022, Summary: "Victim lost funds."}},
	})
	require.Equal(t, "Report it.\n\nRelated cases:\n1. Bank Fraud (2022)\n   Victim lost funds.\n", buf.String())
}

func TestQueryArgRequired(t *testing.T) {
	app := newApp()
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	err := app.Run([]string{"casequery", "search"})
	require.Error(t, err)
}
