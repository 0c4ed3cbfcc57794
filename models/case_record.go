package models

// CaseRecord represents an embedded cybercrime case stored in the case store
type CaseRecord struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// Well-known metadata keys written by the ingestion job
const (
	MetaTitle            = "title"
	MetaCategory         = "category"
	MetaSubcategory      = "subcategory"
	MetaYear             = "year"
	MetaLocation         = "location"
	MetaSeriousnessLevel = "seriousness_level"
	MetaLaws             = "laws"
	MetaNextSteps        = "next_steps"
)

// CaseQueryResult mirrors the case store query response.
// All inner slices are parallel and ordered by ascending distance.
type CaseQueryResult struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances,omitempty"`
}

// RetrievedItem is a single case returned for a query
type RetrievedItem struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance *float64       `json:"distance,omitempty"` // Lower is more similar
}

// CaseSummary is the user-facing view of a retrieved case
type CaseSummary struct {
	Title     string   `json:"title"`
	Year      any      `json:"year"` // int when known, "N/A" otherwise
	Summary   string   `json:"summary"`
	FullText  string   `json:"full_text"`
	Category  string   `json:"category,omitempty"`
	Location  string   `json:"location,omitempty"`
	NextSteps []string `json:"next_steps,omitempty"`
}

// AnswerResult is the output of the text pipeline
type AnswerResult struct {
	AnswerText     string        `json:"answer"`
	CaseSummaries  []CaseSummary `json:"case_summaries"`
	RetrievedCount int           `json:"-"`
}
