// Package mcp exposes the question answering service as Model Context Protocol tools.
package mcp

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	Question string `json:"question" jsonschema:"the question about UW-Parkside, 1 to 1000 characters"`
	K        int    `json:"k,omitempty" jsonschema:"number of context chunks to retrieve, 1 to 20 (default 5)"`
}

// AskQuestionOutput is a cited answer.
type AskQuestionOutput struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Source is a page cited by an answer.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SearchContextInput defines the input parameters for the search_context tool.
type SearchContextInput struct {
	Query    string  `json:"query" jsonschema:"the text to find relevant website passages for"`
	K        int     `json:"k,omitempty" jsonschema:"maximum number of passages to return, 1 to 20 (default 5)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score between 0 and 1 (default 0)"`
}

// SearchContextOutput contains the retrieved passages.
type SearchContextOutput struct {
	Results []ContextResult `json:"results"`
	// Confident reports whether any passage reaches the answer threshold.
	Confident bool   `json:"confident"`
	Message   string `json:"message,omitempty"`
}

// ContextResult is one retrieved passage.
type ContextResult struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// IngestStatusInput takes no parameters.
type IngestStatusInput struct{}

// IngestStatusOutput mirrors the persisted ingestion status.
type IngestStatusOutput struct {
	Status        string `json:"status"`
	PagesScraped  int    `json:"pages_scraped"`
	ChunksIndexed int    `json:"chunks_indexed"`
	StartedAt     string `json:"started_at,omitempty"`   // RFC 3339
	CompletedAt   string `json:"completed_at,omitempty"` // RFC 3339
	ErrorMessage  string `json:"error_message,omitempty"`
}
