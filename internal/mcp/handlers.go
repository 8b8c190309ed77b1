package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/uwp-rag-server/internal/answer"
	"github.com/bull/uwp-rag-server/internal/ingest"
	"github.com/bull/uwp-rag-server/internal/retriever"
)

const (
	defaultK       = 5
	maxK           = 20
	maxQuestionLen = 1000
)

// Answerer produces cited answers.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (*answer.Result, error)
}

// Searcher retrieves scored passages.
type Searcher interface {
	Query(ctx context.Context, question string, k int) ([]retriever.RetrievedChunk, error)
	HasConfidentMatch(chunks []retriever.RetrievedChunk) bool
}

// StatusReader reports ingestion progress.
type StatusReader interface {
	Status() ingest.Status
}

func normalizeK(k int) (int, error) {
	if k == 0 {
		return defaultK, nil
	}
	if k < 1 || k > maxK {
		return 0, fmt.Errorf("k must be between 1 and %d", maxK)
	}
	return k, nil
}

func validateQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("question must not be empty")
	}
	if utf8.RuneCountInString(q) > maxQuestionLen {
		return fmt.Errorf("question must be at most %d characters", maxQuestionLen)
	}
	return nil
}

// makeAskHandler creates the ask_question tool handler.
func makeAskHandler(answerer Answerer) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		if err := validateQuestion(input.Question); err != nil {
			return nil, AskQuestionOutput{}, err
		}
		k, err := normalizeK(input.K)
		if err != nil {
			return nil, AskQuestionOutput{}, err
		}

		res, err := answerer.Answer(ctx, input.Question, k)
		if err != nil {
			return nil, AskQuestionOutput{}, fmt.Errorf("failed to answer: %w", err)
		}

		sources := make([]Source, len(res.Sources))
		for i, s := range res.Sources {
			sources[i] = Source{URL: s.URL, Title: s.Title}
		}
		return nil, AskQuestionOutput{Answer: res.Answer, Sources: sources}, nil
	}
}

// makeSearchHandler creates the search_context tool handler.
// Passages come back in retrieval order; those below MinScore are dropped.
func makeSearchHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchContextInput,
) (*mcp.CallToolResult, SearchContextOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchContextInput) (
		*mcp.CallToolResult, SearchContextOutput, error,
	) {
		if err := validateQuestion(input.Query); err != nil {
			return nil, SearchContextOutput{}, err
		}
		k, err := normalizeK(input.K)
		if err != nil {
			return nil, SearchContextOutput{}, err
		}

		chunks, err := searcher.Query(ctx, input.Query, k)
		if err != nil {
			return nil, SearchContextOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]ContextResult, 0, len(chunks))
		for _, c := range chunks {
			if c.Score < input.MinScore {
				continue
			}
			results = append(results, ContextResult{URL: c.URL, Title: c.Title, Text: c.Text, Score: c.Score})
		}

		out := SearchContextOutput{
			Results:   results,
			Confident: searcher.HasConfidentMatch(chunks),
		}
		if len(results) == 0 {
			out.Message = "No matching passages found. The index may be empty; check get_ingest_status."
		}
		return nil, out, nil
	}
}

// makeStatusHandler creates the get_ingest_status tool handler.
func makeStatusHandler(reader StatusReader) func(
	context.Context, *mcp.CallToolRequest, IngestStatusInput,
) (*mcp.CallToolResult, IngestStatusOutput, error) {
	return func(context.Context, *mcp.CallToolRequest, IngestStatusInput) (
		*mcp.CallToolResult, IngestStatusOutput, error,
	) {
		status := reader.Status()
		out := IngestStatusOutput{
			Status:        status.Status,
			PagesScraped:  status.PagesScraped,
			ChunksIndexed: status.ChunksIndexed,
		}
		if status.StartedAt != nil {
			out.StartedAt = status.StartedAt.Format(time.RFC3339)
		}
		if status.CompletedAt != nil {
			out.CompletedAt = status.CompletedAt.Format(time.RFC3339)
		}
		if status.ErrorMessage != nil {
			out.ErrorMessage = *status.ErrorMessage
		}
		return nil, out, nil
	}
}
