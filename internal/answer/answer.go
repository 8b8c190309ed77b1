// Package answer turns a question into a grounded, cited answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/uwp-rag-server/internal/prompt"
	"github.com/bull/uwp-rag-server/internal/retriever"
)

// FallbackAnswer is returned without calling the chat model when no chunk is confident enough.
const FallbackAnswer = "I don't have a reliable source to answer that question. " +
	"Please try rephrasing or ask about UW-Parkside programs, admissions, campus life, or academics."

// Temperature is the sampling temperature for answers.
const Temperature = 0.2

var (
	// ErrChatFailed wraps chat model failures.
	ErrChatFailed = errors.New("chat completion failed")
	// ErrRetrievalFailed wraps embedding or vector store failures.
	ErrRetrievalFailed = errors.New("retrieval failed")
)

// Source is a cited page.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Result is an answer with its deduplicated sources.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Retriever finds chunks for a question and gates on confidence.
type Retriever interface {
	Query(ctx context.Context, question string, k int) ([]retriever.RetrievedChunk, error)
	HasConfidentMatch(chunks []retriever.RetrievedChunk) bool
}

// Chat completes a system and user message pair.
type Chat interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Service orchestrates retrieval, gating, prompting and the chat call.
type Service struct {
	retriever Retriever
	chat      Chat
	logger    *slog.Logger
}

func NewService(r Retriever, chat Chat, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		retriever: r,
		chat:      chat,
		logger:    logger,
	}
}

// Answer retrieves k chunks and, if any is confident, asks the chat model for a cited answer.
// Otherwise it returns FallbackAnswer with no sources. Sources are unique by URL in rank order.
func (s *Service) Answer(ctx context.Context, question string, k int) (*Result, error) {
	chunks, err := s.retriever.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}

	if !s.retriever.HasConfidentMatch(chunks) {
		s.logger.InfoContext(ctx, "No confident match, returning fallback", "chunks", len(chunks))
		return &Result{Answer: FallbackAnswer, Sources: []Source{}}, nil
	}

	text, err := s.chat.Complete(ctx, prompt.SystemPrompt, prompt.BuildUserMessage(question, chunks), Temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChatFailed, err)
	}

	return &Result{Answer: text, Sources: uniqueSources(chunks)}, nil
}

func uniqueSources(chunks []retriever.RetrievedChunk) []Source {
	seen := make(map[string]bool, len(chunks))
	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		sources = append(sources, Source{URL: c.URL, Title: c.Title})
	}
	return sources
}
