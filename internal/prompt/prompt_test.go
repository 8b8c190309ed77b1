package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bull/uwp-rag-server/internal/retriever"
)

func TestBuildUserMessage(t *testing.T) {
	chunks := []retriever.RetrievedChunk{
		{Text: "Apply online by May 1.", URL: "https://www.uwp.edu/apply", Title: "Apply"},
		{Text: "Tuition is listed per credit.", URL: "https://www.uwp.edu/cost", Title: "Cost"},
	}

	got := BuildUserMessage("How do I apply?", chunks)

	want := "Question: How do I apply?\n\nContext:\n" +
		"[1] (from Apply - https://www.uwp.edu/apply)\nApply online by May 1.\n\n" +
		"[2] (from Cost - https://www.uwp.edu/cost)\nTuition is listed per credit."
	assert.Equal(t, want, got)
}

func TestBuildUserMessage_NoChunks(t *testing.T) {
	assert.Equal(t, "Question: hi\n\nContext:\n", BuildUserMessage("hi", nil))
}

func TestSystemPrompt_Contract(t *testing.T) {
	assert.Contains(t, SystemPrompt, "Sources:")
	assert.Contains(t, SystemPrompt, "[1]")
	assert.Contains(t, SystemPrompt, "150 words")
	assert.Contains(t, SystemPrompt, "University of Wisconsin-Parkside")
}
