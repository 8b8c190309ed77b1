package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "uwp_docs.jsonl")
	docs := []Document{
		{URL: "https://www.uwp.edu/", Title: "Home", Text: "Welcome to Parkside <b>&</b> more"},
		{URL: "https://www.uwp.edu/learn", Title: "", Text: "Programs\nand majors"},
	}

	require.NoError(t, Write(path, docs))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `<b>&</b>`, "HTML is not escaped")

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, docs, got)
}

func TestRead_SkipsBlankLinesAndToleratesMissingTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	content := `{"url":"https://www.uwp.edu/a","text":"a"}

{"url":"https://www.uwp.edu/b","title":null,"text":"b"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := Read(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Empty(t, docs[0].Title)
	assert.Empty(t, docs[1].Title)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0o644))
	_, err = Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}
