package chunker

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultChunkSize is the number of tokens per chunk window.
	DefaultChunkSize = 350

	// EncodingName is the tokenizer shared with the OpenAI embedding models.
	EncodingName = "cl100k_base"
)

// Metadata describes where a chunk came from.
type Metadata struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	PageIndex  int    `json:"page_index"`
	ChunkIndex int    `json:"chunk_index"`
	TokenCount int    `json:"token_count"`
}

// Chunk is a token-bounded window of a document's text.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// ID returns the chunk identifier "{page_index}-{chunk_index}".
func (c Chunk) ID() string {
	return fmt.Sprintf("%d-%d", c.Metadata.PageIndex, c.Metadata.ChunkIndex)
}

// Tokenizer converts text to token ids and back.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Chunker splits document text into fixed-size token windows.
type Chunker struct {
	tokenizer Tokenizer
	size      int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize overrides DefaultChunkSize. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithTokenizer replaces the cl100k_base tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(c *Chunker) {
		c.tokenizer = t
	}
}

// New creates a Chunker. Unless WithTokenizer is given, the cl100k_base encoding
// is loaded, which fetches the BPE ranks on first use.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}

	if c.tokenizer == nil {
		tok, err := defaultTokenizer()
		if err != nil {
			return nil, err
		}
		c.tokenizer = tok
	}

	return c, nil
}

// Size returns the configured window size in tokens.
func (c *Chunker) Size() int {
	return c.size
}

// Chunk splits text into consecutive windows of exactly Size tokens; only the last
// window may be shorter. URL, Title and PageIndex are copied from base, ChunkIndex
// counts from 0 and TokenCount is the window length. Empty text yields no chunks.
func (c *Chunker) Chunk(text string, base Metadata) []Chunk {
	if text == "" {
		return nil
	}

	tokens := c.tokenizer.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(tokens)+c.size-1)/c.size)
	for start := 0; start < len(tokens); start += c.size {
		end := min(start+c.size, len(tokens))
		window := tokens[start:end]

		chunks = append(chunks, Chunk{
			Text: c.tokenizer.Decode(window),
			Metadata: Metadata{
				URL:        base.URL,
				Title:      base.Title,
				PageIndex:  base.PageIndex,
				ChunkIndex: len(chunks),
				TokenCount: len(window),
			},
		})
	}

	return chunks
}

// CountTokens returns the number of tokens text encodes to.
func (c *Chunker) CountTokens(text string) int {
	return len(c.tokenizer.Encode(text))
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

var (
	encOnce sync.Once
	encTok  *tiktokenTokenizer
	encErr  error
)

func defaultTokenizer() (Tokenizer, error) {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(EncodingName)
		if err != nil {
			encErr = fmt.Errorf("load %s encoding: %w", EncodingName, err)
			return
		}
		encTok = &tiktokenTokenizer{enc: enc}
	})
	if encErr != nil {
		return nil, encErr
	}
	return encTok, nil
}
