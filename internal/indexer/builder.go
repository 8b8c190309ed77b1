package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bull/uwp-rag-server/internal/chunker"
	"github.com/bull/uwp-rag-server/internal/docstore"
	"github.com/bull/uwp-rag-server/internal/storage"
)

// DefaultBatchSize is the number of chunks embedded and upserted per request.
const DefaultBatchSize = 100

// UntitledPage replaces empty document titles.
const UntitledPage = "Untitled"

// IndexStats summarises a build.
type IndexStats struct {
	CreatedAt      time.Time `json:"created_at"`
	TotalDocuments int       `json:"total_documents"`
	TotalChunks    int       `json:"total_chunks"`
	EmbedModel     string    `json:"embed_model"`
	CollectionName string    `json:"collection_name"`
}

// Chunker splits a document's text into chunks.
type Chunker interface {
	Chunk(text string, base chunker.Metadata) []chunker.Chunk
}

// Embedder turns a batch of texts into vectors, one request per call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Builder chunks documents, embeds them in batches and writes them to the vector collection.
type Builder struct {
	chunker   Chunker
	embedder  Embedder
	store     storage.VectorStore
	batchSize int
	logger    *slog.Logger
}

// NewBuilder creates a new index builder with the given components.
// batchSize <= 0 means DefaultBatchSize.
func NewBuilder(
	chunker Chunker,
	embedder Embedder,
	store storage.VectorStore,
	batchSize int,
	logger *slog.Logger,
) *Builder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
}

// BuildIndex writes every chunk of docs to the collection. With reset the collection
// is dropped and recreated first, so afterwards it holds exactly this pass's chunk ids.
// The build is not transactional: a failing batch leaves earlier batches in place.
func (b *Builder) BuildIndex(ctx context.Context, docs []docstore.Document, reset bool) (*IndexStats, error) {
	start := time.Now()

	if reset {
		if err := b.store.DeleteCollection(ctx); err != nil {
			return nil, fmt.Errorf("reset collection: %w", err)
		}
		b.logger.Info("Deleted collection", "collection", b.store.CollectionName())
	}
	if err := b.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	var chunks []chunker.Chunk
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = UntitledPage
		}
		chunks = append(chunks, b.chunker.Chunk(doc.Text, chunker.Metadata{
			URL:       doc.URL,
			Title:     title,
			PageIndex: i,
		})...)
	}
	b.logger.Info("Chunked documents", "documents", len(docs), "chunks", len(chunks))

	for i := 0; i < len(chunks); i += b.batchSize {
		end := min(i+b.batchSize, len(chunks))
		if err := b.indexBatch(ctx, chunks[i:end]); err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		b.logger.Debug("Indexed batch", "start", i, "end", end, "total", len(chunks))
	}

	stats := &IndexStats{
		CreatedAt:      time.Now().UTC(),
		TotalDocuments: len(docs),
		TotalChunks:    len(chunks),
		EmbedModel:     b.embedder.Model(),
		CollectionName: b.store.CollectionName(),
	}

	b.logger.Info("Indexing complete",
		"documents", stats.TotalDocuments,
		"chunks", stats.TotalChunks,
		"collection", stats.CollectionName,
		"duration", time.Since(start),
	)

	return stats, nil
}

func (b *Builder) indexBatch(ctx context.Context, batch []chunker.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(batch))
	}

	records := make([]storage.Record, len(batch))
	for i, c := range batch {
		records[i] = storage.Record{
			ID:         c.ID(),
			Vector:     vectors[i],
			Text:       c.Text,
			URL:        c.Metadata.URL,
			Title:      c.Metadata.Title,
			PageIndex:  c.Metadata.PageIndex,
			ChunkIndex: c.Metadata.ChunkIndex,
			TokenCount: c.Metadata.TokenCount,
		}
	}

	if err := b.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// SaveStats writes stats as indented JSON, creating parent directories.
func SaveStats(path string, stats *IndexStats) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create stats dir: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

// LoadStats reads stats written by SaveStats.
func LoadStats(path string) (*IndexStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}

	var stats IndexStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parse stats: %w", err)
	}
	return &stats, nil
}
