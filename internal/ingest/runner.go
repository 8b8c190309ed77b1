// Package ingest runs the crawl-and-index pipeline in the background and tracks its status.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bull/uwp-rag-server/internal/docstore"
	"github.com/bull/uwp-rag-server/internal/indexer"
)

// ErrIngestRunning is returned by Start while a run is in progress.
var ErrIngestRunning = errors.New("ingestion already in progress")

// InterruptedMessage marks a run that was still "running" when the process restarted.
const InterruptedMessage = "interrupted by restart"

// Crawler collects documents.
type Crawler interface {
	Crawl(ctx context.Context) ([]docstore.Document, error)
}

// CrawlerFactory builds a Crawler for a page budget.
type CrawlerFactory func(maxPages int) Crawler

// IndexBuilder rebuilds the vector collection.
type IndexBuilder interface {
	BuildIndex(ctx context.Context, docs []docstore.Document, reset bool) (*indexer.IndexStats, error)
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Status     *StatusStore
	NewCrawler CrawlerFactory
	Builder    IndexBuilder
	DocsPath   string
	StatsPath  string
	Lock       Lock // Optional cross-process guard
	Logger     *slog.Logger
}

// Runner admits at most one ingestion at a time.
type Runner struct {
	cfg    RunnerConfig
	ctx    context.Context
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. Background runs use ctx, which should live as long as the server.
func NewRunner(ctx context.Context, cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		ctx:    ctx,
		logger: logger,
	}
}

// Recover rewrites a stale "running" status left by a previous process to "error".
// With a Lock the status is left alone while another process holds it.
func (r *Runner) Recover(ctx context.Context) error {
	status := r.cfg.Status.Load()
	if status.Status != StateRunning {
		return nil
	}

	if r.cfg.Lock != nil {
		acquired, err := r.cfg.Lock.TryAcquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire ingest lock: %w", err)
		}
		if !acquired {
			r.logger.InfoContext(ctx, "Ingestion running in another process, keeping status",
				"started_at", status.StartedAt)
			return nil
		}
		defer r.releaseLock()
	}

	now := time.Now().UTC()
	msg := InterruptedMessage
	status.Status = StateError
	status.CompletedAt = &now
	status.ErrorMessage = &msg

	r.logger.WarnContext(ctx, "Recovered interrupted ingestion", "started_at", status.StartedAt)
	return r.cfg.Status.Save(status)
}

// Status returns the persisted status.
func (r *Runner) Status() Status {
	return r.cfg.Status.Load()
}

// Start records a running status and launches the pipeline in the background.
// It returns ErrIngestRunning if a run is already in progress here or, with a Lock, elsewhere.
func (r *Runner) Start(ctx context.Context, maxPages int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running || r.cfg.Status.Load().Status == StateRunning {
		return ErrIngestRunning
	}

	if r.cfg.Lock != nil {
		ok, err := r.cfg.Lock.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrIngestRunning
		}
	}

	startedAt := time.Now().UTC()
	if err := r.cfg.Status.Save(Status{Status: StateRunning, StartedAt: &startedAt}); err != nil {
		r.releaseLock()
		return fmt.Errorf("save status: %w", err)
	}

	r.running = true
	r.wg.Add(1)
	go r.run(maxPages, startedAt)

	r.logger.InfoContext(ctx, "Ingestion started", "max_pages", maxPages)
	return nil
}

// Wait blocks until the current run, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(maxPages int, startedAt time.Time) {
	defer r.wg.Done()
	defer func() {
		r.releaseLock()
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	pages, chunks, err := r.pipeline(maxPages)
	completedAt := time.Now().UTC()

	status := Status{
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
	}
	if err != nil {
		msg := err.Error()
		status.Status = StateError
		status.ErrorMessage = &msg
		r.logger.Error("Ingestion failed", "error", err, "duration", completedAt.Sub(startedAt))
	} else {
		status.Status = StateDone
		status.PagesScraped = pages
		status.ChunksIndexed = chunks
		r.logger.Info("Ingestion complete", "pages", pages, "chunks", chunks, "duration", completedAt.Sub(startedAt))
	}

	if err := r.cfg.Status.Save(status); err != nil {
		r.logger.Error("Failed to save ingest status", "error", err)
	}
}

func (r *Runner) pipeline(maxPages int) (pages, chunks int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("ingestion panicked: %v", p)
		}
	}()

	docs, err := r.cfg.NewCrawler(maxPages).Crawl(r.ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("crawl: %w", err)
	}
	if err := docstore.Write(r.cfg.DocsPath, docs); err != nil {
		return 0, 0, fmt.Errorf("save documents: %w", err)
	}

	stats, err := r.cfg.Builder.BuildIndex(r.ctx, docs, true)
	if err != nil {
		return 0, 0, fmt.Errorf("build index: %w", err)
	}
	if err := indexer.SaveStats(r.cfg.StatsPath, stats); err != nil {
		return 0, 0, fmt.Errorf("save stats: %w", err)
	}

	return len(docs), stats.TotalChunks, nil
}

func (r *Runner) releaseLock() {
	if r.cfg.Lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.cfg.Lock.Release(ctx); err != nil {
		r.logger.Warn("Failed to release ingest lock", "error", err)
	}
}
