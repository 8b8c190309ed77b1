package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/uwp-rag-server/internal/docstore"
	"github.com/bull/uwp-rag-server/internal/indexer"
)

type fakeCrawler struct {
	docs    []docstore.Document
	err     error
	release chan struct{}
}

func (f *fakeCrawler) Crawl(ctx context.Context) ([]docstore.Document, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.docs, f.err
}

type fakeBuilder struct {
	mu    sync.Mutex
	reset bool
	docs  int
	err   error
}

func (f *fakeBuilder) BuildIndex(_ context.Context, docs []docstore.Document, reset bool) (*indexer.IndexStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset = reset
	f.docs = len(docs)
	if f.err != nil {
		return nil, f.err
	}
	return &indexer.IndexStats{TotalDocuments: len(docs), TotalChunks: len(docs) * 3, CollectionName: "uwp"}, nil
}

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLock) TryAcquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	l.acquired++
	return true, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.held = false
	l.released++
	return nil
}

func newTestRunner(t *testing.T, crawler *fakeCrawler, builder *fakeBuilder, lock Lock) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	runner := NewRunner(context.Background(), RunnerConfig{
		Status:     NewStatusStore(filepath.Join(dir, "ingest_status.json")),
		NewCrawler: func(int) Crawler { return crawler },
		Builder:    builder,
		DocsPath:   filepath.Join(dir, "uwp_docs.jsonl"),
		StatsPath:  filepath.Join(dir, "stats.json"),
		Lock:       lock,
	})
	return runner, dir
}

func TestRunner_Success(t *testing.T) {
	crawler := &fakeCrawler{docs: []docstore.Document{
		{URL: "https://www.uwp.edu/", Title: "Home", Text: "a"},
		{URL: "https://www.uwp.edu/b", Title: "B", Text: "b"},
	}}
	builder := &fakeBuilder{}
	runner, dir := newTestRunner(t, crawler, builder, nil)

	require.NoError(t, runner.Start(context.Background(), 50))
	runner.Wait()

	status := runner.Status()
	assert.Equal(t, StateDone, status.Status)
	assert.Equal(t, 2, status.PagesScraped)
	assert.Equal(t, 6, status.ChunksIndexed)
	require.NotNil(t, status.StartedAt)
	require.NotNil(t, status.CompletedAt)
	assert.False(t, status.CompletedAt.Before(*status.StartedAt))
	assert.Nil(t, status.ErrorMessage)
	assert.True(t, builder.reset, "ingestion always rebuilds from scratch")

	docs, err := docstore.Read(filepath.Join(dir, "uwp_docs.jsonl"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	stats, err := indexer.LoadStats(filepath.Join(dir, "stats.json"))
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalChunks)
}

func TestRunner_RejectsConcurrentStart(t *testing.T) {
	crawler := &fakeCrawler{release: make(chan struct{})}
	runner, _ := newTestRunner(t, crawler, &fakeBuilder{}, nil)

	require.NoError(t, runner.Start(context.Background(), 10))
	assert.Equal(t, StateRunning, runner.Status().Status)

	err := runner.Start(context.Background(), 10)
	assert.ErrorIs(t, err, ErrIngestRunning)

	close(crawler.release)
	runner.Wait()
	assert.Equal(t, StateDone, runner.Status().Status)

	require.NoError(t, runner.Start(context.Background(), 10), "a finished run frees the slot")
	runner.Wait()
}

func TestRunner_ConcurrentStartsAdmitOne(t *testing.T) {
	crawler := &fakeCrawler{release: make(chan struct{})}
	runner, _ := newTestRunner(t, crawler, &fakeBuilder{}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runner.Start(context.Background(), 10); err == nil {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(crawler.release)
	runner.Wait()

	assert.Equal(t, 1, started)
}

func TestRunner_CrawlError(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeCrawler{err: errors.New("network unreachable")}, &fakeBuilder{}, nil)

	require.NoError(t, runner.Start(context.Background(), 10))
	runner.Wait()

	status := runner.Status()
	assert.Equal(t, StateError, status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Contains(t, *status.ErrorMessage, "network unreachable")
	assert.NotNil(t, status.CompletedAt)
}

func TestRunner_IndexError(t *testing.T) {
	crawler := &fakeCrawler{docs: []docstore.Document{{URL: "u", Text: "t"}}}
	runner, _ := newTestRunner(t, crawler, &fakeBuilder{err: errors.New("embedding failed")}, nil)

	require.NoError(t, runner.Start(context.Background(), 10))
	runner.Wait()

	status := runner.Status()
	assert.Equal(t, StateError, status.Status)
	assert.Contains(t, *status.ErrorMessage, "embedding failed")
	assert.Zero(t, status.ChunksIndexed)
}

func TestRunner_LockHeldElsewhere(t *testing.T) {
	lock := &fakeLock{held: true}
	runner, _ := newTestRunner(t, &fakeCrawler{}, &fakeBuilder{}, lock)

	err := runner.Start(context.Background(), 10)
	assert.ErrorIs(t, err, ErrIngestRunning)
	assert.Equal(t, StateIdle, runner.Status().Status)
}

func TestRunner_LockReleasedAfterRun(t *testing.T) {
	lock := &fakeLock{}
	runner, _ := newTestRunner(t, &fakeCrawler{}, &fakeBuilder{}, lock)

	require.NoError(t, runner.Start(context.Background(), 10))
	runner.Wait()

	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
	assert.False(t, lock.held)
}

func TestRunner_RecoverStaleRunning(t *testing.T) {
	runner, dir := newTestRunner(t, &fakeCrawler{}, &fakeBuilder{}, nil)
	started := time.Now().Add(-time.Hour).UTC()
	store := NewStatusStore(filepath.Join(dir, "ingest_status.json"))
	require.NoError(t, store.Save(Status{Status: StateRunning, StartedAt: &started}))

	require.ErrorIs(t, runner.Start(context.Background(), 10), ErrIngestRunning)
	require.NoError(t, runner.Recover(context.Background()))

	status := runner.Status()
	assert.Equal(t, StateError, status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Equal(t, InterruptedMessage, *status.ErrorMessage)

	require.NoError(t, runner.Start(context.Background(), 10))
	runner.Wait()
}

func TestRunner_RecoverKeepsStatusWhileLockHeld(t *testing.T) {
	lock := &fakeLock{held: true}
	runner, dir := newTestRunner(t, &fakeCrawler{}, &fakeBuilder{}, lock)
	started := time.Now().Add(-time.Minute).UTC()
	require.NoError(t, NewStatusStore(filepath.Join(dir, "ingest_status.json")).Save(Status{
		Status:    StateRunning,
		StartedAt: &started,
	}))

	require.NoError(t, runner.Recover(context.Background()))

	status := runner.Status()
	assert.Equal(t, StateRunning, status.Status, "a run owned by another process stays running")
	assert.Nil(t, status.ErrorMessage)
	assert.Nil(t, status.CompletedAt)
	assert.Zero(t, lock.released, "a lock held elsewhere is never released")
}

func TestRunner_RecoverWithFreeLock(t *testing.T) {
	lock := &fakeLock{}
	runner, dir := newTestRunner(t, &fakeCrawler{}, &fakeBuilder{}, lock)
	started := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, NewStatusStore(filepath.Join(dir, "ingest_status.json")).Save(Status{
		Status:    StateRunning,
		StartedAt: &started,
	}))

	require.NoError(t, runner.Recover(context.Background()))

	status := runner.Status()
	assert.Equal(t, StateError, status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Equal(t, InterruptedMessage, *status.ErrorMessage)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
	assert.False(t, lock.held)
}

func TestRunner_RecoverIdleSkipsLock(t *testing.T) {
	lock := &fakeLock{}
	runner, _ := newTestRunner(t, &fakeCrawler{}, &fakeBuilder{}, lock)

	require.NoError(t, runner.Recover(context.Background()))
	assert.Equal(t, StateIdle, runner.Status().Status)
	assert.Zero(t, lock.acquired)
}

func TestStatusStore_MissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStatusStore(filepath.Join(dir, "ingest_status.json"))
	assert.Equal(t, StateIdle, store.Load().Status)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ingest_status.json"), []byte("{oops"), 0o644))
	assert.Equal(t, Status{Status: StateIdle}, store.Load())
}

func TestStatusStore_NullFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ingest_status.json")
	store := NewStatusStore(path)
	require.NoError(t, store.Save(Status{Status: StateIdle}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"started_at": null`)
	assert.Contains(t, string(raw), `"error_message": null`)
}
