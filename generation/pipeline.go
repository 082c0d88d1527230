// Package generation drains queued paths through a bounded pool of summary generations.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meysamhadeli/codedoc/documentation/models"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/utils"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency   = 3
	DefaultTimeout       = 60 * time.Second
	DefaultShutdownGrace = 10 * time.Second
)

// DocumentStore receives generated documentation.
type DocumentStore interface {
	Upsert(doc models.FileDocumentation) error
	Remove(relPath string) (bool, error)
	RemoveUnder(prefix string) ([]string, error)
	Flush() error
}

// Summarizer documents a single file.
type Summarizer interface {
	Generate(ctx context.Context, relPath string, content []byte, modTime time.Time) (*models.FileDocumentation, error)
}

// FileLister enumerates every eligible file in the workspace.
type FileLister interface {
	ListFiles(ctx context.Context) ([]string, error)
}

type PipelineOptions struct {
	Concurrency int
	Timeout     time.Duration
	Logger      *slog.Logger
	// Eligible rejects paths that must never reach the summarizer. Nil accepts every path.
	Eligible    func(relPath string) bool
}

// Stats counts item outcomes since the pipeline was created.
type Stats struct {
	Generated int64
	Failed    int64
	Removed   int64
	Pending   int
}

// Pipeline owns the generation queue and the single drain loop that empties it.
type Pipeline struct {
	root        string
	queue       *Queue
	store       DocumentStore
	summarizer  Summarizer
	lister      FileLister
	concurrency int
	timeout     time.Duration
	eligible    func(relPath string) bool
	logger      *slog.Logger
	removals    *removalLog

	ctx    context.Context
	cancel context.CancelFunc

	lock     drainLock
	notify   chan struct{}
	mutex    sync.Mutex
	stopping atomic.Bool
	drains   sync.WaitGroup

	generated atomic.Int64
	failed    atomic.Int64
	removed   atomic.Int64
}

// NewPipeline wires the queue to a store and a summarizer. lister may be nil if RegenerateAll is never used.
func NewPipeline(root string, store DocumentStore, summarizer Summarizer, lister FileLister, opts PipelineOptions) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		root:        root,
		queue:       NewQueue(),
		store:       store,
		summarizer:  summarizer,
		lister:      lister,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		eligible:    opts.Eligible,
		removals:    newRemovalLog(),
		logger:      logger.OrDiscard(opts.Logger).With("component", "generation"),
		ctx:         ctx,
		cancel:      cancel,
		notify:      make(chan struct{}, 1),
	}
}

// Enqueue adds relPath to the queue and starts draining if no drain is running.
// It returns false for duplicates, ineligible paths and after Stop.
func (p *Pipeline) Enqueue(relPath string) bool {
	if p.stopping.Load() {
		return false
	}
	if p.eligible != nil && !p.eligible(relPath) {
		p.logger.Debug("rejecting ineligible path", "path", relPath)
		return false
	}
	if !p.queue.Enqueue(relPath) {
		return false
	}

	select {
	case p.notify <- struct{}{}:
	default:
	}
	p.kick()
	return true
}

// EnqueueAll enqueues each path and returns how many were new.
func (p *Pipeline) EnqueueAll(relPaths []string) int {
	added := 0
	for _, relPath := range relPaths {
		if p.Enqueue(relPath) {
			added++
		}
	}
	return added
}

// RegenerateAll discards the pending queue and enqueues every file the lister reports.
func (p *Pipeline) RegenerateAll(ctx context.Context) (int, error) {
	if p.lister == nil {
		return 0, errors.New("no file lister configured")
	}

	dropped := p.queue.Clear()
	files, err := p.lister.ListFiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list workspace files: %w", err)
	}

	added := p.EnqueueAll(files)
	p.logger.Info("regenerating all documentation", "files", added, "dropped_pending", len(dropped))
	return added, nil
}

// HandleRemoval forgets a deleted file.
func (p *Pipeline) HandleRemoval(relPath string) {
	p.queue.Remove(relPath)

	var removed bool
	var err error
	p.removals.record(relPath, false, func() {
		removed, err = p.store.Remove(relPath)
	})
	if err != nil {
		p.logger.Warn("failed to remove documentation", "path", relPath, "error", err)
	}
	if removed {
		p.removed.Add(1)
		p.logger.Info("documentation removed", "path", relPath)
	}
}

// HandleDirectoryRemoval forgets every file below a deleted directory.
func (p *Pipeline) HandleDirectoryRemoval(prefix string) {
	p.queue.RemoveUnder(prefix)

	var removed []string
	var err error
	p.removals.record(prefix, true, func() {
		removed, err = p.store.RemoveUnder(prefix)
	})
	if err != nil {
		p.logger.Warn("failed to remove documentation", "prefix", prefix, "error", err)
	}
	if len(removed) > 0 {
		p.removed.Add(int64(len(removed)))
		p.logger.Info("documentation removed", "prefix", prefix, "files", len(removed))
	}
}

// Idle reports whether nothing is queued and no drain loop is running.
func (p *Pipeline) Idle() bool {
	return !p.lock.Held() && p.queue.Len() == 0
}

// WaitIdle blocks until the pipeline is idle or ctx ends.
func (p *Pipeline) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for !p.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Generated: p.generated.Load(),
		Failed:    p.failed.Load(),
		Removed:   p.removed.Load(),
		Pending:   p.queue.Len(),
	}
}

// Stop rejects new work and waits up to grace for in-flight generations.
// Whatever is still running afterwards is cancelled and its result dropped.
// The store is flushed before Stop returns.
func (p *Pipeline) Stop(grace time.Duration) error {
	p.mutex.Lock()
	p.stopping.Store(true)
	p.mutex.Unlock()

	if dropped := p.queue.Clear(); len(dropped) > 0 {
		p.logger.Info("discarding queued generations", "count", len(dropped))
		p.logger.Debug("discarded generations", "paths", dropped)
	}

	done := make(chan struct{})
	go func() {
		p.drains.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		p.logger.Warn("shutdown grace period elapsed, cancelling in-flight generations", "grace", grace)
		p.cancel()
		<-done
	}
	p.cancel()

	if err := p.store.Flush(); err != nil {
		return fmt.Errorf("failed to flush documentation store: %w", err)
	}
	return nil
}

// kick starts the drain loop unless one is already running.
func (p *Pipeline) kick() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.stopping.Load() || !p.lock.TryAcquire() {
		return
	}
	p.drains.Add(1)
	go p.drain()
}

func (p *Pipeline) drain() {
	defer p.drains.Done()

	for {
		started := time.Now()
		processed := p.runPool()

		if err := p.store.Flush(); err != nil {
			p.logger.Error("failed to flush documentation store", "error", err)
		}
		if processed > 0 {
			p.logger.Info("generation queue drained", "processed", processed, "duration", time.Since(started))
		}

		p.lock.Release()

		// Paths enqueued after the pool exited but before Release found the lock held.
		if p.stopping.Load() || p.queue.Len() == 0 || !p.lock.TryAcquire() {
			return
		}
	}
}

// runPool dispatches queued paths to at most p.concurrency workers until the queue
// is empty and every worker has finished. A slow item only occupies its own slot,
// and a path is never handed to two workers at once.
func (p *Pipeline) runPool() int {
	group := new(errgroup.Group)
	group.SetLimit(p.concurrency)

	var runningMutex sync.Mutex
	running := make(map[string]struct{}, p.concurrency)
	busy := func(relPath string) bool {
		runningMutex.Lock()
		defer runningMutex.Unlock()
		_, ok := running[relPath]
		return ok
	}
	inflight := func() int {
		runningMutex.Lock()
		defer runningMutex.Unlock()
		return len(running)
	}

	finished := make(chan struct{}, p.concurrency)
	processed := 0

dispatch:
	for !p.stopping.Load() {
		if inflight() < p.concurrency {
			if relPath, ok := p.queue.Pop(busy); ok {
				runningMutex.Lock()
				running[relPath] = struct{}{}
				runningMutex.Unlock()
				processed++

				group.Go(func() error {
					defer func() {
						runningMutex.Lock()
						delete(running, relPath)
						runningMutex.Unlock()
						select {
						case finished <- struct{}{}:
						default:
						}
					}()
					p.processItem(relPath)
					return nil
				})
				continue
			}
			// Anything left in the queue is waiting for its own run to finish.
			if inflight() == 0 {
				break
			}
		}

		select {
		case <-p.notify:
		case <-finished:
		case <-p.ctx.Done():
			break dispatch
		}
	}

	_ = group.Wait()
	return processed
}

func (p *Pipeline) processItem(relPath string) {
	mark := p.removals.begin()
	defer p.removals.end()

	absPath := utils.AbsolutePath(p.root, relPath)

	info, err := os.Stat(absPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to stat queued file", "path", relPath, "error", err)
		}
		p.HandleRemoval(relPath)
		return
	}
	if info.IsDir() {
		p.logger.Debug("skipping queued directory", "path", relPath)
		return
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		p.logger.Warn("failed to read queued file", "path", relPath, "error", err)
		p.HandleRemoval(relPath)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	started := time.Now()
	doc, err := p.summarizer.Generate(ctx, relPath, content, info.ModTime())
	if p.ctx.Err() != nil {
		p.logger.Debug("dropping generation cancelled by shutdown", "path", relPath)
		return
	}
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("documentation generation failed", "path", relPath, "error", err)
		return
	}

	stored, err := p.removals.commit(relPath, mark, func() error {
		return p.store.Upsert(*doc)
	})
	if !stored {
		p.logger.Debug("dropping generation for removed file", "path", relPath)
		return
	}
	if err != nil {
		p.logger.Warn("failed to store documentation", "path", relPath, "error", err)
	}
	p.generated.Add(1)
	p.logger.Debug("documentation generated", "path", relPath, "duration", time.Since(started))
}
