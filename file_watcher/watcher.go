// Package file_watcher turns filesystem notifications into queue and removal calls.
package file_watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/meysamhadeli/codedoc/debouncer"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/utils"
)

const DefaultDebounce = time.Second

// Sink receives settled changes.
type Sink interface {
	Enqueue(relPath string) bool
	HandleRemoval(relPath string)
	HandleDirectoryRemoval(prefix string)
}

type WatcherOptions struct {
	Debounce time.Duration
	Clock    debouncer.Clock
	Logger   *slog.Logger
}

// Watcher normalizes and filters events, debounces adds and changes per path,
// and forwards deletions immediately.
type Watcher struct {
	root      string
	source    EventSource
	matcher   *utils.IgnoreMatcher
	sink      Sink
	debouncer *debouncer.Debouncer
	logger    *slog.Logger
}

func NewWatcher(root string, source EventSource, matcher *utils.IgnoreMatcher, sink Sink, opts WatcherOptions) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		root:      root,
		source:    source,
		matcher:   matcher,
		sink:      sink,
		debouncer: debouncer.New(opts.Debounce, opts.Clock),
		logger:    logger.OrDiscard(opts.Logger).With("component", "watcher"),
	}
}

// Run consumes events until ctx ends or the source closes. Pending debounces are dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debouncer.Stop()

	events := w.source.Events()
	errs := w.source.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.HandleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

// Pending returns the number of paths waiting for their debounce window.
func (w *Watcher) Pending() int {
	return w.debouncer.Pending()
}

// HandleEvent applies one raw event.
func (w *Watcher) HandleEvent(ev Event) {
	relPath, err := utils.NormalizePath(w.root, ev.Path)
	if err != nil || relPath == "" {
		return
	}

	switch ev.Kind {
	case EventUnlink:
		if w.matcher.IsIgnored(relPath, false) {
			return
		}
		w.debouncer.Cancel(relPath)
		w.debouncer.CancelPrefix(relPath)

		w.logger.Debug("path removed", "path", relPath)
		if w.matcher.IsImportant(relPath) {
			w.sink.HandleRemoval(relPath)
		} else {
			w.sink.HandleDirectoryRemoval(relPath)
		}
	case EventAdd, EventChange:
		if !w.matcher.ShouldTrack(relPath) {
			return
		}
		w.debouncer.Trigger(relPath, func() { w.settle(relPath) })
	}
}

// settle runs once a path has been quiet for the debounce window.
func (w *Watcher) settle(relPath string) {
	info, err := os.Stat(utils.AbsolutePath(w.root, relPath))
	if err != nil {
		w.logger.Debug("path vanished before settling", "path", relPath)
		w.sink.HandleRemoval(relPath)
		return
	}
	if info.IsDir() {
		return
	}

	if w.sink.Enqueue(relPath) {
		w.logger.Debug("queued for documentation", "path", relPath)
	}
}
