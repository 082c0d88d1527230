package file_watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/meysamhadeli/codedoc/logger"
)

// FSNotifySource watches a directory tree recursively with fsnotify.
// Directories created after start are added to the watch set and their files reported as added.
type FSNotifySource struct {
	watcher   *fsnotify.Watcher
	root      string
	skipDir   func(absPath string) bool
	events    chan Event
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// NewFSNotifySource starts watching root. skipDir, if set, prunes directories from the watch set.
func NewFSNotifySource(root string, skipDir func(absPath string) bool, log *slog.Logger) (*FSNotifySource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if skipDir == nil {
		skipDir = func(string) bool { return false }
	}

	s := &FSNotifySource{
		watcher: watcher,
		root:    root,
		skipDir: skipDir,
		events:  make(chan Event, 256),
		errors:  make(chan error, 16),
		done:    make(chan struct{}),
		logger:  logger.OrDiscard(log).With("component", "fsnotify"),
	}

	if err := s.addRecursive(root, false); err != nil {
		watcher.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.loop()
	return s, nil
}

func (s *FSNotifySource) Events() <-chan Event { return s.events }
func (s *FSNotifySource) Errors() <-chan error { return s.errors }

// Close stops watching and closes the event channels.
func (s *FSNotifySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
		close(s.events)
		close(s.errors)
	})
	return err
}

// addRecursive watches dir and every directory below it. With emitFiles set,
// files found on the way are reported as added; they may predate the watch.
func (s *FSNotifySource) addRecursive(dir string, emitFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			if path != s.root && s.skipDir(path) {
				return filepath.SkipDir
			}
			if err := s.watcher.Add(path); err != nil {
				s.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
			return nil
		}

		if emitFiles {
			s.emit(Event{Kind: EventAdd, Path: path})
		}
		return nil
	})
}

func (s *FSNotifySource) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.translate(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			default:
				s.logger.Warn("dropping watcher error", "error", err)
			}
		}
	}
}

func (s *FSNotifySource) translate(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			if s.skipDir(ev.Name) {
				return
			}
			if err := s.addRecursive(ev.Name, true); err != nil {
				s.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
		s.emit(Event{Kind: EventAdd, Path: ev.Name})
	case ev.Has(fsnotify.Write):
		s.emit(Event{Kind: EventChange, Path: ev.Name})
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		s.emit(Event{Kind: EventUnlink, Path: ev.Name})
	}
}

func (s *FSNotifySource) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
