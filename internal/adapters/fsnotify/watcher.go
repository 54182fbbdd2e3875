// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a seed directory, reports new or rewritten regular files,
// skips editor and temp files, and reports a file only after its events have
// settled (editors and copy tools often create, then write several times).
package fsnotify

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Directories to ignore when watching.
var ignoreDirs = map[string]bool{
	".git":  true,
	".hg":   true,
	".svn":  true,
	".weft": true,
	".idea": true,
}

// File suffixes to ignore.
var ignoreSuffixes = []string{
	".swp",
	".swx",
	".tmp",
	".part",
	".crdownload",
	"~",
}

const debounceInterval = 50 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewWatcher creates a new seed directory watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:     fw,
		done:   make(chan struct{}),
		logger: slog.Default().With(slog.String("component", "watcher")),
	}, nil
}

// Watch starts monitoring dir recursively.
// onChange is called on the watcher goroutine with the absolute path of each
// created or written regular file, debounceInterval after its last event.
func (w *Watcher) Watch(dir string, onChange func(filePath string)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			if shouldIgnoreDir(d.Name()) && path != absPath {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop(onChange)

	return nil
}

// pending is a file waiting out its quiet period. seq identifies the timer
// currently armed for it; older timers that still fire are ignored.
type pending struct {
	timer *time.Timer
	seq   uint64
}

type settled struct {
	path string
	seq  uint64
}

// loop reports each file once it has seen no Create or Write for
// debounceInterval, so a file is read after its writer is done with it.
// onChange runs only on this goroutine.
func (w *Watcher) loop(onChange func(filePath string)) {
	defer w.wg.Done()

	waiting := make(map[string]*pending)
	ready := make(chan settled)
	defer func() {
		for _, p := range waiting {
			p.timer.Stop()
		}
	}()

	arm := func(path string) {
		p, ok := waiting[path]
		if !ok {
			p = &pending{}
			waiting[path] = p
		} else {
			p.timer.Stop()
		}
		p.seq++
		seq := p.seq
		p.timer = time.AfterFunc(debounceInterval, func() {
			select {
			case ready <- settled{path: path, seq: seq}:
			case <-w.done:
			}
		})
	}

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name

			info, err := os.Stat(path)
			if err != nil {
				continue // already gone
			}
			if info.IsDir() {
				if event.Has(fsnotify.Create) && !shouldIgnoreDir(info.Name()) {
					if err := w.fw.Add(path); err != nil {
						w.logger.Warn("watch subdirectory", slog.String("path", path), slog.Any("error", err))
					}
				}
				continue
			}
			if !info.Mode().IsRegular() || shouldIgnorePath(path) {
				continue
			}
			arm(path)

		case s := <-ready:
			p, ok := waiting[s.path]
			if !ok || p.seq != s.seq {
				continue // superseded by a later event
			}
			delete(waiting, s.path)
			if info, err := os.Stat(s.path); err != nil || !info.Mode().IsRegular() {
				continue
			}
			onChange(s.path)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("fsnotify error", slog.Any("error", err))

		case <-w.done:
			return
		}
	}
}

// Stop ends monitoring and releases all resources. It waits for the event
// loop, so no onChange call runs after it returns. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

// shouldIgnoreDir returns true if the directory name should be skipped.
func shouldIgnoreDir(name string) bool {
	return ignoreDirs[name]
}

// shouldIgnorePath returns true if the file should not be reported.
// Hidden files cover in-progress atomic writes (".name.tmp-*").
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}

	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
