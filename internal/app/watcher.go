package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corey/weft/internal/domain/input"
	"github.com/corey/weft/internal/ports"
)

// Watch ingests new and rewritten files under dir as seeds until ctx is
// cancelled. The watcher delivers paths on its own goroutine; they are handed
// to this loop over a channel so only one goroutine ever touches the state.
// Every drained batch is saved. onAdd, when non-nil, is called per added seed.
func (a *App) Watch(ctx context.Context, w ports.Watcher, dir string, onAdd func(idx int, path string)) error {
	events := make(chan string, 64)
	quit := make(chan struct{})
	err := w.Watch(dir, func(path string) {
		select {
		case events <- path:
		case <-ctx.Done():
		case <-quit:
		}
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Stop()
	// Unblocks a pending callback so Stop can wait for the watcher goroutine.
	defer close(quit)

	a.logger.Info("watching for seeds", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-events:
			batch := []string{path}
			for drained := false; !drained; {
				select {
				case p := <-events:
					batch = append(batch, p)
				default:
					drained = true
				}
			}
			if err := a.ingest(batch, onAdd); err != nil {
				return err
			}
		}
	}
}

// ingest adds each readable, non-empty file in batch and saves once.
// Unreadable files are logged and skipped: they may have vanished between
// the event and the read.
func (a *App) ingest(batch []string, onAdd func(idx int, path string)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, path := range batch {
		in, err := a.Loader.FromFile(path)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, input.ErrTooLarge) {
				level = slog.LevelInfo
			}
			a.logger.Log(context.Background(), level, "skipping seed", slog.String("path", path), slog.Any("error", err))
			continue
		}
		data := in.(input.Bytes)
		if len(data) == 0 {
			continue
		}
		idx, err := a.addSeedLocked(data)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		added++
		if onAdd != nil {
			onAdd(idx, path)
		}
	}

	if added == 0 {
		return nil
	}
	a.logger.Info("ingested seeds", slog.Int("added", added), slog.Int("corpus", a.Corpus.Count()))
	return a.saveLocked()
}
