package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/corey/weft/internal/domain/input"
	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/domain/testcase"
	"golang.org/x/sync/errgroup"
)

// ImportResult summarizes a seed import.
type ImportResult struct {
	Added    []int    // corpus indices, in path order
	Empty    []string // skipped: zero-length files
	TooLarge []string // skipped: above the max input size
}

// ImportSeeds walks dirs recursively and adds every regular file as a seed.
// Files are read concurrently but added in sorted path order, so a given set
// of seed directories always produces the same corpus. Hidden files and
// directories are skipped. The session is saved when anything was added.
func (a *App) ImportSeeds(ctx context.Context, dirs []string) (ImportResult, error) {
	var res ImportResult

	var paths []string
	for _, dir := range dirs {
		found, err := listSeedFiles(dir)
		if err != nil {
			return res, err
		}
		paths = append(paths, found...)
	}
	sort.Strings(paths)

	inputs := make([]input.Bytes, len(paths))
	tooLarge := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in, err := a.Loader.FromFile(path)
			if errors.Is(err, input.ErrTooLarge) {
				tooLarge[i] = true
				return nil
			}
			if err != nil {
				return err
			}
			inputs[i] = in.(input.Bytes)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("read seeds: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, path := range paths {
		switch {
		case tooLarge[i]:
			a.logger.Warn("skipping oversized seed", slog.String("path", path))
			res.TooLarge = append(res.TooLarge, path)
			continue
		case len(inputs[i]) == 0:
			res.Empty = append(res.Empty, path)
			continue
		}
		idx, err := a.addSeedLocked(inputs[i])
		if err != nil {
			return res, fmt.Errorf("add %s: %w", path, err)
		}
		res.Added = append(res.Added, idx)
	}

	a.logger.Info("imported seeds",
		slog.Int("added", len(res.Added)),
		slog.Int("empty", len(res.Empty)),
		slog.Int("too_large", len(res.TooLarge)))

	if len(res.Added) == 0 {
		return res, nil
	}
	return res, a.saveLocked()
}

// listSeedFiles returns the regular files under dir, skipping hidden entries.
func listSeedFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(d.Name(), ".") && path != dir
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || !d.Type().IsRegular() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return out, nil
}

// AddSeed adds one input as a seed (depth 0) and returns its corpus index.
func (a *App) AddSeed(in input.Bytes) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addSeedLocked(in)
}

// addSeedLocked stamps the input's novelty bucket from its content hash, adds
// it to the corpus and notifies the scheduler. The current selection is
// hidden during the add so seeds are never attributed a parent.
func (a *App) addSeedLocked(in input.Bytes) (int, error) {
	g, err := a.globals()
	if err != nil {
		return 0, err
	}

	tc := testcase.New(in)
	metadata.Insert(tc.Metadata(), &powersched.TestcaseMetadata{
		NFuzzEntry: powersched.BucketID(in.Hash(), len(g.NFuzz)),
	})

	prev, hadCurrent := a.Corpus.Current()
	a.Corpus.ClearCurrent()
	defer func() {
		if hadCurrent {
			_ = a.Corpus.SetCurrent(prev)
		}
	}()

	idx, err := a.Corpus.Add(tc)
	if err != nil {
		return 0, err
	}
	if err := a.Scheduler.OnAdd(a.State, idx); err != nil {
		return 0, fmt.Errorf("schedule testcase %d: %w", idx, err)
	}
	a.logger.Debug("added seed", slog.Int("index", idx), slog.String("file", a.relativePath(tc.Filename())))
	return idx, nil
}

// AddSolutions records the files at paths as solutions: inputs that reached
// an objective, such as a crash. Solutions are kept in their own corpus and
// never scheduled. Empty files are rejected. The session is saved afterwards.
func (a *App) AddSolutions(paths []string) ([]int, error) {
	inputs := make([]input.Bytes, len(paths))
	for i, path := range paths {
		in, err := a.Loader.FromFile(path)
		if err != nil {
			return nil, err
		}
		b := in.(input.Bytes)
		if len(b) == 0 {
			return nil, fmt.Errorf("solution %s is empty", path)
		}
		inputs[i] = b
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	added := make([]int, 0, len(inputs))
	for i, in := range inputs {
		idx, err := a.Solutions.Add(testcase.New(in))
		if err != nil {
			return added, fmt.Errorf("add solution %s: %w", paths[i], err)
		}
		a.logger.Info("added solution", slog.Int("index", idx), slog.String("source", paths[i]))
		added = append(added, idx)
	}
	if len(added) == 0 {
		return added, nil
	}
	return added, a.saveLocked()
}
