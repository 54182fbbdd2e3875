// Package app wires together all adapters and domain logic.
// It owns the fuzzing state for one session: restore on open, seed import,
// scheduling, persistence.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/corey/weft/internal/adapters/bbolt"
	"github.com/corey/weft/internal/domain/corpus"
	"github.com/corey/weft/internal/domain/input"
	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/domain/scheduler"
	"github.com/corey/weft/internal/domain/state"
)

// Scheduler names accepted by Config.Scheduler.
const (
	SchedulerWeighted = "weighted"
	SchedulerQueue    = "queue"
)

// DefaultSessionID names the session used when none is configured.
const DefaultSessionID = "default"

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	SessionID   string
	Paths       *Paths

	Store     *bbolt.Store
	State     *state.State
	Corpus    *corpus.OnDisk
	Solutions *corpus.OnDisk
	Scheduler scheduler.Scheduler
	Loader    input.BytesLoader

	schedulerName string
	restored      bool
	execRate      *ExecRateTracker
	logger        *slog.Logger
	mu            sync.Mutex // serializes state access (watch events vs. commands)
}

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot  string
	SessionID    string       // default: "default"
	DBPath       string       // path to bbolt file (default: .weft/weft.db)
	QueueDir     string       // corpus directory (default: .weft/queue/<session>)
	Strategy     string       // power schedule; "" keeps the stored one (explore when fresh)
	Scheduler    string       // "weighted" (default) or "queue"
	Seed         uint64       // RNG seed for fresh sessions (0 = time-based)
	TableSize    int          // novelty buckets (default: powersched.DefaultTableSize)
	KeepInMemory bool         // keep corpus inputs cached after writing them
	MaxInputSize int          // largest accepted input (default: input.DefaultMaxSize)
	Logger       *slog.Logger // default: slog.Default()
}

// New creates an App with the session's state restored from the store, or a
// fresh state when the session has no snapshot yet.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	paths := NewPaths(cfg.ProjectRoot)
	if cfg.SessionID == "" {
		cfg.SessionID = DefaultSessionID
	}
	if cfg.DBPath == "" {
		cfg.DBPath = paths.DB
	}
	if cfg.QueueDir == "" {
		cfg.QueueDir = paths.SessionQueueDir(cfg.SessionID)
	}
	if cfg.Scheduler == "" {
		cfg.Scheduler = SchedulerWeighted
	}
	if cfg.TableSize <= 0 {
		cfg.TableSize = powersched.DefaultTableSize
	}
	if cfg.MaxInputSize <= 0 {
		cfg.MaxInputSize = input.DefaultMaxSize
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With(slog.String("component", "app"), slog.String("session", cfg.SessionID))

	schedName := strings.ToLower(cfg.Scheduler)
	if schedName != SchedulerWeighted && schedName != SchedulerQueue {
		return nil, fmt.Errorf("unknown scheduler %q (want %s or %s)", cfg.Scheduler, SchedulerWeighted, SchedulerQueue)
	}
	var strategy *powersched.Strategy
	if cfg.Strategy != "" {
		s, err := powersched.ParseStrategy(cfg.Strategy)
		if err != nil {
			return nil, err
		}
		strategy = &s
	}

	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create %s: %w", paths.Root, err)
	}

	var opts []corpus.OnDiskOption
	if cfg.KeepInMemory {
		opts = append(opts, corpus.KeepInMemory())
	}
	queue, err := corpus.NewOnDisk(cfg.QueueDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	solutions, err := corpus.NewOnDisk(paths.SessionSolutionsDir(cfg.SessionID))
	if err != nil {
		return nil, fmt.Errorf("open solutions: %w", err)
	}

	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	snap, err := store.LoadSnapshot(cfg.SessionID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var st *state.State
	if snap != nil {
		st, err = state.Restore(snap, queue, solutions)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("restore state: %w", err)
		}
		if _, err := metadata.Lookup[powersched.GlobalMetadata](st.Metadata()); err != nil {
			store.Close()
			return nil, fmt.Errorf("restore state: %w", err)
		}
		logger.Debug("restored session",
			slog.Int("corpus", queue.Count()),
			slog.Uint64("executions", st.Executions()))
	} else {
		st = state.New(queue, solutions, state.NewStdRand(cfg.Seed), cfg.MaxInputSize)
		s := powersched.Explore
		if strategy != nil {
			s = *strategy
		}
		metadata.Insert(st.Metadata(), powersched.NewGlobalMetadata(s, cfg.TableSize))
		logger.Debug("new session", slog.Uint64("seed", cfg.Seed), slog.String("strategy", s.String()))
	}

	a := &App{
		ProjectRoot:   cfg.ProjectRoot,
		SessionID:     cfg.SessionID,
		Paths:         paths,
		Store:         store,
		State:         st,
		Corpus:        queue,
		Solutions:     solutions,
		Loader:        input.BytesLoader{MaxSize: cfg.MaxInputSize},
		schedulerName: schedName,
		restored:      snap != nil,
		execRate:      NewExecRateTracker(time.Minute),
		logger:        logger,
	}

	switch schedName {
	case SchedulerQueue:
		a.Scheduler = scheduler.NewQueue(st)
	default:
		a.Scheduler = scheduler.NewWeighted(st)
	}

	if strategy != nil && snap != nil {
		g, _ := metadata.Lookup[powersched.GlobalMetadata](st.Metadata())
		if g.Strategy != *strategy {
			logger.Info("switching power schedule",
				slog.String("from", g.Strategy.String()),
				slog.String("to", strategy.String()))
			g.Strategy = *strategy
		}
	}

	// Alias tables are never trusted across a restore.
	if err := a.invalidate(); err != nil {
		store.Close()
		return nil, err
	}

	return a, nil
}

// Restored reports whether the session was loaded from a snapshot.
func (a *App) Restored() bool {
	return a.restored
}

// SchedulerName returns "weighted" or "queue".
func (a *App) SchedulerName() string {
	return a.schedulerName
}

// invalidate marks the weighted alias table stale. No-op for the queue scheduler.
func (a *App) invalidate() error {
	if _, ok := a.Scheduler.(*scheduler.Weighted); !ok {
		return nil
	}
	return scheduler.Invalidate(a.State)
}

// globals returns the power schedule globals. New guarantees they exist.
func (a *App) globals() (*powersched.GlobalMetadata, error) {
	return metadata.Lookup[powersched.GlobalMetadata](a.State.Metadata())
}

// Save persists the session snapshot.
func (a *App) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saveLocked()
}

func (a *App) saveLocked() error {
	snap, err := a.State.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := a.Store.SaveSnapshot(a.SessionID, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	a.logger.Debug("saved", slog.Int("corpus", len(snap.Testcases)))
	return nil
}

// Close releases the store. It does not save.
func (a *App) Close() error {
	return a.Store.Close()
}

// Reset deletes a session's snapshot and the on-disk corpus. The App for the
// session must not be open.
func Reset(projectRoot, sessionID, dbPath string) error {
	paths := NewPaths(projectRoot)
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	if dbPath == "" {
		dbPath = paths.DB
	}
	if !paths.Initialized() {
		return nil
	}

	store, err := bbolt.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := store.DeleteSession(sessionID); err != nil {
		store.Close()
		return fmt.Errorf("delete session: %w", err)
	}
	if err := store.Close(); err != nil {
		return err
	}
	if err := paths.RemoveCorpus(sessionID); err != nil {
		return fmt.Errorf("remove corpus: %w", err)
	}
	return nil
}

// relativePath returns path relative to the project root when possible.
func (a *App) relativePath(path string) string {
	if rel, err := filepath.Rel(a.ProjectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
