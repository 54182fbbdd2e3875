package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/domain/scheduler"
)

// Pick is one scheduler decision.
type Pick struct {
	Index int
	File  string // relative to the project root when inside it
}

// MaxSelect bounds the picks one Select call may draw.
const MaxSelect = 1 << 16

// Select draws n indices from the scheduler. With record set, every pick is
// booked as one fuzzing round: the entry's fuzz level and its novelty bucket
// count go up and the execution counter advances, so later scores reflect
// the selection history. All picks of one call are drawn from the same
// weighted table; it is invalidated once at the end. The session is saved
// afterwards.
func (a *App) Select(n int, record bool) ([]Pick, error) {
	if n <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", n)
	}
	if n > MaxSelect {
		return nil, fmt.Errorf("count %d exceeds limit %d", n, MaxSelect)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	g, err := a.globals()
	if err != nil {
		return nil, err
	}

	picks, err := a.drawLocked(g, n, record)
	if record && len(picks) > 0 {
		if ierr := a.invalidate(); ierr != nil && err == nil {
			err = ierr
		}
	}
	if err != nil {
		return picks, err
	}
	if err := a.saveLocked(); err != nil {
		return picks, err
	}
	return picks, nil
}

func (a *App) drawLocked(g *powersched.GlobalMetadata, n int, record bool) ([]Pick, error) {
	var picks []Pick
	for i := 0; i < n; i++ {
		idx, err := a.Scheduler.Next(a.State)
		if err != nil {
			return picks, err
		}
		tc, err := a.Corpus.Get(idx)
		if err != nil {
			return picks, err
		}
		picks = append(picks, Pick{Index: idx, File: a.relativePath(tc.Filename())})

		if !record {
			continue
		}
		meta, err := metadata.Lookup[powersched.TestcaseMetadata](tc.Metadata())
		if err != nil {
			return picks, fmt.Errorf("testcase %d: %w", idx, err)
		}
		powersched.MarkFuzzed(meta)
		if !powersched.RecordExecution(g, meta) {
			a.logger.Warn("novelty bucket outside table",
				slog.Int("index", idx),
				slog.Int("bucket", meta.NFuzzEntry),
				slog.Int("table", len(g.NFuzz)))
		}
		a.State.AddExecutions(1)
		a.execRate.Record(1)
	}
	return picks, nil
}

// Calibrate records a measured execution time and coverage size for the
// entry at idx, feeding the speed and bitmap multipliers. A measurement
// needs a positive execution time. The session is saved afterwards.
func (a *App) Calibrate(idx int, execTime time.Duration, bitmapSize uint64) error {
	if execTime <= 0 {
		return fmt.Errorf("execution time must be positive, got %s", execTime)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	g, err := a.globals()
	if err != nil {
		return err
	}
	tc, err := a.Corpus.Get(idx)
	if err != nil {
		return err
	}
	meta, err := metadata.Lookup[powersched.TestcaseMetadata](tc.Metadata())
	if err != nil {
		return fmt.Errorf("testcase %d: %w", idx, err)
	}
	if !powersched.Calibrate(g, meta, execTime, bitmapSize) {
		return fmt.Errorf("testcase %d: measurement rejected", idx)
	}
	if err := a.invalidate(); err != nil {
		return err
	}
	return a.saveLocked()
}

// Entry is one row of the corpus report.
type Entry struct {
	Index     int
	File      string
	Depth     uint64
	Bucket    int
	Hits      uint32
	FuzzLevel uint64
	Score     float64 // weighted scheduler only
	Share     float64 // probability of being picked by the next draw
	Current   bool
}

// Report describes every corpus entry. For the weighted scheduler the alias
// table is rebuilt first so scores and shares are current.
func (a *App) Report() ([]Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.Corpus.Count()
	if n == 0 {
		return nil, nil
	}
	g, err := a.globals()
	if err != nil {
		return nil, err
	}

	var scores []float64
	var total float64
	if w, ok := a.Scheduler.(*scheduler.Weighted); ok {
		if err := w.Rebuild(a.State); err != nil {
			return nil, err
		}
		wmeta, err := metadata.Lookup[scheduler.WeightedMetadata](a.State.Metadata())
		if err != nil {
			return nil, err
		}
		scores = wmeta.PerfScores
		for _, s := range scores {
			total += s
		}
	}

	cur, hasCur := a.Corpus.Current()
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		tc, err := a.Corpus.Get(i)
		if err != nil {
			return nil, err
		}
		meta, err := metadata.Lookup[powersched.TestcaseMetadata](tc.Metadata())
		if err != nil {
			return nil, fmt.Errorf("testcase %d: %w", i, err)
		}
		hits, _ := g.Hits(meta.NFuzzEntry)
		e := Entry{
			Index:     i,
			File:      a.relativePath(tc.Filename()),
			Depth:     meta.Depth,
			Bucket:    meta.NFuzzEntry,
			Hits:      hits,
			FuzzLevel: meta.FuzzLevel,
			Share:     1 / float64(n),
			Current:   hasCur && cur == i,
		}
		if scores != nil {
			e.Score = scores[i]
			e.Share = scores[i] / total
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stats is a session summary.
type Stats struct {
	SessionID   string
	Scheduler   string
	Strategy    string
	Corpus      int
	Solutions   int
	Executions  uint64
	ExecsPerSec float64 // this process only
	QueueCycles uint64
	RunsInCycle uint64
	Current     int // -1 = none
	StartedAt   time.Time
}

// Stats summarizes the session.
func (a *App) Stats() (Stats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g, err := a.globals()
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		SessionID:   a.SessionID,
		Scheduler:   a.schedulerName,
		Strategy:    g.Strategy.String(),
		Corpus:      a.Corpus.Count(),
		Solutions:   a.Solutions.Count(),
		Executions:  a.State.Executions(),
		ExecsPerSec: a.execRate.PerSec(),
		QueueCycles: g.QueueCycles,
		Current:     -1,
		StartedAt:   a.State.StartTime(),
	}
	if cur, ok := a.Corpus.Current(); ok {
		s.Current = cur
	}
	switch a.Scheduler.(type) {
	case *scheduler.Weighted:
		if w, err := metadata.Lookup[scheduler.WeightedMetadata](a.State.Metadata()); err == nil {
			s.RunsInCycle = w.RunsInCurrentCycle
		}
	case *scheduler.Queue:
		if q, err := metadata.Lookup[scheduler.QueueMetadata](a.State.Metadata()); err == nil {
			s.RunsInCycle = q.RunsInCurrentCycle
		}
	}
	return s, nil
}
