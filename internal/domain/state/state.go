// Package state is the fuzzing state aggregate: the corpus, the solutions,
// global metadata, the random source and execution counters. A State has a
// single owner (the driver loop) and no internal locking.
package state

import (
	"fmt"
	"time"

	"github.com/corey/weft/internal/domain/corpus"
	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/testcase"
	"github.com/corey/weft/internal/ports"
)

type State struct {
	corpus     corpus.Corpus
	solutions  corpus.Corpus
	metadata   *metadata.Map
	rand       *StdRand
	executions uint64
	startTime  time.Time
	maxSize    int
}

// New creates a fresh state. maxSize bounds generated inputs.
func New(c, solutions corpus.Corpus, r *StdRand, maxSize int) *State {
	return &State{
		corpus:    c,
		solutions: solutions,
		metadata:  metadata.NewMap(),
		rand:      r,
		startTime: time.Now(),
		maxSize:   maxSize,
	}
}

func (s *State) Corpus() corpus.Corpus    { return s.corpus }
func (s *State) Solutions() corpus.Corpus { return s.solutions }
func (s *State) Metadata() *metadata.Map  { return s.metadata }
func (s *State) Rand() ports.Rand         { return s.rand }
func (s *State) StdRand() *StdRand        { return s.rand }
func (s *State) Executions() uint64       { return s.executions }
func (s *State) StartTime() time.Time     { return s.startTime }
func (s *State) MaxSize() int             { return s.maxSize }

// AddExecutions counts n target executions.
func (s *State) AddExecutions(n uint64) {
	s.executions += n
}

// Snapshot captures everything needed to resume. Inputs are not copied;
// every testcase must already be file-backed.
func (s *State) Snapshot() (*ports.Snapshot, error) {
	globals, err := s.metadata.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode global metadata: %w", err)
	}
	randState, err := s.rand.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal rand: %w", err)
	}
	entries, err := records(s.corpus)
	if err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	solutions, err := records(s.solutions)
	if err != nil {
		return nil, fmt.Errorf("solutions: %w", err)
	}

	current := -1
	if idx, ok := s.corpus.Current(); ok {
		current = idx
	}

	return &ports.Snapshot{
		Executions: s.executions,
		StartedAt:  s.startTime.Unix(),
		MaxSize:    s.maxSize,
		Rand:       randState,
		Current:    current,
		Metadata:   globals,
		Testcases:  entries,
		Solutions:  solutions,
	}, nil
}

func records(c corpus.Corpus) ([]ports.TestcaseRecord, error) {
	if c == nil {
		return nil, nil
	}
	out := make([]ports.TestcaseRecord, 0, c.Count())
	for i := 0; i < c.Count(); i++ {
		tc, err := c.Get(i)
		if err != nil {
			return nil, err
		}
		if tc.Filename() == "" {
			return nil, fmt.Errorf("%w: testcase %d is not file-backed", ports.ErrEmptyReference, i)
		}
		meta, err := tc.Metadata().Encode()
		if err != nil {
			return nil, fmt.Errorf("testcase %d: %w", i, err)
		}
		out = append(out, ports.TestcaseRecord{Filename: tc.Filename(), Metadata: meta})
	}
	return out, nil
}

// Restore rebuilds a state from a snapshot into the given empty corpora.
// Testcases come back in stored form; inputs are read on demand.
func Restore(snap *ports.Snapshot, c, solutions corpus.Corpus) (*State, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ports.ErrEmptyReference)
	}

	globals, err := metadata.Decode(snap.Metadata)
	if err != nil {
		return nil, fmt.Errorf("decode global metadata: %w", err)
	}
	r := NewStdRand(0)
	if err := r.UnmarshalBinary(snap.Rand); err != nil {
		return nil, err
	}
	if err := restoreRecords(c, snap.Testcases); err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	if solutions != nil {
		if err := restoreRecords(solutions, snap.Solutions); err != nil {
			return nil, fmt.Errorf("solutions: %w", err)
		}
	}
	if snap.Current >= 0 {
		if err := c.SetCurrent(snap.Current); err != nil {
			return nil, fmt.Errorf("%w: current index: %v", ports.ErrCorruptState, err)
		}
	}

	return &State{
		corpus:     c,
		solutions:  solutions,
		metadata:   globals,
		rand:       r,
		executions: snap.Executions,
		startTime:  time.Unix(snap.StartedAt, 0),
		maxSize:    snap.MaxSize,
	}, nil
}

func restoreRecords(c corpus.Corpus, recs []ports.TestcaseRecord) error {
	if c.Count() != 0 {
		return fmt.Errorf("%w: restore into a non-empty corpus", ports.ErrIllegalState)
	}
	for i, rec := range recs {
		meta, err := metadata.Decode(rec.Metadata)
		if err != nil {
			return fmt.Errorf("testcase %d: %w", i, err)
		}
		tc := testcase.NewStored(rec.Filename)
		tc.SetMetadata(meta)
		if _, err := c.Add(tc); err != nil {
			return fmt.Errorf("testcase %d: %w", i, err)
		}
	}
	return nil
}
