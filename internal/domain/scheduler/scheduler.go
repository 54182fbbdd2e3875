// Package scheduler decides which corpus entry to fuzz next.
//
// Schedulers are stateless: everything they remember lives in the global
// metadata of the State passed to each call, so a scheduler can be rebuilt
// from a restored snapshot and tested against fixture state.
package scheduler

import (
	"fmt"

	"github.com/corey/weft/internal/domain/corpus"
	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/ports"
)

// State is the part of the fuzzing state a scheduler needs. Access is
// exclusive for the duration of each call.
type State interface {
	Corpus() corpus.Corpus
	Metadata() *metadata.Map
	Rand() ports.Rand
}

// Scheduler picks corpus indices.
type Scheduler interface {
	// OnAdd is invoked once per newly inserted testcase, before it can be
	// scheduled.
	OnAdd(st State, idx int) error

	// Next returns the index to fuzz next and records it as the corpus'
	// current selection.
	Next(st State) (int, error)
}

// stampDepth attaches power schedule metadata to the testcase at idx. Depth is
// the current selection's depth + 1, or 0 when nothing is selected (seeds).
// A novelty bucket already stamped by feedback is kept.
func stampDepth(st State, idx int) error {
	c := st.Corpus()

	var depth uint64
	if parentIdx, ok := c.Current(); ok {
		parent, err := c.Get(parentIdx)
		if err != nil {
			return err
		}
		pmeta, err := metadata.Lookup[powersched.TestcaseMetadata](parent.Metadata())
		if err != nil {
			return fmt.Errorf("parent testcase %d: %w", parentIdx, err)
		}
		depth = pmeta.Depth + 1
	}

	tc, err := c.Get(idx)
	if err != nil {
		return err
	}

	fresh := &powersched.TestcaseMetadata{Depth: depth}
	if prev, ok := metadata.Get[powersched.TestcaseMetadata](tc.Metadata()); ok {
		fresh.NFuzzEntry = prev.NFuzzEntry
		fresh.ExecTime = prev.ExecTime
		fresh.BitmapSize = prev.BitmapSize
	}
	metadata.Insert(tc.Metadata(), fresh)
	return nil
}

// advanceCycle counts one selection and rolls the queue cycle over after a
// full pass (n selections) over a corpus of size n.
func advanceCycle(runs *uint64, ps *powersched.GlobalMetadata, n int) {
	*runs++
	if *runs >= uint64(n) {
		ps.QueueCycles++
		*runs = 0
	}
}
