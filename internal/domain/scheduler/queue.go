package scheduler

import (
	"fmt"

	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/ports"
)

func init() {
	metadata.Register[QueueMetadata]()
}

// QueueMetadata is the round-robin scheduler's global state.
type QueueMetadata struct {
	RunsInCurrentCycle uint64
}

// Queue walks the corpus in insertion order, wrapping around. It stamps the
// same depth metadata as Weighted so strategies can be switched on a live
// corpus.
type Queue struct{}

// NewQueue returns a round-robin scheduler and installs its metadata in st
// when absent.
func NewQueue(st State) *Queue {
	if !metadata.Contains[QueueMetadata](st.Metadata()) {
		metadata.Insert(st.Metadata(), &QueueMetadata{})
	}
	return &Queue{}
}

func (q *Queue) OnAdd(st State, idx int) error {
	return stampDepth(st, idx)
}

// Next returns the entry after the current selection (0 when none).
func (q *Queue) Next(st State) (int, error) {
	c := st.Corpus()
	n := c.Count()
	if n == 0 {
		return 0, fmt.Errorf("%w: no entries to schedule", ports.ErrEmptyCorpus)
	}

	qmeta, err := metadata.Lookup[QueueMetadata](st.Metadata())
	if err != nil {
		return 0, err
	}
	psmeta, err := metadata.Lookup[powersched.GlobalMetadata](st.Metadata())
	if err != nil {
		return 0, err
	}

	next := 0
	if cur, ok := c.Current(); ok {
		next = (cur + 1) % n
	}
	if err := c.SetCurrent(next); err != nil {
		return 0, err
	}
	advanceCycle(&qmeta.RunsInCurrentCycle, psmeta, n)
	return next, nil
}
