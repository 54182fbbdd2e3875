package scheduler

import (
	"fmt"
	"math"

	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/domain/testcase"
	"github.com/corey/weft/internal/ports"
)

// MinPerfScore is the floor applied to zero or non-finite scores so every
// testcase keeps a nonzero selection probability.
const MinPerfScore = 1e-3

func init() {
	metadata.Register[WeightedMetadata]()
}

// WeightedMetadata is the weighted scheduler's global state. AliasTable,
// AliasProbability and PerfScores always have the same length and are
// replaced together by Rebuild.
type WeightedMetadata struct {
	RunsInCurrentCycle uint64
	AliasTable         []int
	AliasProbability   []float64
	PerfScores         []float64
	// Stale is set whenever the corpus or its statistics changed since the
	// last rebuild.
	Stale bool
}

// ScoreFunc computes the performance score of one testcase. mu is the mean
// log2 novelty-bucket count (0 unless the strategy requires entropy).
type ScoreFunc func(tc *testcase.Testcase, ps *powersched.GlobalMetadata, mu float64) (float64, error)

// PowerScore is the default ScoreFunc: powersched.Score on the testcase's
// power schedule metadata.
func PowerScore(tc *testcase.Testcase, ps *powersched.GlobalMetadata, mu float64) (float64, error) {
	meta, err := metadata.Lookup[powersched.TestcaseMetadata](tc.Metadata())
	if err != nil {
		return 0, err
	}
	return powersched.Score(meta, ps, mu), nil
}

// Weighted samples testcases in proportion to their performance score using
// Vose's alias method: O(n) rebuild, O(1) selection. Rebuilds are deferred to
// the next selection after the corpus grows.
type Weighted struct {
	score ScoreFunc
}

// WeightedOption configures a Weighted scheduler.
type WeightedOption func(*Weighted)

// WithScoreFunc replaces the score collaborator.
func WithScoreFunc(f ScoreFunc) WeightedOption {
	return func(w *Weighted) { w.score = f }
}

// NewWeighted returns a weighted scheduler and installs its metadata in st
// when absent. Power schedule globals must be installed by the caller.
func NewWeighted(st State, opts ...WeightedOption) *Weighted {
	w := &Weighted{score: PowerScore}
	for _, opt := range opts {
		opt(w)
	}
	if !metadata.Contains[WeightedMetadata](st.Metadata()) {
		metadata.Insert(st.Metadata(), &WeightedMetadata{Stale: true})
	}
	return w
}

// OnAdd stamps depth and bucket metadata on the new testcase and marks the
// alias table stale.
func (w *Weighted) OnAdd(st State, idx int) error {
	wmeta, err := metadata.Lookup[WeightedMetadata](st.Metadata())
	if err != nil {
		return err
	}
	if err := stampDepth(st, idx); err != nil {
		return err
	}
	wmeta.Stale = true
	return nil
}

// Invalidate forces a rebuild before the next selection. Call it after
// statistics change (calibration, restores).
func Invalidate(st State) error {
	wmeta, err := metadata.Lookup[WeightedMetadata](st.Metadata())
	if err != nil {
		return err
	}
	wmeta.Stale = true
	return nil
}

// Next draws an index from the alias table, rebuilding it first if stale.
// An empty corpus fails with ErrEmptyCorpus and changes nothing.
func (w *Weighted) Next(st State) (int, error) {
	c := st.Corpus()
	n := c.Count()
	if n == 0 {
		return 0, fmt.Errorf("%w: no entries to schedule", ports.ErrEmptyCorpus)
	}

	wmeta, err := metadata.Lookup[WeightedMetadata](st.Metadata())
	if err != nil {
		return 0, err
	}
	psmeta, err := metadata.Lookup[powersched.GlobalMetadata](st.Metadata())
	if err != nil {
		return 0, err
	}

	if wmeta.Stale || len(wmeta.AliasTable) != n {
		if err := w.Rebuild(st); err != nil {
			return 0, err
		}
	}

	advanceCycle(&wmeta.RunsInCurrentCycle, psmeta, n)

	idx := sampleAlias(st.Rand(), wmeta.AliasTable, wmeta.AliasProbability)
	if err := c.SetCurrent(idx); err != nil {
		return 0, err
	}
	return idx, nil
}

// Rebuild recomputes scores and the alias table for the whole corpus. On
// failure the previous table is left untouched.
func (w *Weighted) Rebuild(st State) error {
	c := st.Corpus()
	n := c.Count()
	if n == 0 {
		return fmt.Errorf("%w: cannot build alias table", ports.ErrEmptyCorpus)
	}

	wmeta, err := metadata.Lookup[WeightedMetadata](st.Metadata())
	if err != nil {
		return err
	}
	psmeta, err := metadata.Lookup[powersched.GlobalMetadata](st.Metadata())
	if err != nil {
		return err
	}

	var mu float64
	if psmeta.RequiresEntropy() {
		mu, err = meanLog2Hits(st, psmeta)
		if err != nil {
			return err
		}
	}

	scores := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		tc, err := c.Get(i)
		if err != nil {
			return err
		}
		s, err := w.score(tc, psmeta, mu)
		if err != nil {
			return fmt.Errorf("score testcase %d: %w", i, err)
		}
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			s = MinPerfScore
		}
		scores[i] = s
		sum += s
	}

	table, prob := buildAlias(scores, sum)

	wmeta.AliasTable = table
	wmeta.AliasProbability = prob
	wmeta.PerfScores = scores
	wmeta.Stale = false
	return nil
}

// meanLog2Hits is the entropy estimate: the mean over all testcases of
// log2(hits of the testcase's bucket). Zero counts are treated as one.
// Testcases whose bucket is outside the table do not contribute; if none
// contribute the bucket table is inconsistent with the corpus.
func meanLog2Hits(st State, psmeta *powersched.GlobalMetadata) (float64, error) {
	c := st.Corpus()
	var total float64
	var paths int
	for i := 0; i < c.Count(); i++ {
		tc, err := c.Get(i)
		if err != nil {
			return 0, err
		}
		meta, err := metadata.Lookup[powersched.TestcaseMetadata](tc.Metadata())
		if err != nil {
			return 0, fmt.Errorf("testcase %d: %w", i, err)
		}
		hits, ok := psmeta.Hits(meta.NFuzzEntry)
		if !ok {
			continue
		}
		total += math.Log2(float64(max(hits, 1)))
		paths++
	}
	if paths == 0 {
		return 0, fmt.Errorf("%w: no testcase maps into the novelty table", ports.ErrCorruptState)
	}
	return total / float64(paths), nil
}
