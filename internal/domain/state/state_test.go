package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/corey/weft/internal/domain/corpus"
	"github.com/corey/weft/internal/domain/input"
	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/domain/powersched"
	"github.com/corey/weft/internal/domain/scheduler"
	"github.com/corey/weft/internal/domain/testcase"
	"github.com/corey/weft/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ scheduler.State = (*State)(nil)

func newOnDisk(t *testing.T, name string) *corpus.OnDisk {
	t.Helper()
	c, err := corpus.NewOnDisk(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	return c
}

// =============================================================================
// StdRand
// =============================================================================

func TestStdRand_Deterministic(t *testing.T) {
	a := NewStdRand(42)
	b := NewStdRand(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Below(1000), b.Below(1000))
	}
}

func TestStdRand_Below(t *testing.T) {
	r := NewStdRand(1)
	assert.Equal(t, uint64(0), r.Below(0))
	for i := 0; i < 1000; i++ {
		require.Less(t, r.Below(7), uint64(7))
	}
	f := r.Float64()
	assert.GreaterOrEqual(t, f, 0.0)
	assert.Less(t, f, 1.0)
}

func TestStdRand_MarshalResumesSequence(t *testing.T) {
	r := NewStdRand(9)
	r.Below(100)
	data, err := r.MarshalBinary()
	require.NoError(t, err)

	want := []uint64{r.Below(1 << 40), r.Below(1 << 40), r.Below(1 << 40)}

	resumed := NewStdRand(0)
	require.NoError(t, resumed.UnmarshalBinary(data))
	got := []uint64{resumed.Below(1 << 40), resumed.Below(1 << 40), resumed.Below(1 << 40)}
	assert.Equal(t, want, got)
}

func TestStdRand_UnmarshalGarbage(t *testing.T) {
	assert.Error(t, NewStdRand(0).UnmarshalBinary([]byte("nope")))
}

// =============================================================================
// Snapshot / Restore
// =============================================================================

func TestSnapshot_RoundTrip(t *testing.T) {
	st := New(newOnDisk(t, "queue"), newOnDisk(t, "solutions"), NewStdRand(5), 4096)
	metadata.Insert(st.Metadata(), powersched.NewGlobalMetadata(powersched.Fast, 16))
	sched := scheduler.NewWeighted(st)

	for _, data := range []string{"alpha", "beta", "gamma"} {
		tc := testcase.New(input.Bytes(data))
		metadata.Insert(tc.Metadata(), &powersched.TestcaseMetadata{NFuzzEntry: len(data)})
		idx, err := st.Corpus().Add(tc)
		require.NoError(t, err)
		require.NoError(t, sched.OnAdd(st, idx))
	}
	_, err := st.Solutions().Add(testcase.New(input.Bytes("crash")))
	require.NoError(t, err)

	idx, err := sched.Next(st)
	require.NoError(t, err)
	st.AddExecutions(17)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(17), snap.Executions)
	assert.Equal(t, idx, snap.Current)
	assert.Len(t, snap.Testcases, 3)
	assert.Len(t, snap.Solutions, 1)

	next := st.Rand().Below(1 << 30)

	restored, err := Restore(snap, corpus.NewInMemory(), corpus.NewInMemory())
	require.NoError(t, err)
	assert.Equal(t, uint64(17), restored.Executions())
	assert.Equal(t, 4096, restored.MaxSize())
	assert.Equal(t, st.StartTime().Unix(), restored.StartTime().Unix())
	assert.Equal(t, next, restored.Rand().Below(1<<30), "rand resumes where the snapshot was taken")

	cur, ok := restored.Corpus().Current()
	require.True(t, ok)
	assert.Equal(t, idx, cur)

	g, err := metadata.Lookup[powersched.GlobalMetadata](restored.Metadata())
	require.NoError(t, err)
	assert.Equal(t, powersched.Fast, g.Strategy)
	assert.Len(t, g.NFuzz, 16)

	require.Equal(t, 3, restored.Corpus().Count())
	for i, data := range []string{"alpha", "beta", "gamma"} {
		tc, err := restored.Corpus().Get(i)
		require.NoError(t, err)
		_, loaded := tc.Input()
		assert.False(t, loaded, "restored testcases are stored, not loaded")

		in, err := tc.LoadInput(input.BytesLoader{})
		require.NoError(t, err)
		assert.Equal(t, input.Bytes(data), in)

		meta, err := metadata.Lookup[powersched.TestcaseMetadata](tc.Metadata())
		require.NoError(t, err)
		assert.Equal(t, len(data), meta.NFuzzEntry)
	}
	assert.Equal(t, 1, restored.Solutions().Count())
}

func TestSnapshot_RequiresFileBacked(t *testing.T) {
	st := New(corpus.NewInMemory(), corpus.NewInMemory(), NewStdRand(1), 0)
	_, err := st.Corpus().Add(testcase.New(input.Bytes("volatile")))
	require.NoError(t, err)

	_, err = st.Snapshot()
	assert.True(t, errors.Is(err, ports.ErrEmptyReference))
}

func TestSnapshot_NoSelection(t *testing.T) {
	st := New(corpus.NewInMemory(), corpus.NewInMemory(), NewStdRand(1), 0)
	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, -1, snap.Current)

	restored, err := Restore(snap, corpus.NewInMemory(), corpus.NewInMemory())
	require.NoError(t, err)
	_, ok := restored.Corpus().Current()
	assert.False(t, ok)
}

func TestRestore_Errors(t *testing.T) {
	_, err := Restore(nil, corpus.NewInMemory(), nil)
	assert.True(t, errors.Is(err, ports.ErrEmptyReference))

	st := New(corpus.NewInMemory(), corpus.NewInMemory(), NewStdRand(1), 0)
	snap, err := st.Snapshot()
	require.NoError(t, err)

	t.Run("current out of range", func(t *testing.T) {
		bad := *snap
		bad.Current = 3
		_, err := Restore(&bad, corpus.NewInMemory(), nil)
		assert.True(t, errors.Is(err, ports.ErrCorruptState))
	})

	t.Run("non-empty corpus", func(t *testing.T) {
		c := corpus.NewInMemory()
		_, err := c.Add(testcase.NewStored("x"))
		require.NoError(t, err)
		_, err = Restore(snap, c, nil)
		assert.True(t, errors.Is(err, ports.ErrIllegalState))
	})

	t.Run("unknown metadata", func(t *testing.T) {
		bad := *snap
		bad.Metadata = map[string][]byte{"example.com/nowhere.Type": {1}}
		_, err := Restore(&bad, corpus.NewInMemory(), nil)
		assert.True(t, errors.Is(err, ports.ErrKeyNotFound))
	})
}
