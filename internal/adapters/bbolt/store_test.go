package bbolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corey/weft/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

var _ ports.Storage = (*Store)(nil)

// =============================================================================
// Snapshot store: save/load, session scoping, crash recovery
// =============================================================================

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// makeTestSnapshot creates a realistic snapshot with n corpus entries.
func makeTestSnapshot(n int) *ports.Snapshot {
	snap := &ports.Snapshot{
		Executions: 12345,
		StartedAt:  1700000000,
		MaxSize:    1 << 20,
		Rand:       []byte{1, 2, 3, 4, 5, 6, 7, 8},
		Current:    n - 1,
		Metadata: map[string][]byte{
			"github.com/corey/weft/internal/domain/powersched.GlobalMetadata": []byte("globals"),
			"github.com/corey/weft/internal/domain/scheduler.WeightedMetadata": []byte("weighted"),
		},
		Solutions: []ports.TestcaseRecord{
			{Filename: "/tmp/solutions/crash-1", Metadata: map[string][]byte{"k": []byte("v")}},
		},
	}
	for i := 0; i < n; i++ {
		snap.Testcases = append(snap.Testcases, ports.TestcaseRecord{
			Filename: fmt.Sprintf("/tmp/queue/%04d", i),
			Metadata: map[string][]byte{
				"github.com/corey/weft/internal/domain/powersched.TestcaseMetadata": []byte(fmt.Sprintf("depth-%d", i)),
			},
		})
	}
	return snap
}

func TestStore_SaveLoadSnapshot_Roundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	orig := makeTestSnapshot(3)

	require.NoError(t, store.SaveSnapshot("sess-1", orig))

	got, err := store.LoadSnapshot("sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, orig.Executions, got.Executions)
	assert.Equal(t, orig.StartedAt, got.StartedAt)
	assert.Equal(t, orig.MaxSize, got.MaxSize)
	assert.Equal(t, orig.Rand, got.Rand)
	assert.Equal(t, orig.Current, got.Current)
	assert.Equal(t, orig.Metadata, got.Metadata)
	assert.Equal(t, orig.Testcases, got.Testcases)
	assert.Equal(t, orig.Solutions, got.Solutions)
}

func TestStore_NoSelectionSurvives(t *testing.T) {
	store, _ := newTestStore(t)
	snap := makeTestSnapshot(0)
	require.Equal(t, -1, snap.Current)

	require.NoError(t, store.SaveSnapshot("s", snap))
	got, err := store.LoadSnapshot("s")
	require.NoError(t, err)
	assert.Equal(t, -1, got.Current)
	assert.Empty(t, got.Testcases)
}

func TestStore_FreshSession(t *testing.T) {
	store, _ := newTestStore(t)
	got, err := store.LoadSnapshot("nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_SaveNil(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.SaveSnapshot("s", nil)
	assert.True(t, errors.Is(err, ports.ErrEmptyReference))
}

func TestStore_OverwriteShrinks(t *testing.T) {
	// A later snapshot with fewer entries must not leave stale records.
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSnapshot("s", makeTestSnapshot(5)))
	require.NoError(t, store.SaveSnapshot("s", makeTestSnapshot(2)))

	got, err := store.LoadSnapshot("s")
	require.NoError(t, err)
	assert.Len(t, got.Testcases, 2)
	assert.Equal(t, "/tmp/queue/0001", got.Testcases[1].Filename)
}

func TestStore_CrashRecovery(t *testing.T) {
	// Write data, close, reopen. Data from the last committed transaction is
	// intact; bbolt fsyncs on commit.
	dir := t.TempDir()
	path := filepath.Join(dir, "crash.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot("sess-1", makeTestSnapshot(4)))
	require.NoError(t, store.Close())

	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()

	loaded, err := store2.LoadSnapshot("sess-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Testcases, 4)
	assert.Equal(t, uint64(12345), loaded.Executions)
}

func TestStore_SessionScoped(t *testing.T) {
	store, _ := newTestStore(t)

	a := makeTestSnapshot(3)
	b := makeTestSnapshot(1)
	b.Executions = 7

	require.NoError(t, store.SaveSnapshot("sess-A", a))
	require.NoError(t, store.SaveSnapshot("sess-B", b))

	gotA, err := store.LoadSnapshot("sess-A")
	require.NoError(t, err)
	assert.Len(t, gotA.Testcases, 3)
	assert.Equal(t, uint64(12345), gotA.Executions)

	gotB, err := store.LoadSnapshot("sess-B")
	require.NoError(t, err)
	assert.Len(t, gotB.Testcases, 1)
	assert.Equal(t, uint64(7), gotB.Executions)

	ids, err := store.Sessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sess-A", "sess-B"}, ids)
}

func TestStore_DeleteSession(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSnapshot("sess-A", makeTestSnapshot(2)))
	require.NoError(t, store.SaveSnapshot("sess-B", makeTestSnapshot(1)))

	require.NoError(t, store.DeleteSession("sess-A"))

	gotA, err := store.LoadSnapshot("sess-A")
	require.NoError(t, err)
	assert.Nil(t, gotA)

	gotB, err := store.LoadSnapshot("sess-B")
	require.NoError(t, err)
	assert.NotNil(t, gotB, "other sessions unaffected")

	// Delete nonexistent is a no-op
	assert.NoError(t, store.DeleteSession("sess-C"))
}

func TestStore_CorruptRecords(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSnapshot("s", makeTestSnapshot(3)))

	t.Run("gap in indices", func(t *testing.T) {
		require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte("s")).Bucket(bucketCorpus).Delete(indexKey(1))
		}))
		_, err := store.LoadSnapshot("s")
		assert.True(t, errors.Is(err, ports.ErrCorruptState))
	})

	t.Run("garbage globals", func(t *testing.T) {
		require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte("s")).Bucket(bucketState).Put(keyGlobals, []byte("not gob"))
		}))
		_, err := store.LoadSnapshot("s")
		assert.True(t, errors.Is(err, ports.ErrCorruptState))
	})
}

func TestStore_FormatVersionMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	data, err := encodeGob(globalsRecord{Version: formatVersion + 1})
	require.NoError(t, err)
	require.NoError(t, store.db.Update(func(tx *bolt.Tx) error {
		sess, err := tx.CreateBucket([]byte("s"))
		if err != nil {
			return err
		}
		sb, err := sess.CreateBucket(bucketState)
		if err != nil {
			return err
		}
		return sb.Put(keyGlobals, data)
	}))

	_, err = store.LoadSnapshot("s")
	assert.True(t, errors.Is(err, ports.ErrCorruptState))
}

func TestIndexKey_SortsNumerically(t *testing.T) {
	assert.Less(t, string(indexKey(2)), string(indexKey(10)))
	idx, err := parseIndexKey(indexKey(300))
	require.NoError(t, err)
	assert.Equal(t, 300, idx)

	_, err = parseIndexKey([]byte{1})
	assert.True(t, errors.Is(err, ports.ErrCorruptState))
}

func TestStore_ConcurrentReads(t *testing.T) {
	// bbolt supports concurrent readers, single writer.
	store, _ := newTestStore(t)
	require.NoError(t, store.SaveSnapshot("sess-1", makeTestSnapshot(3)))

	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := store.LoadSnapshot("sess-1")
			if err != nil {
				errs <- err
				return
			}
			if snap == nil {
				errs <- fmt.Errorf("got nil snapshot")
				return
			}
			if len(snap.Testcases) != 3 {
				errs <- fmt.Errorf("expected 3 testcases, got %d", len(snap.Testcases))
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent read error: %v", err)
	}
}

func TestStore_LargeCorpus_Performance(t *testing.T) {
	store, _ := newTestStore(t)
	snap := makeTestSnapshot(5000)

	start := time.Now()
	err := store.SaveSnapshot("sess-1", snap)
	saveTime := time.Since(start)
	require.NoError(t, err)

	start = time.Now()
	loaded, err := store.LoadSnapshot("sess-1")
	loadTime := time.Since(start)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Len(t, loaded.Testcases, 5000)
	assert.Less(t, saveTime, 2*time.Second, "save took %v", saveTime) // generous for CI
	assert.Less(t, loadTime, 2*time.Second, "load took %v", loadTime)

	t.Logf("Performance: save=%v load=%v testcases=%d", saveTime, loadTime, len(loaded.Testcases))
}

func TestStore_StateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "restart.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	original := makeTestSnapshot(2)
	require.NoError(t, store1.SaveSnapshot("sess-1", original))
	require.NoError(t, store1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	store2, err := NewStore(path)
	require.NoError(t, err)
	defer store2.Close()

	loaded, err := store2.LoadSnapshot("sess-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, original.Rand, loaded.Rand)
	assert.Equal(t, original.Testcases, loaded.Testcases)
}

// =============================================================================
// Lock contention: the 1s timeout prevents hangs
// =============================================================================

func TestStore_OpenTimeout_DoesNotHang(t *testing.T) {
	// When another process/goroutine holds the bbolt exclusive lock,
	// a second open should timeout in ~1 second, not hang forever.
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	defer store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.Error(t, err, "second open should fail with lock timeout")
	assert.Nil(t, store2, "store should be nil on timeout")
	assert.Contains(t, err.Error(), "bbolt open")
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, elapsed, 3*time.Second, "should complete within 3s, not hang")
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond, "should wait ~1s for the configured timeout")
}

func TestStore_OpenAfterClose_Succeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "released.db")

	store1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store1.SaveSnapshot("test", makeTestSnapshot(3)))
	store1.Close()

	start := time.Now()
	store2, err := NewStore(path)
	elapsed := time.Since(start)

	require.NoError(t, err, "open after close should succeed")
	require.NotNil(t, store2)
	assert.Less(t, elapsed, 500*time.Millisecond, "should open instantly after lock released")
	defer store2.Close()

	snap, err := store2.LoadSnapshot("test")
	require.NoError(t, err)
	assert.Len(t, snap.Testcases, 3)
}
