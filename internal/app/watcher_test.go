package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	fsw "github.com/corey/weft/internal/adapters/fsnotify"
	"github.com/corey/weft/internal/domain/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_SlowWriterIngestsFullSeed(t *testing.T) {
	a := newTestApp(t, Config{})
	dir := t.TempDir()
	w, err := fsw.NewWatcher()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	added := make(chan int, 4)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, w, dir, func(idx int, _ string) { added <- idx })
	}()
	time.Sleep(50 * time.Millisecond)

	f, err := os.Create(filepath.Join(dir, "seed"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case idx := <-added:
		assert.Equal(t, 0, idx)
	case <-time.After(3 * time.Second):
		t.Fatal("slowly written seed was not ingested")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}

	require.Equal(t, 1, a.Corpus.Count())
	tc, err := a.Corpus.Get(0)
	require.NoError(t, err)
	in, err := tc.LoadInput(input.BytesLoader{})
	require.NoError(t, err)
	assert.Equal(t, input.Bytes("hello"), in)
}
