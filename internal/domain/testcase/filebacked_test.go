package testcase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/corey/weft/internal/domain/input"
	"github.com/corey/weft/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// =============================================================================
// Load
// =============================================================================

func TestLoad_StoredToLoaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "hello")
	loader := &countingLoader{}

	next, err := Load(Stored{Filename: path}, loader)
	require.NoError(t, err)
	loaded, ok := next.(Loaded)
	require.True(t, ok)
	assert.Equal(t, input.Bytes("hello"), loaded.Input)
	assert.Equal(t, path, loaded.Path())
	assert.Equal(t, 1, loader.calls, "exactly one file open")
}

func TestLoad_LoadedIsNoop(t *testing.T) {
	loader := &countingLoader{}
	s := Loaded{Filename: "/nowhere", Input: input.Bytes("x")}

	next, err := Load(s, loader)
	require.NoError(t, err)
	assert.Equal(t, s, next)
	assert.Equal(t, 0, loader.calls)
}

func TestLoad_DirtyIsIllegal(t *testing.T) {
	s := Dirty{Filename: "/nowhere", Input: input.Bytes("unsaved")}

	next, err := Load(s, &countingLoader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrIllegalState))
	assert.Equal(t, s, next, "dirty input must survive a rejected load")
}

func TestLoad_IOErrorKeepsState(t *testing.T) {
	s := Stored{Filename: filepath.Join(t.TempDir(), "missing")}
	next, err := Load(s, &countingLoader{})
	require.Error(t, err)
	assert.Equal(t, s, next)
}

// =============================================================================
// Save
// =============================================================================

func TestSave_DirtyWritesAndBecomesLoaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "old")

	next, err := Save(Dirty{Filename: path, Input: input.Bytes("new")})
	require.NoError(t, err)
	assert.Equal(t, Loaded{Filename: path, Input: input.Bytes("new")}, next)
	assert.Equal(t, "new", readFile(t, path))
}

func TestSave_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh")
	_, err := Save(Dirty{Filename: path, Input: input.Bytes("x")})
	require.NoError(t, err)
	assert.Equal(t, "x", readFile(t, path))
}

func TestSave_LoadedIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "disk")

	s := Loaded{Filename: path, Input: input.Bytes("disk")}
	next, err := Save(s)
	require.NoError(t, err)
	assert.Equal(t, s, next)
}

func TestSave_StoredIsIllegal(t *testing.T) {
	s := Stored{Filename: "/nowhere"}
	next, err := Save(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrIllegalState))
	assert.Equal(t, s, next)
}

func TestSave_WriteFailureKeepsDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "tc")
	s := Dirty{Filename: path, Input: input.Bytes("pending")}

	next, err := Save(s)
	require.Error(t, err)
	assert.Equal(t, s, next, "failed write must not transition")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tc")
	_, err := Save(Dirty{Filename: path, Input: input.Bytes("x")})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tc", entries[0].Name())
}

// =============================================================================
// Refresh / Unload / Modify
// =============================================================================

func TestRefresh_DirtySaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "old")

	next, err := Refresh(Dirty{Filename: path, Input: input.Bytes("new")}, &countingLoader{})
	require.NoError(t, err)
	assert.IsType(t, Loaded{}, next)
	assert.Equal(t, "new", readFile(t, path))
}

func TestRefresh_StoredLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "disk")

	next, err := Refresh(Stored{Filename: path}, &countingLoader{})
	require.NoError(t, err)
	assert.Equal(t, Loaded{Filename: path, Input: input.Bytes("disk")}, next)
}

func TestUnload_Transitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")

	next, err := Unload(Stored{Filename: path})
	require.NoError(t, err)
	assert.Equal(t, Stored{Filename: path}, next)

	next, err = Unload(Loaded{Filename: path, Input: input.Bytes("x")})
	require.NoError(t, err)
	assert.Equal(t, Stored{Filename: path}, next)
}

func TestUnload_DirtySavesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "old")

	next, err := Unload(Dirty{Filename: path, Input: input.Bytes("mutated")})
	require.NoError(t, err)
	assert.Equal(t, Stored{Filename: path}, next)
	assert.Equal(t, "mutated", readFile(t, path))
}

func TestUnload_DirtySaveFailureKeepsDirty(t *testing.T) {
	s := Dirty{Filename: filepath.Join(t.TempDir(), "missing-dir", "tc"), Input: input.Bytes("keep")}
	next, err := Unload(s)
	require.Error(t, err)
	assert.Equal(t, s, next)
}

func TestModify(t *testing.T) {
	next, err := Modify(Loaded{Filename: "f", Input: input.Bytes("a")}, input.Bytes("b"))
	require.NoError(t, err)
	assert.Equal(t, Dirty{Filename: "f", Input: input.Bytes("b")}, next)

	next, err = Modify(next, input.Bytes("c"))
	require.NoError(t, err)
	assert.Equal(t, Dirty{Filename: "f", Input: input.Bytes("c")}, next)

	_, err = Modify(Stored{Filename: "f"}, input.Bytes("d"))
	assert.True(t, errors.Is(err, ports.ErrIllegalState))

	_, err = Modify(Loaded{Filename: "f", Input: input.Bytes("a")}, nil)
	assert.True(t, errors.Is(err, ports.ErrEmptyReference))
}

func TestRoundTrip_SaveThenFreshLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	_, err := Save(Dirty{Filename: path, Input: input.Bytes{0, 0xde, 0xad, 0}})
	require.NoError(t, err)

	next, err := Load(Stored{Filename: path}, &countingLoader{})
	require.NoError(t, err)
	assert.Equal(t, input.Bytes{0, 0xde, 0xad, 0}, next.(Loaded).Input)
}

// =============================================================================
// FileBacked holder
// =============================================================================

func TestFileBacked_InPlaceTransitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tc")
	writeFile(t, path, "v1")

	fb := NewFileBacked(Stored{Filename: path}, &countingLoader{})
	_, ok := fb.Input()
	assert.False(t, ok)

	require.NoError(t, fb.Load())
	in, ok := fb.Input()
	require.True(t, ok)
	assert.Equal(t, input.Bytes("v1"), in)

	require.NoError(t, fb.Modify(input.Bytes("v2")))
	assert.IsType(t, Dirty{}, fb.State())
	assert.True(t, errors.Is(fb.Load(), ports.ErrIllegalState))
	assert.IsType(t, Dirty{}, fb.State(), "rejected load leaves state alone")

	require.NoError(t, fb.Refresh())
	assert.IsType(t, Loaded{}, fb.State())
	assert.Equal(t, "v2", readFile(t, path))

	require.NoError(t, fb.Unload())
	assert.Equal(t, Stored{Filename: path}, fb.State())
	assert.True(t, errors.Is(fb.Save(), ports.ErrIllegalState))
}

// =============================================================================
// Properties: random operation sequences against a model
// =============================================================================

func TestLifecycle_Properties(t *testing.T) {
	root := t.TempDir()

	rapid.Check(t, func(rt *rapid.T) {
		dir, err := os.MkdirTemp(root, "case")
		if err != nil {
			rt.Fatalf("mkdir: %v", err)
		}
		path := filepath.Join(dir, "tc")
		initial := rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(rt, "initial")
		if err := os.WriteFile(path, initial, 0644); err != nil {
			rt.Fatalf("seed file: %v", err)
		}

		var s FileState = Stored{Filename: path}
		loader := &countingLoader{}

		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"load", "save", "refresh", "unload", "modify"}), 1, 30).Draw(rt, "ops")
		for i, op := range ops {
			before := s
			onDisk, _ := os.ReadFile(path)

			switch op {
			case "load":
				next, err := Load(s, loader)
				if d, dirty := before.(Dirty); dirty {
					if !errors.Is(err, ports.ErrIllegalState) {
						rt.Fatalf("op %d: load on dirty must fail, got %v", i, err)
					}
					if nd, ok := next.(Dirty); !ok || !bytesEqual(nd.Input, d.Input) {
						rt.Fatalf("op %d: load on dirty mutated in-memory input", i)
					}
				} else if err != nil {
					rt.Fatalf("op %d: load: %v", i, err)
				}
				s = next
			case "save":
				next, err := Save(s)
				if _, stored := before.(Stored); stored {
					if !errors.Is(err, ports.ErrIllegalState) {
						rt.Fatalf("op %d: save on stored must fail, got %v", i, err)
					}
				} else if err != nil {
					rt.Fatalf("op %d: save: %v", i, err)
				}
				s = next
			case "refresh":
				next, err := Refresh(s, loader)
				if err != nil {
					rt.Fatalf("op %d: refresh: %v", i, err)
				}
				s = next
			case "unload":
				next, err := Unload(s)
				if err != nil {
					rt.Fatalf("op %d: unload: %v", i, err)
				}
				if d, dirty := before.(Dirty); dirty {
					got, _ := os.ReadFile(path)
					want, _ := d.Input.Serialize()
					if string(got) != string(want) {
						rt.Fatalf("op %d: unload from dirty lost mutation: disk=%q want=%q", i, got, want)
					}
				}
				if _, ok := next.(Stored); !ok {
					rt.Fatalf("op %d: unload ended in %T", i, next)
				}
				s = next
			case "modify":
				data := rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(rt, "data")
				next, err := Modify(s, input.Bytes(data))
				if _, stored := before.(Stored); stored {
					if !errors.Is(err, ports.ErrIllegalState) {
						rt.Fatalf("op %d: modify on stored must fail, got %v", i, err)
					}
				} else if err != nil {
					rt.Fatalf("op %d: modify: %v", i, err)
				}
				s = next
			}

			// Loaded means memory matches disk.
			if l, ok := s.(Loaded); ok {
				got, _ := os.ReadFile(path)
				want, _ := l.Input.Serialize()
				if string(got) != string(want) {
					rt.Fatalf("op %d (%s): loaded input diverges from disk", i, op)
				}
			}
			// Only save-type transitions out of Dirty touch the file.
			if _, wasDirty := before.(Dirty); !wasDirty {
				got, _ := os.ReadFile(path)
				if string(got) != string(onDisk) {
					rt.Fatalf("op %d (%s): file changed without a dirty save", i, op)
				}
			}
		}
	})
}

func bytesEqual(a, b ports.Input) bool {
	da, _ := a.Serialize()
	db, _ := b.Serialize()
	return string(da) == string(db)
}
