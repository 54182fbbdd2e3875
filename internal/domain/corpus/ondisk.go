package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/corey/weft/internal/domain/testcase"
	"github.com/corey/weft/internal/ports"
)

// OnDisk is a Corpus whose inputs are written to a directory as they are
// added. Testcases that arrive with an input but no filename get a fresh
// <dir>/<uuid> path and go through the file-backed lifecycle
// (Dirty -> Save -> Loaded), then are unloaded unless KeepInMemory is set.
type OnDisk struct {
	InMemory
	dir          string
	keepInMemory bool
}

// OnDiskOption configures an OnDisk corpus.
type OnDiskOption func(*OnDisk)

// KeepInMemory leaves saved inputs cached instead of unloading them.
func KeepInMemory() OnDiskOption {
	return func(c *OnDisk) { c.keepInMemory = true }
}

// NewOnDisk creates the directory if needed.
func NewOnDisk(dir string, opts ...OnDiskOption) (*OnDisk, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create corpus dir: %w", err)
	}
	c := &OnDisk{InMemory: InMemory{current: -1}, dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dir returns the directory inputs are written to.
func (c *OnDisk) Dir() string {
	return c.dir
}

// Add persists the testcase's input if it is not yet file-backed, then
// appends it. A failed write leaves the corpus unchanged.
func (c *OnDisk) Add(tc *testcase.Testcase) (int, error) {
	if tc == nil {
		return 0, fmt.Errorf("%w: nil testcase", ports.ErrEmptyReference)
	}

	if tc.Filename() == "" {
		in, ok := tc.Input()
		if !ok {
			return 0, fmt.Errorf("%w: testcase has neither input nor filename", ports.ErrEmptyReference)
		}
		path := filepath.Join(c.dir, uuid.NewString())
		state, err := testcase.Save(testcase.Dirty{Filename: path, Input: in})
		if err != nil {
			return 0, err
		}
		tc.SetSaved(state.Path())
		if !c.keepInMemory {
			if _, err := tc.Unload(); err != nil {
				return 0, err
			}
		}
	}

	return c.InMemory.Add(tc)
}
