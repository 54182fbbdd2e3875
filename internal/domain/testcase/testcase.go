// Package testcase holds corpus entries: an optional in-memory input, an
// optional backing file, and a metadata map. File-backed entries can also be
// driven through the explicit Stored/Loaded/Dirty lifecycle in filebacked.go.
package testcase

import (
	"fmt"

	"github.com/corey/weft/internal/domain/metadata"
	"github.com/corey/weft/internal/ports"
)

// Testcase is one corpus entry. Owned exclusively by the corpus holding it.
type Testcase struct {
	input    ports.Input
	filename string
	dirty    bool // input differs from the backing file
	metadata *metadata.Map
}

// New creates a testcase around an in-memory input.
func New(in ports.Input) *Testcase {
	return &Testcase{input: in, dirty: in != nil, metadata: metadata.NewMap()}
}

// NewWithFilename creates a testcase whose input is also stored at filename.
func NewWithFilename(in ports.Input, filename string) *Testcase {
	return &Testcase{input: in, filename: filename, metadata: metadata.NewMap()}
}

// NewStored creates a testcase known only by its backing file.
func NewStored(filename string) *Testcase {
	return &Testcase{filename: filename, metadata: metadata.NewMap()}
}

// Input returns the in-memory input, if any.
func (t *Testcase) Input() (ports.Input, bool) {
	return t.input, t.input != nil
}

// SetInput replaces the in-memory input. The input is unsaved until Unload
// or SetSaved. nil drops it.
func (t *Testcase) SetInput(in ports.Input) {
	t.input = in
	t.dirty = in != nil
}

// Dirty reports whether the in-memory input has not been written to the
// backing file.
func (t *Testcase) Dirty() bool {
	return t.dirty
}

// Filename returns the backing file path ("" when not file-backed).
func (t *Testcase) Filename() string {
	return t.filename
}

// SetFilename records the backing file path.
func (t *Testcase) SetFilename(filename string) {
	t.filename = filename
}

// SetSaved records that the in-memory input now lives at filename.
func (t *Testcase) SetSaved(filename string) {
	t.filename = filename
	t.dirty = false
}

// Metadata returns the testcase-scoped metadata map.
func (t *Testcase) Metadata() *metadata.Map {
	return t.metadata
}

// SetMetadata replaces the metadata map (used when restoring snapshots).
func (t *Testcase) SetMetadata(m *metadata.Map) {
	t.metadata = m
}

// LoadInput returns the in-memory input, reading and caching it from the
// backing file when absent.
func (t *Testcase) LoadInput(loader ports.InputLoader) (ports.Input, error) {
	if t.input != nil {
		return t.input, nil
	}
	if t.filename == "" {
		return nil, fmt.Errorf("%w: testcase has neither input nor filename", ports.ErrEmptyReference)
	}
	in, err := loader.FromFile(t.filename)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.filename, err)
	}
	t.input = in
	return in, nil
}

// Unload drops the cached input of a file-backed testcase, writing it to the
// backing file first when it is unsaved. A testcase without a filename keeps
// its input, since dropping it would lose data. On a failed write the input
// stays in memory.
func (t *Testcase) Unload() (bool, error) {
	if t.filename == "" || t.input == nil {
		return false, nil
	}
	if t.dirty {
		if _, err := Save(Dirty{Filename: t.filename, Input: t.input}); err != nil {
			return false, err
		}
		t.dirty = false
	}
	t.input = nil
	return true, nil
}
