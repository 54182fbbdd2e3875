// Package corpus provides the ordered, indexable testcase collections the
// schedulers draw from. A corpus exclusively owns its testcases; schedulers
// keep only indices.
package corpus

import (
	"fmt"

	"github.com/corey/weft/internal/domain/testcase"
	"github.com/corey/weft/internal/ports"
)

// Corpus is the collection consumed by schedulers.
type Corpus interface {
	// Count returns the number of testcases.
	Count() int

	// Get returns the testcase at idx, or an ErrKeyNotFound error when idx is
	// out of range.
	Get(idx int) (*testcase.Testcase, error)

	// Current returns the currently selected index, if any.
	Current() (int, bool)

	// SetCurrent records idx as the current selection.
	SetCurrent(idx int) error

	// Add appends a testcase and returns its index.
	Add(tc *testcase.Testcase) (int, error)
}

// InMemory is a slice-backed Corpus. Not safe for concurrent use.
type InMemory struct {
	entries []*testcase.Testcase
	current int // -1 = none
}

// NewInMemory returns an empty in-memory corpus.
func NewInMemory() *InMemory {
	return &InMemory{current: -1}
}

func (c *InMemory) Count() int {
	return len(c.entries)
}

func (c *InMemory) Get(idx int) (*testcase.Testcase, error) {
	if idx < 0 || idx >= len(c.entries) {
		return nil, fmt.Errorf("%w: testcase %d (corpus size %d)", ports.ErrKeyNotFound, idx, len(c.entries))
	}
	return c.entries[idx], nil
}

func (c *InMemory) Current() (int, bool) {
	return c.current, c.current >= 0
}

func (c *InMemory) SetCurrent(idx int) error {
	if idx < 0 || idx >= len(c.entries) {
		return fmt.Errorf("%w: testcase %d (corpus size %d)", ports.ErrKeyNotFound, idx, len(c.entries))
	}
	c.current = idx
	return nil
}

// ClearCurrent forgets the current selection.
func (c *InMemory) ClearCurrent() {
	c.current = -1
}

func (c *InMemory) Add(tc *testcase.Testcase) (int, error) {
	if tc == nil {
		return 0, fmt.Errorf("%w: nil testcase", ports.ErrEmptyReference)
	}
	c.entries = append(c.entries, tc)
	return len(c.entries) - 1, nil
}
