// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces and the snapshot types below, never on concrete
// implementations.
package ports

import "errors"

// Error kinds shared by every layer. Wrap with fmt.Errorf("...: %w", Err...)
// and test with errors.Is.
var (
	// ErrIllegalState: a lifecycle transition violates the state machine
	// (load on a dirty testcase, save with nothing in memory).
	ErrIllegalState = errors.New("illegal state")

	// ErrEmptyReference: an operation needs an input or a path that is absent.
	ErrEmptyReference = errors.New("empty reference")

	// ErrKeyNotFound: expected metadata or index is missing. Indicates a
	// misconfigured pipeline, not a transient fault.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyCorpus: selection requested on a zero-size corpus.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrCorruptState: an internal consistency check failed.
	ErrCorruptState = errors.New("corrupt state")
)
