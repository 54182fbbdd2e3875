// Package input provides the raw byte-slice input used by weft's corpus.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"

	"github.com/corey/weft/internal/ports"
)

// DefaultMaxSize is the largest input the loader accepts (1 MiB).
const DefaultMaxSize = 1 << 20

// ErrTooLarge is returned by BytesLoader for files above its MaxSize.
var ErrTooLarge = errors.New("input too large")

// Bytes is an input made of raw bytes.
type Bytes []byte

// Serialize returns the bytes unchanged.
func (b Bytes) Serialize() ([]byte, error) {
	return []byte(b), nil
}

// Hash returns a 64-bit FNV-1a hash of the content. Used to attribute
// imported seeds to a novelty bucket when no coverage hash is available.
func (b Bytes) Hash() uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// Equal reports byte equality with another Bytes input.
func (b Bytes) Equal(other Bytes) bool {
	return bytes.Equal(b, other)
}

// BytesLoader reads Bytes inputs from disk.
type BytesLoader struct {
	MaxSize int // 0 = DefaultMaxSize
}

// FromFile reads the whole file with a single open. Files larger than MaxSize
// are rejected rather than truncated.
func (l BytesLoader) FromFile(path string) (ports.Input, error) {
	limit := l.MaxSize
	if limit <= 0 {
		limit = DefaultMaxSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	if len(data) > limit {
		return nil, fmt.Errorf("%w: %s exceeds max size %d", ErrTooLarge, path, limit)
	}
	return Bytes(data), nil
}
