package metadata

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/corey/weft/internal/ports"
)

// codec encodes and decodes one registered metadata type.
type codec struct {
	encode func(v any) ([]byte, error)
	decode func(data []byte) (any, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]codec)
)

// Register makes T persistable by Encode/Decode. Call it from the init of the
// package that owns T. Registering the same type twice is harmless.
func Register[T any]() {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[Name[T]()] = codec{
		encode: func(v any) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(v.(*T)); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		decode: func(data []byte) (any, error) {
			v := new(T)
			if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Registered reports whether T has a codec.
func Registered[T any]() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[Name[T]()]
	return ok
}

// Encode gob-encodes every entry. Entries whose type was never registered are
// an error: silently dropping them would lose state on restore.
func (m *Map) Encode() (map[string][]byte, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make(map[string][]byte, len(m.entries))
	for name, v := range m.entries {
		c, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: no codec registered for %s", ports.ErrKeyNotFound, name)
		}
		data, err := c.encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// Decode rebuilds a Map from Encode output.
func Decode(data map[string][]byte) (*Map, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	m := NewMap()
	for name, raw := range data {
		c, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("%w: no codec registered for %s", ports.ErrKeyNotFound, name)
		}
		v, err := c.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		m.entries[name] = v
	}
	return m, nil
}
