// Package metadata implements a heterogeneous, type-keyed store.
//
// A Map holds at most one value per Go type. The same Map type is embedded in
// every testcase (per-input statistics) and in the global fuzzing state
// (corpus-wide statistics), so independent components can attach typed data
// without a shared schema.
//
// Values are stored as *T and Get returns that same pointer: mutating through
// it updates the stored value. Keys are package-qualified type names, so two
// distinct types with the same qualified name would overwrite each other.
package metadata

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/corey/weft/internal/ports"
)

// Map is a type-keyed metadata store. The zero value is not usable; call NewMap.
// Not safe for concurrent use.
type Map struct {
	entries map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{entries: make(map[string]any)}
}

// Name returns the key under which values of type T are stored.
func Name[T any]() string {
	return typeName(reflect.TypeFor[T]())
}

func typeName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Insert stores v as the single instance of T, replacing any previous one.
func Insert[T any](m *Map, v *T) {
	m.entries[Name[T]()] = v
}

// Get returns the stored *T, or false if none was inserted.
func Get[T any](m *Map) (*T, bool) {
	raw, ok := m.entries[Name[T]()]
	if !ok {
		return nil, false
	}
	v, ok := raw.(*T)
	return v, ok
}

// Lookup is Get with a typed error for missing entries.
func Lookup[T any](m *Map) (*T, error) {
	v, ok := Get[T](m)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrKeyNotFound, Name[T]())
	}
	return v, nil
}

// Contains reports whether a T is stored.
func Contains[T any](m *Map) bool {
	_, ok := Get[T](m)
	return ok
}

// Len returns the number of stored entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Names returns the stored type names, sorted.
func (m *Map) Names() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
