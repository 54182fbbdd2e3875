package ports

// Storage persists fuzzer state snapshots to durable storage.
// The backing store (bbolt) is session-scoped: each sessionID gets its own
// namespace. Concurrent reads are safe; writes are serialized by the adapter.
//
// Crash safety: SaveSnapshot must be transactional. A crash mid-write must not
// corrupt previously committed data.
type Storage interface {
	// SaveSnapshot persists the full fuzzer state for a session.
	// Overwrites any prior snapshot for this sessionID.
	SaveSnapshot(sessionID string, snap *Snapshot) error

	// LoadSnapshot retrieves the state for a session.
	// Returns nil, nil if no snapshot exists (fresh session).
	LoadSnapshot(sessionID string) (*Snapshot, error)

	// DeleteSession removes all data for a session.
	// Idempotent: deleting a nonexistent session is not an error.
	DeleteSession(sessionID string) error
}

// Snapshot is everything needed to resume scheduling deterministically.
// Alias tables are recomputed after a restore, so they are not required here;
// cycle counters and per-testcase depth/bucket ids travel inside the metadata
// entries.
type Snapshot struct {
	Executions uint64            `json:"executions"`
	StartedAt  int64             `json:"started_at"` // unix seconds
	MaxSize    int               `json:"max_size"`
	Rand       []byte            `json:"rand"`    // marshalled generator state
	Current    int               `json:"current"` // -1 = no selection
	Metadata   map[string][]byte `json:"metadata"`
	Testcases  []TestcaseRecord  `json:"testcases"`
	Solutions  []TestcaseRecord  `json:"solutions"`
}

// TestcaseRecord is the persisted form of one corpus entry. The input itself
// lives in Filename; only its path is stored.
type TestcaseRecord struct {
	Filename string            `json:"filename"`
	Metadata map[string][]byte `json:"metadata"`
}
