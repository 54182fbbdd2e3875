// Package bbolt implements the ports.Storage interface using bbolt (embedded B+ tree).
// Each session gets its own top-level bucket. Within that bucket the "state"
// sub-bucket holds the gob-encoded globals, and "corpus" and "solutions" hold one
// gob record per testcase keyed by its big-endian index. Writes are
// transactional: a crash mid-write cannot corrupt previously committed data.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/corey/weft/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// Bucket keys
var (
	bucketState     = []byte("state")
	bucketCorpus    = []byte("corpus")
	bucketSolutions = []byte("solutions")
	keyGlobals      = []byte("globals")
)

// Store implements ports.Storage backed by bbolt.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the stored snapshot for a session in a single
// transaction.
func (s *Store) SaveSnapshot(sessionID string, snap *ports.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ports.ErrEmptyReference)
	}

	globals, err := encodeGlobals(snap)
	if err != nil {
		return fmt.Errorf("encode globals: %w", err)
	}
	entries, err := encodeRecords(snap.Testcases)
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	solutions, err := encodeRecords(snap.Solutions)
	if err != nil {
		return fmt.Errorf("encode solutions: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sess, err := tx.CreateBucketIfNotExists([]byte(sessionID))
		if err != nil {
			return err
		}
		sb, err := sess.CreateBucketIfNotExists(bucketState)
		if err != nil {
			return err
		}
		if err := sb.Put(keyGlobals, globals); err != nil {
			return err
		}
		if err := replaceRecords(sess, bucketCorpus, entries); err != nil {
			return err
		}
		return replaceRecords(sess, bucketSolutions, solutions)
	})
}

// replaceRecords drops the named sub-bucket and writes recs into a fresh one,
// so a shrunken corpus leaves no stale keys behind.
func replaceRecords(sess *bolt.Bucket, name []byte, recs [][]byte) error {
	if err := sess.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	b, err := sess.CreateBucket(name)
	if err != nil {
		return err
	}
	for i, rec := range recs {
		if err := b.Put(indexKey(i), rec); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot retrieves the snapshot for a session.
// Returns nil, nil if no snapshot exists (fresh session).
func (s *Store) LoadSnapshot(sessionID string) (*ports.Snapshot, error) {
	var globals []byte
	var entries, solutions [][]byte

	err := s.db.View(func(tx *bolt.Tx) error {
		sess := tx.Bucket([]byte(sessionID))
		if sess == nil {
			return nil
		}
		sb := sess.Bucket(bucketState)
		if sb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := sb.Get(keyGlobals); v != nil {
			globals = make([]byte, len(v))
			copy(globals, v)
		}
		var err error
		if entries, err = copyRecords(sess.Bucket(bucketCorpus)); err != nil {
			return fmt.Errorf("corpus: %w", err)
		}
		if solutions, err = copyRecords(sess.Bucket(bucketSolutions)); err != nil {
			return fmt.Errorf("solutions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if globals == nil {
		return nil, nil
	}

	snap, err := decodeGlobals(globals)
	if err != nil {
		return nil, err
	}
	if snap.Testcases, err = decodeRecords(entries); err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}
	if snap.Solutions, err = decodeRecords(solutions); err != nil {
		return nil, fmt.Errorf("solutions: %w", err)
	}
	return snap, nil
}

// copyRecords reads a record bucket in key order. Keys must be the dense
// sequence 0..n-1.
func copyRecords(b *bolt.Bucket) ([][]byte, error) {
	if b == nil {
		return nil, nil
	}
	var out [][]byte
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		idx, err := parseIndexKey(k)
		if err != nil {
			return nil, err
		}
		if idx != len(out) {
			return nil, fmt.Errorf("%w: expected record %d, found %d", ports.ErrCorruptState, len(out), idx)
		}
		rec := make([]byte, len(v))
		copy(rec, v)
		out = append(out, rec)
	}
	return out, nil
}

// DeleteSession removes all data for a session.
// Idempotent: deleting a nonexistent session is not an error.
func (s *Store) DeleteSession(sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(sessionID)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}

// Sessions lists the stored session ids.
func (s *Store) Sessions() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			ids = append(ids, string(name))
			return nil
		})
	})
	return ids, err
}
