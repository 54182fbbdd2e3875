// Record encoding for snapshot blobs.
//
// Globals and testcase records are gob-encoded. Testcase keys are the record's
// corpus index as a big-endian uint64, so a bbolt cursor walks them in corpus
// order.
package bbolt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/corey/weft/internal/ports"
)

// formatVersion is bumped whenever globalsRecord changes incompatibly.
const formatVersion = 1

// globalsRecord is the persisted form of everything in a Snapshot except the
// testcase lists.
type globalsRecord struct {
	Version    uint32
	Executions uint64
	StartedAt  int64
	MaxSize    int
	Rand       []byte
	Current    int
	Metadata   map[string][]byte
}

func encodeGlobals(snap *ports.Snapshot) ([]byte, error) {
	return encodeGob(globalsRecord{
		Version:    formatVersion,
		Executions: snap.Executions,
		StartedAt:  snap.StartedAt,
		MaxSize:    snap.MaxSize,
		Rand:       snap.Rand,
		Current:    snap.Current,
		Metadata:   snap.Metadata,
	})
}

func decodeGlobals(data []byte) (*ports.Snapshot, error) {
	var rec globalsRecord
	if err := decodeGob(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode globals: %v", ports.ErrCorruptState, err)
	}
	if rec.Version != formatVersion {
		return nil, fmt.Errorf("%w: snapshot format v%d, want v%d", ports.ErrCorruptState, rec.Version, formatVersion)
	}
	return &ports.Snapshot{
		Executions: rec.Executions,
		StartedAt:  rec.StartedAt,
		MaxSize:    rec.MaxSize,
		Rand:       rec.Rand,
		Current:    rec.Current,
		Metadata:   rec.Metadata,
	}, nil
}

func encodeRecords(recs []ports.TestcaseRecord) ([][]byte, error) {
	out := make([][]byte, 0, len(recs))
	for i, rec := range recs {
		data, err := encodeGob(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}

func decodeRecords(raw [][]byte) ([]ports.TestcaseRecord, error) {
	out := make([]ports.TestcaseRecord, 0, len(raw))
	for i, data := range raw {
		var rec ports.TestcaseRecord
		if err := decodeGob(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ports.ErrCorruptState, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// indexKey encodes a corpus index as an 8-byte big-endian key.
func indexKey(idx int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(idx))
	return k
}

func parseIndexKey(k []byte) (int, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("%w: record key is %d bytes", ports.ErrCorruptState, len(k))
	}
	return int(binary.BigEndian.Uint64(k)), nil
}

// encodeGob encodes a value using gob.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob decodes gob-encoded data into target. Target must be a pointer.
func decodeGob(data []byte, target interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(target)
}
