package socket

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"time"
)

// SocketPath returns the control socket path for a project. The path lives in
// /tmp because unix socket paths are limited to ~108 bytes and project roots
// can be arbitrarily deep.
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/weft-%x.sock", h[:6])
}

// Method names for the protocol.
const (
	MethodHealth   = "health"
	MethodShutdown = "shutdown"
	MethodStats    = "stats"
	MethodNext     = "next"
	MethodCorpus   = "corpus"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Corpus    int    `json:"corpus"`
	Uptime    string `json:"uptime"`
}

// StatsResult is the result of a stats request.
type StatsResult struct {
	SessionID   string    `json:"session_id"`
	Scheduler   string    `json:"scheduler"`
	Strategy    string    `json:"strategy"`
	Corpus      int       `json:"corpus"`
	Solutions   int       `json:"solutions"`
	Executions  uint64    `json:"executions"`
	ExecsPerSec float64   `json:"execs_per_sec"`
	QueueCycles uint64    `json:"queue_cycles"`
	RunsInCycle uint64    `json:"runs_in_cycle"`
	Current     int       `json:"current"`
	StartedAt   time.Time `json:"started_at"`
}

// MaxNextCount bounds the picks one next request may ask for; larger replies
// would overrun the client's line buffer.
const MaxNextCount = 4096

// NextParams is the params for a next request.
type NextParams struct {
	Count  int  `json:"count"`
	Record bool `json:"record,omitempty"`
}

// NextResult is the result of a next request.
type NextResult struct {
	Picks []PickInfo `json:"picks"`
	Count int        `json:"count"`
}

// PickInfo is one scheduler decision (wire format).
type PickInfo struct {
	Index int    `json:"index"`
	File  string `json:"file"`
}

// CorpusResult is the result of a corpus request.
type CorpusResult struct {
	Entries  []EntryInfo `json:"entries"`
	Count    int         `json:"count"`
	Weighted bool        `json:"weighted"`
}

// EntryInfo describes a single corpus entry.
type EntryInfo struct {
	Index     int     `json:"index"`
	File      string  `json:"file"`
	Depth     uint64  `json:"depth"`
	Bucket    int     `json:"bucket"`
	Hits      uint32  `json:"hits"`
	FuzzLevel uint64  `json:"fuzz_level"`
	Score     float64 `json:"score,omitempty"`
	Share     float64 `json:"share"`
	Current   bool    `json:"current,omitempty"`
}
