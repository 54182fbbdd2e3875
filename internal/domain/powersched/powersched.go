// Package powersched holds the statistics behind power schedules: which
// strategy is active, how often each novelty bucket has been executed, and
// per-testcase depth, fuzz level and calibration data. Score turns those
// numbers into a testcase's performance score.
//
// Constants follow AFL++ (afl-fuzz-queue.c, calculate_score).
package powersched

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/weft/internal/domain/metadata"
)

const (
	// DefaultTableSize is the number of novelty buckets.
	DefaultTableSize = 1 << 16

	// MaxFactor caps the strategy multiplier.
	MaxFactor = 32.0

	// HavocMaxMult bounds the final score at HavocMaxMult*100.
	HavocMaxMult = 64.0

	// MaxPerfScore is the largest score Score returns.
	MaxPerfScore = HavocMaxMult * 100.0

	basePerfScore = 100.0
)

func init() {
	metadata.Register[GlobalMetadata]()
	metadata.Register[TestcaseMetadata]()
}

// Strategy is a power schedule variant.
type Strategy int

const (
	Explore Strategy = iota
	Exploit
	Fast
	COE
	Lin
	Quad
)

var strategyNames = [...]string{
	Explore: "explore",
	Exploit: "exploit",
	Fast:    "fast",
	COE:     "coe",
	Lin:     "lin",
	Quad:    "quad",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy maps a name (case-insensitive) to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range strategyNames {
		if s == n {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown power schedule %q (want one of %s)", name, strings.Join(strategyNames[:], ", "))
}

// GlobalMetadata is the corpus-wide power schedule state.
type GlobalMetadata struct {
	Strategy    Strategy
	QueueCycles uint64
	// NFuzz maps novelty bucket id -> executions observed for that bucket.
	NFuzz []uint32

	// Calibration totals, used for the speed and bitmap-size multipliers.
	ExecTimeTotal   time.Duration
	BitmapSizeTotal uint64
	Calibrated      uint64
}

// NewGlobalMetadata creates globals with a zeroed bucket table.
// tableSize <= 0 selects DefaultTableSize.
func NewGlobalMetadata(strategy Strategy, tableSize int) *GlobalMetadata {
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	return &GlobalMetadata{
		Strategy: strategy,
		NFuzz:    make([]uint32, tableSize),
	}
}

// RequiresEntropy reports whether Score needs the mean log2 bucket count.
func (g *GlobalMetadata) RequiresEntropy() bool {
	return g.Strategy == COE
}

// Hits returns the execution count of a bucket; false when id is outside the table.
func (g *GlobalMetadata) Hits(bucket int) (uint32, bool) {
	if bucket < 0 || bucket >= len(g.NFuzz) {
		return 0, false
	}
	return g.NFuzz[bucket], true
}

// AvgExecTime returns the mean calibrated execution time, 0 when uncalibrated.
func (g *GlobalMetadata) AvgExecTime() time.Duration {
	if g.Calibrated == 0 {
		return 0
	}
	return g.ExecTimeTotal / time.Duration(g.Calibrated)
}

// AvgBitmapSize returns the mean calibrated bitmap size, 0 when uncalibrated.
func (g *GlobalMetadata) AvgBitmapSize() float64 {
	if g.Calibrated == 0 {
		return 0
	}
	return float64(g.BitmapSizeTotal) / float64(g.Calibrated)
}

// TestcaseMetadata is the per-testcase power schedule state.
type TestcaseMetadata struct {
	// Depth is the distance from an initial seed along the mutation ancestry.
	Depth uint64
	// NFuzzEntry is the novelty bucket this testcase's discovery is attributed to.
	NFuzzEntry int
	// FuzzLevel counts how many times the testcase has been fuzzed.
	FuzzLevel uint64
	// ExecTime and BitmapSize are set by calibration; zero means uncalibrated.
	ExecTime   time.Duration
	BitmapSize uint64
}

// BucketID maps a coverage path hash onto a bucket of a table of tableSize.
func BucketID(pathHash uint64, tableSize int) int {
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	return int(pathHash % uint64(tableSize))
}
