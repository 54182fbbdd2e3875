package powersched

import (
	"math"
	"time"
)

// RecordExecution counts one execution against the testcase's novelty bucket.
// Saturates instead of wrapping. Returns false when the bucket is outside the table.
func RecordExecution(g *GlobalMetadata, tc *TestcaseMetadata) bool {
	if tc.NFuzzEntry < 0 || tc.NFuzzEntry >= len(g.NFuzz) {
		return false
	}
	if g.NFuzz[tc.NFuzzEntry] < math.MaxUint32 {
		g.NFuzz[tc.NFuzzEntry]++
	}
	return true
}

// Calibrate records a testcase's execution time and coverage size and feeds
// the global averages. Recalibrating replaces the testcase's previous share.
// A non-positive execTime is not a measurement: it is rejected and nothing
// changes. A testcase counts as calibrated exactly when its ExecTime is
// positive.
func Calibrate(g *GlobalMetadata, tc *TestcaseMetadata, execTime time.Duration, bitmapSize uint64) bool {
	if execTime <= 0 {
		return false
	}
	if tc.ExecTime > 0 {
		g.ExecTimeTotal -= tc.ExecTime
		g.BitmapSizeTotal -= tc.BitmapSize
	} else {
		g.Calibrated++
	}
	tc.ExecTime = execTime
	tc.BitmapSize = bitmapSize
	g.ExecTimeTotal += execTime
	g.BitmapSizeTotal += bitmapSize
	return true
}

// MarkFuzzed bumps the testcase's fuzz level after a fuzzing round.
func MarkFuzzed(tc *TestcaseMetadata) {
	tc.FuzzLevel++
}
