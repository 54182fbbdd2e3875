package app

import "time"

// ExecRateTracker computes a rolling execution rate over a configurable window.
// Not thread-safe; App.mu serializes access.
type ExecRateTracker struct {
	window  time.Duration
	samples []execSample
	total   uint64
}

type execSample struct {
	ts    time.Time
	execs uint64
}

// NewExecRateTracker creates a tracker with the given rolling window duration.
func NewExecRateTracker(window time.Duration) *ExecRateTracker {
	return &ExecRateTracker{window: window}
}

// Record adds an execution sample at the current time.
func (r *ExecRateTracker) Record(execs uint64) {
	r.RecordAt(time.Now(), execs)
}

// RecordAt adds an execution sample at a specific timestamp.
func (r *ExecRateTracker) RecordAt(ts time.Time, execs uint64) {
	r.samples = append(r.samples, execSample{ts: ts, execs: execs})
	r.total += execs
	r.evict(ts)
}

// PerSec returns the current rate in executions per second.
func (r *ExecRateTracker) PerSec() float64 {
	return r.PerSecAt(time.Now())
}

// PerSecAt computes the rate as of the given time. Fewer than two samples
// in the window give 0.
func (r *ExecRateTracker) PerSecAt(now time.Time) float64 {
	r.evict(now)
	if len(r.samples) < 2 {
		return 0
	}
	span := now.Sub(r.samples[0].ts)
	if span <= 0 {
		return 0
	}

	var sum uint64
	for _, s := range r.samples {
		sum += s.execs
	}
	return float64(sum) / span.Seconds()
}

// Total returns the lifetime total of recorded executions.
func (r *ExecRateTracker) Total() uint64 {
	return r.total
}

// evict removes samples older than the window.
func (r *ExecRateTracker) evict(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.samples) && r.samples[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		r.samples = r.samples[i:]
	}
}
