package powersched

import "math"

// Score computes a testcase's performance score. mu is the mean log2 bucket
// count over the corpus; only entropy strategies (COE) read it.
//
// The result is in [0, MaxPerfScore]. Zero is possible (COE above the mean,
// LIN/QUAD on a never-fuzzed entry); callers that need strictly positive
// weights clamp it.
func Score(tc *TestcaseMetadata, g *GlobalMetadata, mu float64) float64 {
	perf := basePerfScore

	if avg := g.AvgExecTime(); avg > 0 && tc.ExecTime > 0 {
		perf = speedScore(float64(tc.ExecTime), float64(avg))
	}
	if avg := g.AvgBitmapSize(); avg > 0 && tc.BitmapSize > 0 {
		perf *= bitmapFactor(float64(tc.BitmapSize), avg)
	}

	perf *= depthFactor(tc.Depth)

	if factor, ok := strategyFactor(tc, g, mu); ok {
		perf *= math.Min(factor, MaxFactor)
	}

	return math.Min(perf, MaxPerfScore)
}

// speedScore rewards testcases faster than average and penalizes slow ones.
func speedScore(exec, avg float64) float64 {
	switch {
	case exec*0.1 > avg:
		return 10
	case exec*0.25 > avg:
		return 25
	case exec*0.5 > avg:
		return 50
	case exec*0.75 > avg:
		return 75
	case exec*4 < avg:
		return 300
	case exec*3 < avg:
		return 200
	case exec*2 < avg:
		return 150
	}
	return basePerfScore
}

// bitmapFactor rewards testcases covering more than average.
func bitmapFactor(size, avg float64) float64 {
	switch {
	case size*0.3 > avg:
		return 3
	case size*0.5 > avg:
		return 2
	case size*0.75 > avg:
		return 1.5
	case size*3 < avg:
		return 0.25
	case size*2 < avg:
		return 0.5
	case size*1.5 < avg:
		return 0.75
	}
	return 1
}

// depthFactor favours inputs deep in the mutation chain.
func depthFactor(depth uint64) float64 {
	switch {
	case depth <= 3:
		return 1
	case depth <= 7:
		return 2
	case depth <= 13:
		return 3
	case depth <= 25:
		return 4
	}
	return 5
}

// strategyFactor returns the schedule multiplier; false for strategies that
// leave the score alone.
func strategyFactor(tc *TestcaseMetadata, g *GlobalMetadata, mu float64) (float64, bool) {
	hits, ok := g.Hits(tc.NFuzzEntry)
	if !ok || hits == 0 {
		hits = 1
	}
	fuzz := float64(hits)
	level := tc.FuzzLevel

	switch g.Strategy {
	case Exploit:
		return MaxFactor, true
	case COE:
		if math.Log2(fuzz) > mu {
			return 0, true
		}
		if level < 16 {
			return float64(uint64(1) << level), true
		}
		return MaxFactor, true
	case Fast:
		if level < 16 {
			return float64(uint64(1)<<level) / fuzz, true
		}
		return MaxFactor / float64(nextPow2(uint64(hits))), true
	case Lin:
		return float64(level) / (fuzz + 1), true
	case Quad:
		return float64(level*level) / (fuzz + 1), true
	}
	return 0, false
}

func nextPow2(v uint64) uint64 {
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}
