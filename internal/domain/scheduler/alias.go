package scheduler

import "github.com/corey/weft/internal/ports"

// buildAlias runs Vose's alias method over strictly positive scores summing
// to sum. Column i keeps itself with probability prob[i] and otherwise
// yields table[i].
func buildAlias(scores []float64, sum float64) (table []int, prob []float64) {
	n := len(scores)
	table = make([]int, n)
	prob = make([]float64, n)

	// Scale so the average column holds exactly 1.
	p := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, s := range scores {
		p[i] = s * float64(n) / sum
		if p[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		prob[s] = p[s]
		table[s] = l

		p[l] -= 1 - p[s]
		if p[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// Leftovers are 1 up to rounding error.
	for _, i := range large {
		prob[i] = 1
		table[i] = i
	}
	for _, i := range small {
		prob[i] = 1
		table[i] = i
	}
	return table, prob
}

// sampleAlias draws a column uniformly, then flips its biased coin.
func sampleAlias(r ports.Rand, table []int, prob []float64) int {
	s := int(r.Below(uint64(len(table))))
	if unitFloat(r) < prob[s] {
		return s
	}
	return table[s]
}

// unitFloat returns a uniform float64 in [0, 1) built from 53 random bits.
func unitFloat(r ports.Rand) float64 {
	return float64(r.Below(1<<53)) / (1 << 53)
}
