package state

import (
	"fmt"
	"math/rand/v2"
)

// StdRand is the default ports.Rand: a PCG generator whose state can be
// marshalled into snapshots so a resumed session draws the same sequence.
type StdRand struct {
	src *rand.PCG
	r   *rand.Rand
}

// NewStdRand seeds a generator. Equal seeds produce equal sequences.
func NewStdRand(seed uint64) *StdRand {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &StdRand{src: src, r: rand.New(src)}
}

// Below returns a uniform integer in [0, bound); Below(0) returns 0.
func (s *StdRand) Below(bound uint64) uint64 {
	if bound == 0 {
		return 0
	}
	return s.r.Uint64N(bound)
}

// Float64 returns a uniform float in [0, 1).
func (s *StdRand) Float64() float64 {
	return s.r.Float64()
}

func (s *StdRand) MarshalBinary() ([]byte, error) {
	return s.src.MarshalBinary()
}

func (s *StdRand) UnmarshalBinary(data []byte) error {
	if err := s.src.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("restore rand state: %w", err)
	}
	return nil
}
