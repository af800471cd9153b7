package game

import (
	"fmt"
	"time"
)

// Shuffler is a deterministic pseudo-random source seeded from a string. The
// same seed always produces the same permutation, so clients that join late
// or reconnect can be handed the stored seed's output again.
type Shuffler struct {
	seed  string
	state uint32
}

// NewShuffler seeds a shuffler from an arbitrary string.
func NewShuffler(seed string) *Shuffler {
	return &Shuffler{seed: seed, state: hashSeed(seed)}
}

// Seed returns the seed string the shuffler was built from.
func (s *Shuffler) Seed() string {
	return s.seed
}

// hashSeed folds a string into 32 bits.
func hashSeed(seed string) uint32 {
	var h uint32
	for i := 0; i < len(seed); i++ {
		h = h*31 + uint32(seed[i])
	}
	if h == 0 {
		h = 1
	}
	return h
}

// next draws a value in [0, 1) from a linear-congruential generator.
func (s *Shuffler) next() float64 {
	s.state = s.state*1664525 + 1013904223
	return float64(s.state) / float64(1<<32)
}

// Shuffle returns a new slice holding a deterministic permutation of subs.
// Length-2 inputs take a dedicated coin-flip path so both orders come up
// 50/50; longer inputs get a Fisher-Yates pass.
func (s *Shuffler) Shuffle(subs []Submission) []Submission {
	out := make([]Submission, len(subs))
	copy(out, subs)

	if len(out) == 2 {
		if s.next() >= 0.5 {
			out[0], out[1] = out[1], out[0]
		}
		return out
	}

	for i := len(out) - 1; i > 0; i-- {
		j := int(s.next() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SubmissionSeed builds the per-round shuffle seed from the room code, round
// number and current wall-clock.
func SubmissionSeed(code string, round int, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", code, round, now.UnixMilli())
}
