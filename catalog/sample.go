package catalog

import "math/rand"

// samplePrompts draws up to n entries from pool at uniformly random distinct
// indices.
func samplePrompts(pool []Prompt, n int) []Prompt {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]Prompt, 0, n)
	for _, idx := range rand.Perm(len(pool))[:n] {
		out = append(out, pool[idx])
	}
	return out
}

// sampleSounds draws up to n entries from pool at uniformly random distinct
// indices.
func sampleSounds(pool []Sound, n int) []Sound {
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]Sound, 0, n)
	for _, idx := range rand.Perm(len(pool))[:n] {
		out = append(out, pool[idx])
	}
	return out
}
