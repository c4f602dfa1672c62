package transform

import (
	"math/rand"
	"time"
)

// Default corruption settings.
const (
	DefaultCorruptionProbability = 0.3
	DefaultCorruptionMarker      = '#'
)

// Corrupter overwrites one random character of generated code with Marker,
// with probability Probability. It manufactures a failing first run so the
// fix loop gets exercised. A nil Corrupter or Probability 0 never fires.
type Corrupter struct {
	Probability float64
	Marker      rune
	Rand        *rand.Rand
}

// NewCorrupter creates a Corrupter seeded from the clock.
func NewCorrupter(probability float64, marker rune) *Corrupter {
	if marker == 0 {
		marker = DefaultCorruptionMarker
	}
	return &Corrupter{
		Probability: probability,
		Marker:      marker,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Apply returns code, possibly with exactly one rune replaced by Marker.
// The second result reports whether a replacement happened.
func (c *Corrupter) Apply(code string) (string, bool) {
	if c == nil || c.Probability <= 0 || code == "" {
		return code, false
	}
	if c.Probability < 1 && c.float64() >= c.Probability {
		return code, false
	}

	runes := []rune(code)
	candidates := make([]int, 0, len(runes))
	for i, r := range runes {
		if r != c.Marker {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return code, false
	}

	idx := candidates[c.intn(len(candidates))]
	runes[idx] = c.Marker
	return string(runes), true
}

func (c *Corrupter) float64() float64 {
	if c.Rand == nil {
		return rand.Float64()
	}
	return c.Rand.Float64()
}

func (c *Corrupter) intn(n int) int {
	if c.Rand == nil {
		return rand.Intn(n)
	}
	return c.Rand.Intn(n)
}
