package scale

import (
	"math/rand"
	"sync"

	"scale-station/internal/weighing"
)

// Simulator stands in for the serial indicator on development machines.
// It produces plausible loaded-truck weights, always rounded to the
// scale granularity and never below the floor, so entry registration
// behaves like a real crossing.
type Simulator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last int
}

const simulatorFloor = 500

func NewSimulator(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulator) Simulated() bool { return true }

func (s *Simulator) CurrentWeight() (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := simulatorFloor + s.rng.Intn(40000)
	w = weighing.RoundToGranularity(w)
	if w < simulatorFloor {
		w = simulatorFloor
	}
	s.last = w
	return w, "kg", nil
}
