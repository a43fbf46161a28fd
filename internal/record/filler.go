package record

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Filler produces the non-semantic bytes of a record.
type Filler interface {
	Fill(b []byte) error
}

// RandomFiller fills records from an injected PRNG.
type RandomFiller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomFiller wraps src. A nil src seeds a PCG from the current time.
func NewRandomFiller(src rand.Source) *RandomFiller {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>32|1)
	}
	return &RandomFiller{rng: rand.New(src)}
}

// Fill implements Filler.
func (f *RandomFiller) Fill(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range b {
		b[i] = byte(f.rng.Uint32())
	}
	return nil
}

// ZeroFiller leaves filler bytes zeroed. Used where reproducible images are wanted.
type ZeroFiller struct{}

func (ZeroFiller) Fill(b []byte) error {
	clear(b)
	return nil
}
