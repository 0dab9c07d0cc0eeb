package commands

import "math/rand"

// SeedSource supplies 32-bit simulation seeds. It is injected rather than
// read from ambient global state so tests can pin the sequence.
type SeedSource interface {
	Uint32() uint32
}

// DefaultSeeds draws from the shared math/rand/v2 generator: a fresh,
// non-reproducible value on every call.
var DefaultSeeds SeedSource = defaultSeeds{}

type defaultSeeds struct{}

func (defaultSeeds) Uint32() uint32 { return rand.Uint32() }

// FixedSeeds replays a fixed sequence, cycling when exhausted. Test use.
type FixedSeeds struct {
	Values []uint32
	next   int
}

func (f *FixedSeeds) Uint32() uint32 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}
