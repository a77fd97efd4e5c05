// Package random provides seeded pseudo-random sources for reward draws.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewSource returns a PCG-backed generator. A zero seed draws a fresh one.
func NewSource(seed uint64) (*rand.Rand, error) {
	if seed == 0 {
		fresh, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = fresh
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), nil
}
