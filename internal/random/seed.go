// Package random provides cryptographic seed generation helpers.
//
// It uses crypto/rand to generate high-entropy seeds for the per-game PCG
// generators that drive shuffles and random tie-breaks.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// Seed holds the two PCG state words.
type Seed struct {
	Hi uint64 `json:"hi"`
	Lo uint64 `json:"lo"`
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (Seed, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return Seed{}, fmt.Errorf("read random seed: %w", err)
	}

	return Seed{
		Hi: binary.LittleEndian.Uint64(b[:8]),
		Lo: binary.LittleEndian.Uint64(b[8:]),
	}, nil
}
