// Package randsource provides uniform random integers from a source suitable
// for security-relevant code generation. It is backed by crypto/rand, which
// is safe for concurrent use from multiple request goroutines.
package randsource

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

type Source struct{}

func New() *Source {
	return &Source{}
}

// Next returns a uniformly distributed integer in [0, n). Rejection sampling
// removes the modulo bias a plain remainder would introduce.
func (s *Source) Next(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("randsource: upper bound must be positive, got %d", n)
	}

	bound := uint64(n)
	limit := math.MaxUint64 - math.MaxUint64%bound

	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("randsource: read: %w", err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % bound), nil
		}
	}
}
