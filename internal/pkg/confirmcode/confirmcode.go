// Package confirmcode generates and validates the short human-typed codes
// that bind a browser session to a tracked visit.
package confirmcode

import (
	"fmt"
	"strings"
)

const (
	// Length is the fixed code length.
	Length = 6
	// Alphabet is the set of allowed code characters.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Source yields uniform random integers in [0, n).
type Source interface {
	Next(n int) (int, error)
}

type Generator struct {
	src Source
}

func New(src Source) *Generator {
	return &Generator{src: src}
}

// Generate returns a fresh code of Length characters, each drawn
// independently from Alphabet. Codes are not globally unique; each one is
// scoped to a single pending visit per session.
func (g *Generator) Generate() (string, error) {
	code := make([]byte, Length)
	for i := range code {
		idx, err := g.src.Next(len(Alphabet))
		if err != nil {
			return "", fmt.Errorf("confirmcode: %w", err)
		}
		code[i] = Alphabet[idx]
	}
	return string(code), nil
}

// IsValid reports whether code is syntactically well-formed: exactly Length
// characters, all from Alphabet. Whether it matches a pending visit is the
// state machine's concern, not this one's.
func IsValid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
