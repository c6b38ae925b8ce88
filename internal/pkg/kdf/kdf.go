// Package kdf implements the salted key derivation used both to enrol
// credentials and to verify them by recomputation.
package kdf

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Params tunes the argon2id derivation. Zero values fall back to defaults,
// so a zero Params is usable.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32}
}

// Service derives keys with a fixed parameter set. Deterministic: the same
// password and salt always yield the same key.
type Service struct {
	params Params
}

func New(p Params) *Service {
	def := DefaultParams()
	if p.Time == 0 {
		p.Time = def.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = def.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = def.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = def.KeyLen
	}
	return &Service{params: p}
}

// Dk returns the hex-encoded derived key for password and salt.
func (s *Service) Dk(password, salt string) string {
	key := argon2.IDKey(
		[]byte(password),
		[]byte(salt),
		s.params.Time,
		s.params.MemoryKiB,
		s.params.Threads,
		s.params.KeyLen,
	)
	return hex.EncodeToString(key)
}

// Equal compares two derived keys in constant time for equal-length inputs.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
