package confirmcode

import (
	"errors"
	"strings"
	"testing"

	"github.com/pageguard/visitauth/internal/pkg/randsource"
)

// seqSource returns a fixed sequence of indices.
type seqSource struct {
	values []int
	pos    int
}

func (s *seqSource) Next(n int) (int, error) {
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v % n, nil
}

type failingSource struct{}

func (failingSource) Next(int) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	gen := New(randsource.New())
	for i := 0; i < 100; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("expected %d characters, got %d (%q)", Length, len(code), code)
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		if !IsValid(code) {
			t.Fatalf("IsValid rejected generated code %q", code)
		}
	}
}

func TestGenerate_UsesSource(t *testing.T) {
	gen := New(&seqSource{values: []int{0, 1, 2, 25, 26, 35}})
	code, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if code != "ABCZ09" {
		t.Fatalf("expected ABCZ09, got %q", code)
	}
}

func TestGenerate_SourceFailure(t *testing.T) {
	gen := New(failingSource{})
	if _, err := gen.Generate(); err == nil {
		t.Fatalf("expected error when the source fails")
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"ZZZZZZ", true},
		{"000000", true},
		{"", false},
		{"ABC12", false},    // too short
		{"ABC1234", false},  // too long
		{"abc123", false},   // lowercase
		{"ABC12!", false},   // symbol
		{"ABC 12", false},   // whitespace
		{"ÀBC123", false},   // non-ASCII letter
	}
	for _, tc := range cases {
		if got := IsValid(tc.code); got != tc.want {
			t.Fatalf("IsValid(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
