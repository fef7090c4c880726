package code

import (
	"strings"
	"testing"
)

func TestNewShortCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := NewShortCode()
		if len(c) != ShortCodeLen {
			t.Fatalf("short code %q has length %d, want %d", c, len(c), ShortCodeLen)
		}
		for _, r := range c {
			if !strings.ContainsRune(shortCodeAlphabet, r) {
				t.Fatalf("short code %q contains invalid rune %q", c, r)
			}
		}
		seen[c] = true
	}
	// 100 draws from 36^6 should essentially never collide down to one value.
	if len(seen) < 2 {
		t.Error("short codes do not vary")
	}
}

func TestNewJoinCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		c := NewJoinCode()
		if !ValidJoinCode(c) {
			t.Fatalf("generated join code %q is not valid", c)
		}
		if c[0] == '0' {
			t.Fatalf("join code %q starts with zero, range is 100000-999999", c)
		}
	}
}

func TestValidJoinCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"", false},
		{"12 456", false},
	}
	for _, tt := range tests {
		if got := ValidJoinCode(tt.in); got != tt.want {
			t.Errorf("ValidJoinCode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
