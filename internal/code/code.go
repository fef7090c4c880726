// Package code generates the public identifiers students type or follow:
// exam short codes (links) and session join codes (PIN entry).
package code

import (
	"fmt"
	"math/rand/v2"
)

const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ShortCodeLen is the length of an exam short code.
const ShortCodeLen = 6

// NewShortCode returns a 6-character uppercase alphanumeric exam code.
func NewShortCode() string {
	b := make([]byte, ShortCodeLen)
	for i := range b {
		b[i] = shortCodeAlphabet[rand.IntN(len(shortCodeAlphabet))]
	}
	return string(b)
}

// NewJoinCode returns a 6-digit session PIN, uniform over 100000-999999.
func NewJoinCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

// ValidJoinCode reports whether s looks like a join code: exactly 6 ASCII digits.
func ValidJoinCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
