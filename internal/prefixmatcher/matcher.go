// Package prefixmatcher turns a user-supplied hex prefix into a small,
// allocation-free comparator against 32-byte candidate object IDs.
package prefixmatcher

import (
	"fmt"

	"github.com/sui-tools/vanity-miner/internal/minerr"
)

// MaxLen is the longest prefix accepted — a full 32-byte ID, hex-encoded.
const MaxLen = 64

// Matcher holds the packed prefix bytes and compares candidates against
// them with a fixed, branch-light routine. A Matcher is immutable after
// construction and safe to share read-only across worker goroutines.
type Matcher struct {
	prefixBytes [MaxLen / 2]byte
	fullBytes   int
	hasHalfByte bool
}

var hexValue [256]int8

func init() {
	for i := range hexValue {
		hexValue[i] = -1
	}
	for c := '0'; c <= '9'; c++ {
		hexValue[c] = int8(c - '0')
	}
	for c := 'a'; c <= 'f'; c++ {
		hexValue[c] = int8(c-'a') + 10
	}
	for c := 'A'; c <= 'F'; c++ {
		hexValue[c] = int8(c-'A') + 10
	}
}

// New builds a Matcher from a user hex string (1 to 64 characters,
// case-insensitive). Construction hex-decodes left to right; if the
// prefix has odd length, the last character's value occupies the high
// nibble of prefixBytes[fullBytes] and hasHalfByte is set.
func New(prefix string) (*Matcher, error) {
	n := len(prefix)
	if n == 0 {
		return nil, minerr.New(minerr.InvalidPrefix, "prefix must not be empty")
	}
	if n > MaxLen {
		return nil, minerr.New(minerr.InvalidPrefix, "prefix longer than %d characters", MaxLen)
	}

	m := &Matcher{}
	fullPairs := n / 2
	for i := 0; i < fullPairs; i++ {
		hi, err := nibble(prefix[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := nibble(prefix[2*i+1])
		if err != nil {
			return nil, err
		}
		m.prefixBytes[i] = hi<<4 | lo
	}
	m.fullBytes = fullPairs

	if n%2 == 1 {
		hi, err := nibble(prefix[n-1])
		if err != nil {
			return nil, err
		}
		m.prefixBytes[fullPairs] = hi << 4
		m.hasHalfByte = true
	}

	return m, nil
}

func nibble(c byte) (byte, error) {
	v := hexValue[c]
	if v < 0 {
		return 0, minerr.New(minerr.InvalidPrefix, "prefix contains non-hex character %q", string(rune(c)))
	}
	return byte(v), nil
}

// Matches reports whether candidate's hex encoding begins with the
// configured prefix. No allocation, no branching on prefix contents
// inside the comparison — just a byte memcmp plus (optionally) one
// nibble compare.
func (m *Matcher) Matches(candidate []byte) bool {
	if len(candidate) < m.fullBytes {
		return false
	}
	for i := 0; i < m.fullBytes; i++ {
		if candidate[i] != m.prefixBytes[i] {
			return false
		}
	}
	if m.hasHalfByte {
		if len(candidate) <= m.fullBytes {
			return false
		}
		if candidate[m.fullBytes]&0xF0 != m.prefixBytes[m.fullBytes]&0xF0 {
			return false
		}
	}
	return true
}

// FullBytes returns the number of whole bytes the matcher compares.
func (m *Matcher) FullBytes() int { return m.fullBytes }

// HasHalfByte reports whether the prefix has an odd number of hex digits.
func (m *Matcher) HasHalfByte() bool { return m.hasHalfByte }

// String renders the matcher back to its canonical upper-hex form, for
// logging and error messages.
func (m *Matcher) String() string {
	s := fmt.Sprintf("%X", m.prefixBytes[:m.fullBytes])
	if m.hasHalfByte {
		s += fmt.Sprintf("%X", m.prefixBytes[m.fullBytes]>>4)
	}
	return s
}
