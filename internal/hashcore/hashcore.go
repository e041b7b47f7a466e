// Package hashcore provides the two digest algorithms the mining engine
// calls on its hot path: Blake2b-256 and SHA3-256. Both are thin wrappers
// around golang.org/x/crypto, plus fused one-shot helpers for the exact
// input shapes the engine and the template builders use, so the hot loop
// never needs to allocate a slice just to concatenate arguments before
// hashing.
package hashcore

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Size is the digest length every algorithm in this package produces.
const Size = 32

// IntentPrefix is the fixed 3-byte intent scope prepended to transaction
// bytes before hashing to obtain a transaction digest: scope=transaction(0),
// version=0, app=0.
var IntentPrefix = [3]byte{0, 0, 0}

// Blake2bIncremental is a stateful Blake2b-256 context: init via New,
// Write any number of times, then Sum to finalize. No key, no salt, no
// personalisation — digest length 32 (parameter block XORs
// 0x0000_0000_0101_0020 into the first state word: depth=1, fanout=1,
// digest_length=32), which is exactly blake2b.New256(nil)'s behavior.
type Blake2bIncremental struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
		Reset()
	}
}

// NewBlake2b256 starts a fresh incremental Blake2b-256 context.
func NewBlake2b256() *Blake2bIncremental {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256(nil) only fails for an oversized key; nil can't trigger that.
		panic("hashcore: blake2b.New256 failed: " + err.Error())
	}
	return &Blake2bIncremental{h: h}
}

// Update feeds more bytes into the running hash.
func (b *Blake2bIncremental) Update(p []byte) *Blake2bIncremental {
	b.h.Write(p)
	return b
}

// Finalize returns the 32-byte digest of everything written so far.
func (b *Blake2bIncremental) Finalize() [Size]byte {
	var out [Size]byte
	copy(out[:], b.h.Sum(nil))
	return out
}

// SHA3Incremental is a stateful SHA3-256 context (Keccak-f[1600], 24
// rounds, domain separation byte 0x06, rate 136 bytes). Every input this
// engine feeds it is at most a few dozen bytes, well under one block.
type SHA3Incremental struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
		Reset()
	}
}

// NewSHA3_256 starts a fresh incremental SHA3-256 context.
func NewSHA3_256() *SHA3Incremental {
	return &SHA3Incremental{h: sha3.New256()}
}

// Update feeds more bytes into the running hash.
func (s *SHA3Incremental) Update(p []byte) *SHA3Incremental {
	s.h.Write(p)
	return s
}

// Finalize returns the 32-byte digest of everything written so far.
func (s *SHA3Incremental) Finalize() [Size]byte {
	var out [Size]byte
	copy(out[:], s.h.Sum(nil))
	return out
}

// Blake2b256 is the one-shot helper for Blake2b-256(parts[0] || parts[1] || ...).
// Each part is fed to the incremental hasher directly — no intermediate
// concatenation buffer is allocated.
func Blake2b256(parts ...[]byte) [Size]byte {
	h := NewBlake2b256()
	for _, p := range parts {
		h.Update(p)
	}
	return h.Finalize()
}

// SHA3_256 is the one-shot helper for SHA3-256(parts[0] || parts[1] || ...).
func SHA3_256(parts ...[]byte) [Size]byte {
	h := NewSHA3_256()
	for _, p := range parts {
		h.Update(p)
	}
	return h.Finalize()
}

// TxDigest computes the transaction digest Blake2b256(IntentPrefix || txBytes),
// the digest the object-ID derivation functions key off of (spec section 6).
func TxDigest(txBytes []byte) [Size]byte {
	return Blake2b256(IntentPrefix[:], txBytes)
}
