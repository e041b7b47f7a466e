// Package derivation turns a transaction digest into candidate Sui object
// IDs. A DerivationSpec is produced once by a TemplateBuilder and then
// consulted, per batch, by every engine worker — it never changes once a
// job starts.
package derivation

import "github.com/sui-tools/vanity-miner/internal/hashcore"

// Algorithm is the sum type for "how do I turn (digest, index) into an ID".
// It is a tagged union, not runtime reflection: the engine branches on it
// once per batch.
type Algorithm int

const (
	// Sha3_256 derives the published package's own ID: SHA3-256(digest || index_le8).
	Sha3_256 Algorithm = iota
	// Blake2b256WithPrefix derives any other created object's ID:
	// BLAKE2b-256(0xF1 || digest || index_le8).
	Blake2b256WithPrefix
)

func (a Algorithm) String() string {
	switch a {
	case Sha3_256:
		return "sha3_256"
	case Blake2b256WithPrefix:
		return "blake2b256_with_prefix"
	default:
		return "unknown"
	}
}

// domainByte is the single domain-separation byte prepended before hashing
// for Blake2b256WithPrefix.
const domainByte = 0xF1

// Scheme describes which object indices a job cares about: either a single
// fixed index (the package itself, or a user-named target object) or a
// contiguous range (every coin SplitCoins produces).
type Scheme struct {
	Start uint64
	End   uint64 // exclusive; End == Start+1 for a single index
}

// IndexOnly builds a Scheme covering exactly one index.
func IndexOnly(index uint64) Scheme {
	return Scheme{Start: index, End: index + 1}
}

// IndexRange builds a Scheme covering [start, end).
func IndexRange(start, end uint64) Scheme {
	return Scheme{Start: start, End: end}
}

// Indices returns every index the scheme covers, in ascending order.
func (s Scheme) Indices() []uint64 {
	out := make([]uint64, 0, s.End-s.Start)
	for i := s.Start; i < s.End; i++ {
		out = append(out, i)
	}
	return out
}

// Spec pairs a Scheme with the Algorithm used to derive each index's ID.
type Spec struct {
	Scheme    Scheme
	Algorithm Algorithm
}

// indexBytes encodes index as 8 little-endian bytes, matching the nonce
// encoding used elsewhere in the template.
func indexBytes(index uint64) [8]byte {
	var b [8]byte
	b[0] = byte(index)
	b[1] = byte(index >> 8)
	b[2] = byte(index >> 16)
	b[3] = byte(index >> 24)
	b[4] = byte(index >> 32)
	b[5] = byte(index >> 40)
	b[6] = byte(index >> 48)
	b[7] = byte(index >> 56)
	return b
}

// Derive computes the object ID at a single index for a given transaction
// digest, per spec section 6.
func Derive(algorithm Algorithm, digest [32]byte, index uint64) [32]byte {
	idx := indexBytes(index)
	switch algorithm {
	case Sha3_256:
		return hashcore.SHA3_256(digest[:], idx[:])
	case Blake2b256WithPrefix:
		return hashcore.Blake2b256([]byte{domainByte}, digest[:], idx[:])
	default:
		panic("derivation: unknown algorithm")
	}
}

// DeriveAll computes the object ID for every index in spec.Scheme.
func (s Spec) DeriveAll(digest [32]byte) [][32]byte {
	indices := s.Scheme.Indices()
	out := make([][32]byte, len(indices))
	for i, idx := range indices {
		out[i] = Derive(s.Algorithm, digest, idx)
	}
	return out
}
