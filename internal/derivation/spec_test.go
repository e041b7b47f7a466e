package derivation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexOnly(t *testing.T) {
	s := IndexOnly(5)
	assert.Equal(t, []uint64{5}, s.Indices())
}

func TestIndexRange(t *testing.T) {
	s := IndexRange(2, 5)
	assert.Equal(t, []uint64{2, 3, 4}, s.Indices())
}

func TestDerive_AlgorithmsDiffer(t *testing.T) {
	var digest [32]byte
	copy(digest[:], []byte("some transaction digest bytes.."))

	a := Derive(Sha3_256, digest, 0)
	b := Derive(Blake2b256WithPrefix, digest, 0)
	assert.NotEqual(t, a, b)
}

// P3: for a fixed digest, derive(digest, i) != derive(digest, j) for i != j,
// with overwhelming probability, checked over random digests and the first
// 256 indices.
func TestDerive_Uniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 8; trial++ {
		var digest [32]byte
		rng.Read(digest[:])

		for _, algo := range []Algorithm{Sha3_256, Blake2b256WithPrefix} {
			seen := make(map[[32]byte]uint64, 256)
			for i := uint64(0); i < 256; i++ {
				id := Derive(algo, digest, i)
				if prev, ok := seen[id]; ok {
					t.Fatalf("collision for algorithm %v: index %d and %d produced the same id", algo, prev, i)
				}
				seen[id] = i
			}
		}
	}
}

func TestDeriveAll_MatchesScheme(t *testing.T) {
	var digest [32]byte
	copy(digest[:], []byte("another transaction digest here"))

	spec := Spec{Scheme: IndexRange(0, 3), Algorithm: Blake2b256WithPrefix}
	ids := spec.DeriveAll(digest)
	assert.Len(t, ids, 3)
	for i, id := range ids {
		assert.Equal(t, Derive(Blake2b256WithPrefix, digest, uint64(i)), id)
	}
}
