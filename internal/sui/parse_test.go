package sui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_PadsShortHex(t *testing.T) {
	a, err := ParseAddress("0x2")
	require.NoError(t, err)

	var want Address
	want[31] = 0x02
	assert.Equal(t, want, a)
}

func TestParseAddress_RejectsOversized(t *testing.T) {
	_, err := ParseAddress("0x" + stringRepeat("ff", 40))
	assert.Error(t, err)
}

func TestParseTypeTag_Primitives(t *testing.T) {
	cases := map[string]TypeTagKind{
		"bool": TypeBool, "u8": TypeU8, "u16": TypeU16, "u32": TypeU32,
		"u64": TypeU64, "u128": TypeU128, "u256": TypeU256,
		"address": TypeAddress, "signer": TypeSigner,
	}
	for s, kind := range cases {
		tag, err := ParseTypeTag(s)
		require.NoError(t, err)
		assert.Equal(t, kind, tag.Kind)
	}
}

func TestParseTypeTag_Vector(t *testing.T) {
	tag, err := ParseTypeTag("vector<u8>")
	require.NoError(t, err)
	require.Equal(t, TypeVector, tag.Kind)
	require.NotNil(t, tag.Elem)
	assert.Equal(t, TypeU8, tag.Elem.Kind)
}

func TestParseTypeTag_NestedVector(t *testing.T) {
	tag, err := ParseTypeTag("vector<vector<u64>>")
	require.NoError(t, err)
	require.Equal(t, TypeVector, tag.Kind)
	require.Equal(t, TypeVector, tag.Elem.Kind)
	assert.Equal(t, TypeU64, tag.Elem.Elem.Kind)
}

func TestParseTypeTag_StructWithTypeParams(t *testing.T) {
	tag, err := ParseTypeTag("0x2::coin::Coin<0x2::sui::SUI>")
	require.NoError(t, err)
	require.Equal(t, TypeStruct, tag.Kind)
	require.NotNil(t, tag.Struct)
	assert.Equal(t, "coin", tag.Struct.Module)
	assert.Equal(t, "Coin", tag.Struct.Name)
	require.Len(t, tag.Struct.TypeParams, 1)
	assert.Equal(t, TypeStruct, tag.Struct.TypeParams[0].Kind)
	assert.Equal(t, "SUI", tag.Struct.TypeParams[0].Struct.Name)
}

func TestParseTypeTag_RejectsUnknown(t *testing.T) {
	_, err := ParseTypeTag("not_a_type")
	assert.Error(t, err)
}

func stringRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
