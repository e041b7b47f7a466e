package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sui-tools/vanity-miner/internal/derivation"
	"github.com/sui-tools/vanity-miner/internal/hashcore"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/sui"
)

func addrFilled(b byte) sui.Address {
	var a sui.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testGasObject() sui.ObjectRef {
	return sui.ObjectRef{ID: addrFilled(0x09), Version: 3, Digest: addrFilled(0x0A)}
}

// assertNonceRoundTrip is the P4 property, checked on a sample of nonces
// from [0, 2^20): writing each one at tmpl.NonceOffset must yield a buffer
// that decodes with its gas budget at that offset, equal to the nonce
// written.
func assertNonceRoundTrip(t *testing.T, tmpl *Template) {
	t.Helper()
	for _, nonce := range []uint64{0, 1, 255, 256, 1 << 16, (1 << 20) - 1} {
		buf := append([]byte(nil), tmpl.Bytes...)
		WriteNonce(buf, tmpl.NonceOffset, nonce)
		_, gas, budgetOffset, err := sui.DecodeTransactionDataV1(buf)
		require.NoError(t, err)
		assert.Equal(t, tmpl.NonceOffset, budgetOffset)
		assert.Equal(t, nonce, gas.Budget)
	}
}

// assertDeterministic is the P5 property: building the identical input
// twice must produce byte-identical templates and an identical digest for
// any fixed nonce.
func assertDeterministic(t *testing.T, build func() (*Template, error)) {
	t.Helper()
	a, err := build()
	require.NoError(t, err)
	b, err := build()
	require.NoError(t, err)
	assert.Equal(t, a.Bytes, b.Bytes)
	assert.Equal(t, a.NonceOffset, b.NonceOffset)

	bufA := append([]byte(nil), a.Bytes...)
	bufB := append([]byte(nil), b.Bytes...)
	WriteNonce(bufA, a.NonceOffset, 42)
	WriteNonce(bufB, b.NonceOffset, 42)
	assert.Equal(t, hashcore.TxDigest(bufA), hashcore.TxDigest(bufB))
}

func TestBuildPublish(t *testing.T) {
	sender := addrFilled(0x01)
	input := PublishInput{
		Sender: sender,
		Modules: []ModuleFile{
			{Filename: "b.mv", Bytecode: []byte{0x02, 0x02}},
			{Filename: "a.mv", Bytecode: []byte{0x01, 0x01}},
		},
		GasObject:     testGasObject(),
		GasPrice:      1000,
		BaseGasBudget: 5_000_000,
	}

	tmpl, matcher, err := BuildPublish(input, "cafe")
	require.NoError(t, err)
	assert.NotNil(t, matcher)
	assert.Equal(t, derivation.Sha3_256, tmpl.Derivation.Algorithm)
	assert.Equal(t, []uint64{0}, tmpl.Derivation.Scheme.Indices())

	assertNonceRoundTrip(t, tmpl)
	assertDeterministic(t, func() (*Template, error) {
		tmpl, _, err := BuildPublish(input, "cafe")
		return tmpl, err
	})
}

func TestBuildPublish_ModuleOrderIsDeterministicRegardlessOfInputOrder(t *testing.T) {
	sender := addrFilled(0x01)
	modulesForward := []ModuleFile{
		{Filename: "a.mv", Bytecode: []byte{0x01}},
		{Filename: "b.mv", Bytecode: []byte{0x02}},
	}
	modulesReverse := []ModuleFile{
		{Filename: "b.mv", Bytecode: []byte{0x02}},
		{Filename: "a.mv", Bytecode: []byte{0x01}},
	}

	tmplA, _, err := BuildPublish(PublishInput{
		Sender: sender, Modules: modulesForward, GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 1_000_000,
	}, "ab")
	require.NoError(t, err)

	tmplB, _, err := BuildPublish(PublishInput{
		Sender: sender, Modules: modulesReverse, GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 1_000_000,
	}, "ab")
	require.NoError(t, err)

	assert.Equal(t, tmplA.Bytes, tmplB.Bytes)
}

func TestBuildPublish_RejectsEmptyModuleList(t *testing.T) {
	_, _, err := BuildPublish(PublishInput{
		Sender: addrFilled(0x01), GasObject: testGasObject(), GasPrice: 1000, BaseGasBudget: 1,
	}, "ab")
	require.Error(t, err)
	merr, ok := err.(*minerr.Error)
	require.True(t, ok)
	assert.Equal(t, minerr.InvalidInput, merr.Kind)
}

func TestBuildPublish_RejectsZeroSender(t *testing.T) {
	_, _, err := BuildPublish(PublishInput{
		Modules:   []ModuleFile{{Filename: "a.mv", Bytecode: []byte{0x01}}},
		GasObject: testGasObject(), GasPrice: 1000, BaseGasBudget: 1,
	}, "ab")
	require.Error(t, err)
	merr, ok := err.(*minerr.Error)
	require.True(t, ok)
	assert.Equal(t, minerr.InvalidInput, merr.Kind)
}

func TestBuildPublish_RejectsBadPrefix(t *testing.T) {
	input := PublishInput{
		Sender:    addrFilled(0x01),
		Modules:   []ModuleFile{{Filename: "a.mv", Bytecode: []byte{0x01}}},
		GasObject: testGasObject(), GasPrice: 1000, BaseGasBudget: 1,
	}

	_, _, err := BuildPublish(input, "")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidPrefix, err.(*minerr.Error).Kind)

	_, _, err = BuildPublish(input, "not-hex")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidPrefix, err.(*minerr.Error).Kind)

	_, _, err = BuildPublish(input, string(make([]byte, 65)))
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidPrefix, err.(*minerr.Error).Kind)
}

func TestBuildSplitCoin_SingleAmount(t *testing.T) {
	input := SplitCoinInput{
		Sender: addrFilled(0x02), GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 5_000_000,
		SplitAmounts: []uint64{1_000_000},
		GasBalance:   10_000_000,
	}

	tmpl, matcher, err := BuildSplitCoin(input, "dead")
	require.NoError(t, err)
	assert.NotNil(t, matcher)
	assert.Equal(t, derivation.Blake2b256WithPrefix, tmpl.Derivation.Algorithm)
	assert.Equal(t, []uint64{0}, tmpl.Derivation.Scheme.Indices())

	assertNonceRoundTrip(t, tmpl)
	assertDeterministic(t, func() (*Template, error) {
		tmpl, _, err := BuildSplitCoin(input, "dead")
		return tmpl, err
	})
}

func TestBuildSplitCoin_MultipleAmounts(t *testing.T) {
	input := SplitCoinInput{
		Sender: addrFilled(0x02), GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 5_000_000,
		SplitAmounts: []uint64{1_000_000, 2_000_000, 3_000_000},
	}

	tmpl, _, err := BuildSplitCoin(input, "dead")
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2}, tmpl.Derivation.Scheme.Indices())
	assertNonceRoundTrip(t, tmpl)
}

func TestBuildSplitCoin_RejectsZeroAmount(t *testing.T) {
	_, _, err := BuildSplitCoin(SplitCoinInput{
		Sender: addrFilled(0x02), GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 1,
		SplitAmounts: []uint64{1_000_000, 0},
	}, "dead")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)
}

func TestBuildSplitCoin_RejectsEmptyAmounts(t *testing.T) {
	_, _, err := BuildSplitCoin(SplitCoinInput{
		Sender: addrFilled(0x02), GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 1,
	}, "dead")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)
}

func TestBuildSplitCoin_RejectsAmountsExceedingBalance(t *testing.T) {
	_, _, err := BuildSplitCoin(SplitCoinInput{
		Sender: addrFilled(0x02), GasObject: testGasObject(),
		GasPrice: 1000, BaseGasBudget: 1,
		SplitAmounts: []uint64{9_000_000, 2_000_000},
		GasBalance:   10_000_000,
	}, "dead")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)
}

func TestBuildGenericCall_TargetIndexZero(t *testing.T) {
	input := GenericCallInput{
		Sender:   addrFilled(0x03),
		Package:  addrFilled(0x04),
		Module:   "example",
		Function: "mint",
		Args: []CallArgSpec{
			{Pure: []byte{0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
		},
		TargetIndex:   0,
		GasObject:     testGasObject(),
		GasPrice:      1000,
		BaseGasBudget: 2_000_000,
	}

	tmpl, matcher, err := BuildGenericCall(input, "1234")
	require.NoError(t, err)
	assert.NotNil(t, matcher)
	assert.Equal(t, derivation.Blake2b256WithPrefix, tmpl.Derivation.Algorithm)
	assert.Equal(t, []uint64{0}, tmpl.Derivation.Scheme.Indices())

	assertNonceRoundTrip(t, tmpl)
	assertDeterministic(t, func() (*Template, error) {
		tmpl, _, err := BuildGenericCall(input, "1234")
		return tmpl, err
	})
}

func TestBuildGenericCall_NonZeroTargetIndexWithObjectArg(t *testing.T) {
	input := GenericCallInput{
		Sender:   addrFilled(0x03),
		Package:  addrFilled(0x04),
		Module:   "example",
		Function: "touch",
		Args: []CallArgSpec{
			{Object: &sui.ObjectRef{ID: addrFilled(0x05), Version: 1, Digest: addrFilled(0x06)}},
		},
		TargetIndex:   3,
		GasObject:     testGasObject(),
		GasPrice:      1000,
		BaseGasBudget: 2_000_000,
	}

	tmpl, _, err := BuildGenericCall(input, "1234")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, tmpl.Derivation.Scheme.Indices())
	assertNonceRoundTrip(t, tmpl)
}

func TestBuildGenericCall_WithTypeArgsAndMultipleArgs(t *testing.T) {
	input := GenericCallInput{
		Sender:   addrFilled(0x03),
		Package:  addrFilled(0x04),
		Module:   "example",
		Function: "split_and_mint",
		TypeArgs: []sui.TypeTag{{Kind: sui.TypeU64}},
		Args: []CallArgSpec{
			{Pure: []byte{0x01}},
			{Pure: []byte{0x02}},
		},
		TargetIndex:   1,
		GasObject:     testGasObject(),
		GasPrice:      1000,
		BaseGasBudget: 2_000_000,
	}

	tmpl, _, err := BuildGenericCall(input, "1234")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, tmpl.Derivation.Scheme.Indices())
	assertNonceRoundTrip(t, tmpl)
}

func TestBuildGenericCall_RejectsEmptyModuleOrFunction(t *testing.T) {
	base := GenericCallInput{
		Sender: addrFilled(0x03), Package: addrFilled(0x04),
		GasObject: testGasObject(), GasPrice: 1000, BaseGasBudget: 1,
	}

	withoutModule := base
	withoutModule.Function = "f"
	_, _, err := BuildGenericCall(withoutModule, "1234")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)

	withoutFunction := base
	withoutFunction.Module = "m"
	_, _, err = BuildGenericCall(withoutFunction, "1234")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)
}

func TestBuildGenericCall_RejectsArgWithNeitherPureNorObject(t *testing.T) {
	_, _, err := BuildGenericCall(GenericCallInput{
		Sender: addrFilled(0x03), Package: addrFilled(0x04),
		Module: "m", Function: "f",
		Args:      []CallArgSpec{{}},
		GasObject: testGasObject(), GasPrice: 1000, BaseGasBudget: 1,
	}, "1234")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)
}

func TestBuildGenericCall_RejectsZeroPackage(t *testing.T) {
	_, _, err := BuildGenericCall(GenericCallInput{
		Sender: addrFilled(0x03),
		Module: "m", Function: "f",
		GasObject: testGasObject(), GasPrice: 1000, BaseGasBudget: 1,
	}, "1234")
	require.Error(t, err)
	assert.Equal(t, minerr.InvalidInput, err.(*minerr.Error).Kind)
}
