package template

import (
	"encoding/binary"

	"github.com/sui-tools/vanity-miner/internal/derivation"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/prefixmatcher"
	"github.com/sui-tools/vanity-miner/internal/sui"
)

// SplitCoinInput is the mode-specific payload for SplitCoin (spec 4.2.2).
type SplitCoinInput struct {
	Sender        sui.Address
	GasObject     sui.ObjectRef
	GasPrice      uint64
	BaseGasBudget uint64
	SplitAmounts  []uint64
	GasBalance    uint64 // gas_object.balance, used only to validate Σ amounts < balance
}

// BuildSplitCoin constructs the coin-split template: SplitCoins(GasCoin,
// amounts) followed by TransferObjects of the resulting coin(s) to sender.
// New coin IDs occupy a contiguous index range derived with Blake2b-256.
func BuildSplitCoin(input SplitCoinInput, prefix string) (*Template, *prefixmatcher.Matcher, error) {
	matcher, err := validatePrefix(prefix)
	if err != nil {
		return nil, nil, err
	}
	if len(input.SplitAmounts) == 0 {
		return nil, nil, minerr.New(minerr.InvalidInput, "split-coin requires at least one amount")
	}
	if err := checkNonZeroAddress("sender", input.Sender); err != nil {
		return nil, nil, err
	}

	var total uint64
	for i, amount := range input.SplitAmounts {
		if amount == 0 {
			return nil, nil, minerr.New(minerr.InvalidInput, "split amount at index %d must be nonzero", i)
		}
		total += amount
	}
	if input.GasBalance != 0 && total >= input.GasBalance {
		return nil, nil, minerr.New(minerr.InvalidInput, "sum of split amounts (%d) must be less than gas object balance (%d)", total, input.GasBalance)
	}

	senderInputIndex := uint16(0)
	inputs := []sui.CallArg{
		sui.PureArg(append([]byte(nil), input.Sender[:]...)),
	}
	amountArgs := make([]sui.Argument, len(input.SplitAmounts))
	for i, amount := range input.SplitAmounts {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], amount)
		inputs = append(inputs, sui.PureArg(b[:]))
		amountArgs[i] = sui.InputArg(uint16(len(inputs) - 1))
	}

	coinObjects := make([]sui.Argument, len(input.SplitAmounts))
	for i := range coinObjects {
		if len(input.SplitAmounts) == 1 {
			coinObjects[i] = sui.ResultArg(0)
		} else {
			coinObjects[i] = sui.Argument{Kind: sui.ArgNestedResult, Index: 0, Index2: uint16(i)}
		}
	}

	ptx := sui.ProgrammableTransaction{
		Inputs: inputs,
		Commands: []sui.Command{
			{
				Kind: sui.CommandSplitCoins,
				SplitCoins: &sui.SplitCoinsCommand{
					Coin:    sui.GasCoinArg(),
					Amounts: amountArgs,
				},
			},
			{
				Kind: sui.CommandTransferObjects,
				TransferObjects: &sui.TransferObjectsCommand{
					Objects: coinObjects,
					Address: sui.InputArg(senderInputIndex),
				},
			},
		},
	}

	txData := sui.TransactionDataV1{
		Tx:     ptx,
		Sender: input.Sender,
		Gas: sui.GasData{
			Payment: []sui.ObjectRef{input.GasObject},
			Owner:   input.Sender,
			Price:   input.GasPrice,
			Budget:  input.BaseGasBudget,
		},
	}

	w := newWriter(512)
	nonceOffset := txData.Encode(w)
	txBytes := w.Bytes()

	if err := selfCheck(txBytes, nonceOffset); err != nil {
		return nil, nil, err
	}

	return &Template{
		Bytes:       txBytes,
		NonceOffset: nonceOffset,
		Derivation: derivation.Spec{
			Scheme:    derivation.IndexRange(0, uint64(len(input.SplitAmounts))),
			Algorithm: derivation.Blake2b256WithPrefix,
		},
	}, matcher, nil
}
