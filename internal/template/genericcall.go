package template

import (
	"github.com/sui-tools/vanity-miner/internal/derivation"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/prefixmatcher"
	"github.com/sui-tools/vanity-miner/internal/sui"
)

// CallArgSpec describes one input to a Move call before it becomes a
// sui.CallArg: either already-BCS-encoded pure bytes, or an object
// reference. Exactly one of Pure / Object should be set.
type CallArgSpec struct {
	Pure   []byte
	Object *sui.ObjectRef
}

// GenericCallInput is the mode-specific payload for GenericCall (spec
// 4.2.3): a single Move entry/public function invocation. TargetIndex names
// which object index the caller wants to inspect — it is not necessarily
// the call's only result, just the one the derivation spec watches.
type GenericCallInput struct {
	Sender        sui.Address
	Package       sui.Address
	Module        string
	Function      string
	TypeArgs      []sui.TypeTag
	Args          []CallArgSpec
	TargetIndex   uint64
	GasObject     sui.ObjectRef
	GasPrice      uint64
	BaseGasBudget uint64
}

// BuildGenericCall constructs a single-command MoveCall template. Unlike
// PackagePublish and SplitCoin, the caller names the object index it cares
// about directly (TargetIndex) rather than the builder inferring a range,
// since a generic call's result shape isn't known to this package.
func BuildGenericCall(input GenericCallInput, prefix string) (*Template, *prefixmatcher.Matcher, error) {
	matcher, err := validatePrefix(prefix)
	if err != nil {
		return nil, nil, err
	}
	if err := checkNonZeroAddress("sender", input.Sender); err != nil {
		return nil, nil, err
	}
	if err := checkNonZeroAddress("package", input.Package); err != nil {
		return nil, nil, err
	}
	if input.Module == "" {
		return nil, nil, minerr.New(minerr.InvalidInput, "module name must not be empty")
	}
	if input.Function == "" {
		return nil, nil, minerr.New(minerr.InvalidInput, "function name must not be empty")
	}

	var inputs []sui.CallArg
	callArgs := make([]sui.Argument, len(input.Args))
	for i, spec := range input.Args {
		switch {
		case spec.Object != nil:
			inputs = append(inputs, sui.ObjectCallArg(*spec.Object))
		case spec.Pure != nil:
			inputs = append(inputs, sui.PureArg(spec.Pure))
		default:
			return nil, nil, minerr.New(minerr.InvalidInput, "argument at index %d has neither Pure nor Object set", i)
		}
		callArgs[i] = sui.InputArg(uint16(len(inputs) - 1))
	}

	ptx := sui.ProgrammableTransaction{
		Inputs: inputs,
		Commands: []sui.Command{
			{
				Kind: sui.CommandMoveCall,
				MoveCall: &sui.MoveCallCommand{
					Package:   input.Package,
					Module:    input.Module,
					Function:  input.Function,
					TypeArgs:  input.TypeArgs,
					Arguments: callArgs,
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
			Scheme:    derivation.IndexOnly(input.TargetIndex),
			Algorithm: derivation.Blake2b256WithPrefix,
		},
	}, matcher, nil
}
