package template

import (
	"sort"

	"github.com/sui-tools/vanity-miner/internal/derivation"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/prefixmatcher"
	"github.com/sui-tools/vanity-miner/internal/sui"
)

// frameworkAddress0x1 and frameworkAddress0x2 are the implicit Move
// framework dependencies (std and sui) every published package depends on.
var (
	frameworkAddress0x1 = addressFromByte(0x01)
	frameworkAddress0x2 = addressFromByte(0x02)
)

func addressFromByte(last byte) sui.Address {
	var a sui.Address
	a[31] = last
	return a
}

// ModuleFile is one compiled Move module to publish, named so the builder
// can put the module list in a stable order.
type ModuleFile struct {
	Filename string
	Bytecode []byte
}

// PublishInput is the mode-specific payload for PackagePublish (spec 4.2.1).
type PublishInput struct {
	Sender        sui.Address
	Modules       []ModuleFile
	GasObject     sui.ObjectRef
	GasPrice      uint64
	BaseGasBudget uint64
}

// BuildPublish constructs the publish-package template: one Publish command
// followed by a TransferObjects command that sends the new package's
// UpgradeCap to the sender. The package's own ID is derived at index 0
// using SHA3-256, per the Sui protocol rule spec 4.2.1 describes.
func BuildPublish(input PublishInput, prefix string) (*Template, *prefixmatcher.Matcher, error) {
	matcher, err := validatePrefix(prefix)
	if err != nil {
		return nil, nil, err
	}
	if len(input.Modules) == 0 {
		return nil, nil, minerr.New(minerr.InvalidInput, "publish requires at least one module")
	}
	if err := checkNonZeroAddress("sender", input.Sender); err != nil {
		return nil, nil, err
	}

	modules := make([]ModuleFile, len(input.Modules))
	copy(modules, input.Modules)
	sort.Slice(modules, func(i, j int) bool { return modules[i].Filename < modules[j].Filename })

	moduleBytes := make([][]byte, len(modules))
	for i, m := range modules {
		moduleBytes[i] = m.Bytecode
	}

	senderInputIndex := uint16(0)
	ptx := sui.ProgrammableTransaction{
		Inputs: []sui.CallArg{
			sui.PureArg(append([]byte(nil), input.Sender[:]...)),
		},
		Commands: []sui.Command{
			{
				Kind: sui.CommandPublish,
				Publish: &sui.PublishCommand{
					Modules:      moduleBytes,
					Dependencies: []sui.Address{frameworkAddress0x1, frameworkAddress0x2},
				},
			},
			{
				Kind: sui.CommandTransferObjects,
				TransferObjects: &sui.TransferObjectsCommand{
					Objects: []sui.Argument{sui.ResultArg(0)},
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

	w := newWriter(512 + totalModuleBytes(moduleBytes))
	nonceOffset := txData.Encode(w)
	txBytes := w.Bytes()

	if err := selfCheck(txBytes, nonceOffset); err != nil {
		return nil, nil, err
	}

	return &Template{
		Bytes:       txBytes,
		NonceOffset: nonceOffset,
		Derivation: derivation.Spec{
			Scheme:    derivation.IndexOnly(0),
			Algorithm: derivation.Sha3_256,
		},
	}, matcher, nil
}

func totalModuleBytes(modules [][]byte) int {
	n := 0
	for _, m := range modules {
		n += len(m)
	}
	return n
}
