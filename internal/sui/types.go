// Package sui defines the small slice of Sui's transaction data model this
// miner needs to build a TransactionData::V1 envelope and serialize it to
// BCS bytes: addresses, object references, programmable-transaction
// commands and arguments, gas data, and type tags. It knows how to encode
// (and, for the builder's self-check, partially decode) itself via
// internal/bcs; it knows nothing about RPC, signing, or submission.
package sui

import (
	"fmt"

	"github.com/sui-tools/vanity-miner/internal/bcs"
)

// Address is a 32-byte Sui address; ObjectID and Digest32 reuse the same
// shape.
type Address [32]byte

// ObjectID identifies an on-chain object.
type ObjectID = Address

// Digest32 is a 32-byte content digest (object digest or transaction digest).
type Digest32 = Address

// Encode writes the address as 32 raw bytes, no length prefix.
func (a Address) Encode(w *bcs.Writer) {
	w.WriteBytes(a[:])
}

// DecodeAddress reads 32 raw bytes into an Address.
func DecodeAddress(r *bcs.Reader) (Address, error) {
	b, err := r.ReadBytes(32)
	if err != nil {
		return Address{}, err
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// ObjectRef pins an object to a specific version and digest, as required
// to reference the gas coin or any other input object.
type ObjectRef struct {
	ID      ObjectID
	Version uint64
	Digest  Digest32
}

// Encode writes ID || version(u64 LE) || digest, 72 bytes total.
func (o ObjectRef) Encode(w *bcs.Writer) {
	o.ID.Encode(w)
	w.WriteU64(o.Version)
	o.Digest.Encode(w)
}

// DecodeObjectRef reads back a 72-byte ObjectRef.
func DecodeObjectRef(r *bcs.Reader) (ObjectRef, error) {
	id, err := DecodeAddress(r)
	if err != nil {
		return ObjectRef{}, err
	}
	version, _, err := r.ReadU64()
	if err != nil {
		return ObjectRef{}, err
	}
	digest, err := DecodeAddress(r)
	if err != nil {
		return ObjectRef{}, err
	}
	return ObjectRef{ID: id, Version: version, Digest: digest}, nil
}

// TypeTagKind is the Move TypeTag enum discriminant.
type TypeTagKind uint8

const (
	TypeBool TypeTagKind = iota
	TypeU8
	TypeU64
	TypeU128
	TypeAddress
	TypeSigner
	TypeVector
	TypeStruct
	TypeU16
	TypeU32
	TypeU256
)

// TypeTag is a (possibly recursive) Move type, used for a MoveCall
// command's generic type arguments.
type TypeTag struct {
	Kind   TypeTagKind
	Elem   *TypeTag   // set when Kind == TypeVector
	Struct *StructTag // set when Kind == TypeStruct
}

// StructTag names a Move struct type: its defining address, module, name,
// and its own type parameters.
type StructTag struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// Encode writes the TypeTag's single-byte discriminant followed by any
// recursive payload.
func (t TypeTag) Encode(w *bcs.Writer) {
	w.WriteTag(uint8(t.Kind))
	switch t.Kind {
	case TypeVector:
		if t.Elem == nil {
			panic("sui: TypeVector TypeTag missing Elem")
		}
		t.Elem.Encode(w)
	case TypeStruct:
		if t.Struct == nil {
			panic("sui: TypeStruct TypeTag missing Struct")
		}
		t.Struct.Address.Encode(w)
		w.WriteString(t.Struct.Module)
		w.WriteString(t.Struct.Name)
		w.WriteVector(len(t.Struct.TypeParams), func(i int) {
			t.Struct.TypeParams[i].Encode(w)
		})
	}
}

// SkipTypeTag advances r past one encoded TypeTag without building it.
func SkipTypeTag(r *bcs.Reader) error {
	tag, err := r.ReadU8()
	if err != nil {
		return err
	}
	switch TypeTagKind(tag) {
	case TypeBool, TypeU8, TypeU64, TypeU128, TypeAddress, TypeSigner, TypeU16, TypeU32, TypeU256:
		return nil
	case TypeVector:
		return SkipTypeTag(r)
	case TypeStruct:
		if _, err := DecodeAddress(r); err != nil {
			return err
		}
		if _, err := r.ReadString(); err != nil {
			return err
		}
		if _, err := r.ReadString(); err != nil {
			return err
		}
		return r.SkipVector(func() error { return SkipTypeTag(r) })
	default:
		return fmt.Errorf("sui: unknown TypeTag discriminant %d", tag)
	}
}

// ArgumentKind is the Argument enum discriminant.
type ArgumentKind uint8

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument references an input, a prior command's result, or the gas coin.
type Argument struct {
	Kind   ArgumentKind
	Index  uint16 // Input, Result
	Index2 uint16 // NestedResult's second index
}

// GasCoinArg is the Argument referring to the transaction's gas coin.
func GasCoinArg() Argument { return Argument{Kind: ArgGasCoin} }

// InputArg references input at index i.
func InputArg(i uint16) Argument { return Argument{Kind: ArgInput, Index: i} }

// ResultArg references the i-th prior command's (sole) result.
func ResultArg(i uint16) Argument { return Argument{Kind: ArgResult, Index: i} }

func (a Argument) Encode(w *bcs.Writer) {
	w.WriteTag(uint8(a.Kind))
	switch a.Kind {
	case ArgGasCoin:
	case ArgInput, ArgResult:
		w.WriteU16(a.Index)
	case ArgNestedResult:
		w.WriteU16(a.Index)
		w.WriteU16(a.Index2)
	}
}

func skipArgument(r *bcs.Reader) error {
	tag, err := r.ReadU8()
	if err != nil {
		return err
	}
	switch ArgumentKind(tag) {
	case ArgGasCoin:
		return nil
	case ArgInput, ArgResult:
		_, err := r.ReadU16()
		return err
	case ArgNestedResult:
		if _, err := r.ReadU16(); err != nil {
			return err
		}
		_, err := r.ReadU16()
		return err
	default:
		return fmt.Errorf("sui: unknown Argument discriminant %d", tag)
	}
}

// CallArgKind is the CallArg enum discriminant.
type CallArgKind uint8

const (
	CallArgPure CallArgKind = iota
	CallArgObject
)

// ObjectArgKind is the ObjectArg enum discriminant.
type ObjectArgKind uint8

const (
	ObjectArgImmOrOwned ObjectArgKind = iota
)

// CallArg is one transaction input: either raw BCS-encoded bytes ("Pure")
// or a reference to an object ("Object").
type CallArg struct {
	Kind   CallArgKind
	Pure   []byte
	Object ObjectRef // used when Kind == CallArgObject, always ImmOrOwnedObject
}

// PureArg wraps already-BCS-encoded bytes as a Pure CallArg.
func PureArg(b []byte) CallArg { return CallArg{Kind: CallArgPure, Pure: b} }

// ObjectCallArg wraps an ObjectRef as an ImmOrOwnedObject CallArg.
func ObjectCallArg(ref ObjectRef) CallArg { return CallArg{Kind: CallArgObject, Object: ref} }

func (c CallArg) Encode(w *bcs.Writer) {
	w.WriteTag(uint8(c.Kind))
	switch c.Kind {
	case CallArgPure:
		w.WriteByteVector(c.Pure)
	case CallArgObject:
		w.WriteTag(uint8(ObjectArgImmOrOwned))
		c.Object.Encode(w)
	}
}

func skipCallArg(r *bcs.Reader) error {
	tag, err := r.ReadU8()
	if err != nil {
		return err
	}
	switch CallArgKind(tag) {
	case CallArgPure:
		_, err := r.ReadByteVector()
		return err
	case CallArgObject:
		objTag, err := r.ReadU8()
		if err != nil {
			return err
		}
		if ObjectArgKind(objTag) != ObjectArgImmOrOwned {
			return fmt.Errorf("sui: unsupported ObjectArg discriminant %d", objTag)
		}
		_, err = DecodeObjectRef(r)
		return err
	default:
		return fmt.Errorf("sui: unknown CallArg discriminant %d", tag)
	}
}

// CommandKind is the Command enum discriminant, in Sui's canonical order.
type CommandKind uint8

const (
	CommandMoveCall CommandKind = iota
	CommandTransferObjects
	CommandSplitCoins
	CommandMergeCoins
	CommandPublish
	CommandMakeMoveVec
	CommandUpgrade
)

// MoveCallCommand invokes a Move entry/public function.
type MoveCallCommand struct {
	Package   Address
	Module    string
	Function  string
	TypeArgs  []TypeTag
	Arguments []Argument
}

// TransferObjectsCommand transfers a set of objects to a recipient address.
type TransferObjectsCommand struct {
	Objects []Argument
	Address Argument
}

// SplitCoinsCommand splits Coin into len(Amounts) new coins.
type SplitCoinsCommand struct {
	Coin    Argument
	Amounts []Argument
}

// PublishCommand publishes a package's modules with the given dependency
// addresses; its (implicit) result is the new package's UpgradeCap.
type PublishCommand struct {
	Modules      [][]byte
	Dependencies []Address
}

// Command is a tagged union over the PTB command kinds this miner emits.
// Only one of the typed fields is populated, matching Kind.
type Command struct {
	Kind            CommandKind
	MoveCall        *MoveCallCommand
	TransferObjects *TransferObjectsCommand
	SplitCoins      *SplitCoinsCommand
	Publish         *PublishCommand
}

func (c Command) Encode(w *bcs.Writer) {
	w.WriteTag(uint8(c.Kind))
	switch c.Kind {
	case CommandMoveCall:
		mc := c.MoveCall
		mc.Package.Encode(w)
		w.WriteString(mc.Module)
		w.WriteString(mc.Function)
		w.WriteVector(len(mc.TypeArgs), func(i int) { mc.TypeArgs[i].Encode(w) })
		w.WriteVector(len(mc.Arguments), func(i int) { mc.Arguments[i].Encode(w) })
	case CommandTransferObjects:
		to := c.TransferObjects
		w.WriteVector(len(to.Objects), func(i int) { to.Objects[i].Encode(w) })
		to.Address.Encode(w)
	case CommandSplitCoins:
		sc := c.SplitCoins
		sc.Coin.Encode(w)
		w.WriteVector(len(sc.Amounts), func(i int) { sc.Amounts[i].Encode(w) })
	case CommandPublish:
		p := c.Publish
		w.WriteVector(len(p.Modules), func(i int) { w.WriteByteVector(p.Modules[i]) })
		w.WriteVector(len(p.Dependencies), func(i int) { p.Dependencies[i].Encode(w) })
	default:
		panic("sui: Command.Encode: unsupported command kind")
	}
}

func skipCommand(r *bcs.Reader) error {
	tag, err := r.ReadU8()
	if err != nil {
		return err
	}
	switch CommandKind(tag) {
	case CommandMoveCall:
		if _, err := DecodeAddress(r); err != nil {
			return err
		}
		if _, err := r.ReadString(); err != nil {
			return err
		}
		if _, err := r.ReadString(); err != nil {
			return err
		}
		if err := r.SkipVector(func() error { return SkipTypeTag(r) }); err != nil {
			return err
		}
		return r.SkipVector(func() error { return skipArgument(r) })
	case CommandTransferObjects:
		if err := r.SkipVector(func() error { return skipArgument(r) }); err != nil {
			return err
		}
		return skipArgument(r)
	case CommandSplitCoins:
		if err := skipArgument(r); err != nil {
			return err
		}
		return r.SkipVector(func() error { return skipArgument(r) })
	case CommandPublish:
		if err := r.SkipVector(func() error { _, err := r.ReadByteVector(); return err }); err != nil {
			return err
		}
		return r.SkipVector(func() error { _, err := DecodeAddress(r); return err })
	default:
		return fmt.Errorf("sui: unsupported Command discriminant %d", tag)
	}
}

// ProgrammableTransaction is the body of TransactionKind::ProgrammableTransaction:
// a list of inputs referenced by index from a list of commands.
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []Command
}

func (p ProgrammableTransaction) Encode(w *bcs.Writer) {
	w.WriteVector(len(p.Inputs), func(i int) { p.Inputs[i].Encode(w) })
	w.WriteVector(len(p.Commands), func(i int) { p.Commands[i].Encode(w) })
}

// SkipProgrammableTransaction advances r past an encoded
// ProgrammableTransaction without building it.
func SkipProgrammableTransaction(r *bcs.Reader) error {
	if err := r.SkipVector(func() error { return skipCallArg(r) }); err != nil {
		return err
	}
	return r.SkipVector(func() error { return skipCommand(r) })
}

// GasData describes the coin(s) paying for the transaction and the
// budget/price the sender is willing to pay.
type GasData struct {
	Payment []ObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

// Encode writes GasData and returns the byte offset the Budget field was
// written at — the template's nonce_offset.
func (g GasData) Encode(w *bcs.Writer) (budgetOffset int) {
	w.WriteVector(len(g.Payment), func(i int) { g.Payment[i].Encode(w) })
	g.Owner.Encode(w)
	w.WriteU64(g.Price)
	return w.WriteU64(g.Budget)
}

// DecodeGasData reads back GasData and returns the offset its Budget field
// was read from, for the builder self-check.
func DecodeGasData(r *bcs.Reader) (GasData, int, error) {
	var g GasData
	err := r.SkipVector(func() error {
		ref, err := DecodeObjectRef(r)
		if err != nil {
			return err
		}
		g.Payment = append(g.Payment, ref)
		return nil
	})
	if err != nil {
		return GasData{}, 0, err
	}
	owner, err := DecodeAddress(r)
	if err != nil {
		return GasData{}, 0, err
	}
	g.Owner = owner
	price, _, err := r.ReadU64()
	if err != nil {
		return GasData{}, 0, err
	}
	g.Price = price
	budget, budgetOffset, err := r.ReadU64()
	if err != nil {
		return GasData{}, 0, err
	}
	g.Budget = budget
	return g, budgetOffset, nil
}

// TransactionDataV1 is the envelope this miner builds: a programmable
// transaction, its sender, its gas data, and an expiration (always None).
type TransactionDataV1 struct {
	Tx     ProgrammableTransaction
	Sender Address
	Gas    GasData
}

// tagTransactionKindProgrammable and the TransactionData::V1 tag are the only
// discriminants this miner ever writes.
const (
	tagTransactionDataV1           = 0
	tagTransactionKindProgrammable = 0
	tagTransactionExpirationNone   = 0
)

// Encode writes the complete TransactionData::V1 envelope and returns the
// byte offset its gas budget scalar landed at.
func (t TransactionDataV1) Encode(w *bcs.Writer) (nonceOffset int) {
	w.WriteTag(tagTransactionDataV1)
	w.WriteTag(tagTransactionKindProgrammable)
	t.Tx.Encode(w)
	t.Sender.Encode(w)
	nonceOffset = t.Gas.Encode(w)
	w.WriteTag(tagTransactionExpirationNone)
	return nonceOffset
}

// DecodeTransactionDataV1 parses a buffer produced by Encode far enough to
// recover the Sender, GasData and the byte offset the budget field was
// read from — everything the builder self-check needs to confirm.
func DecodeTransactionDataV1(buf []byte) (sender Address, gas GasData, budgetOffset int, err error) {
	r := bcs.NewReader(buf)

	tag, err := r.ReadU8()
	if err != nil {
		return Address{}, GasData{}, 0, err
	}
	if tag != tagTransactionDataV1 {
		return Address{}, GasData{}, 0, fmt.Errorf("sui: expected TransactionData::V1 tag, got %d", tag)
	}

	kindTag, err := r.ReadU8()
	if err != nil {
		return Address{}, GasData{}, 0, err
	}
	if kindTag != tagTransactionKindProgrammable {
		return Address{}, GasData{}, 0, fmt.Errorf("sui: expected ProgrammableTransaction kind, got %d", kindTag)
	}

	if err := SkipProgrammableTransaction(r); err != nil {
		return Address{}, GasData{}, 0, fmt.Errorf("sui: decoding programmable transaction: %w", err)
	}

	sender, err = DecodeAddress(r)
	if err != nil {
		return Address{}, GasData{}, 0, err
	}

	gas, budgetOffset, err = DecodeGasData(r)
	if err != nil {
		return Address{}, GasData{}, 0, err
	}

	expTag, err := r.ReadU8()
	if err != nil {
		return Address{}, GasData{}, 0, err
	}
	if expTag != tagTransactionExpirationNone {
		return Address{}, GasData{}, 0, fmt.Errorf("sui: expected TransactionExpiration::None, got %d", expTag)
	}

	return sender, gas, budgetOffset, nil
}
