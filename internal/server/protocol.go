// Package server implements the loopback-only, newline-delimited JSON
// control surface described in spec section 6: a client opens a TCP
// connection to 127.0.0.1, sends one start_* frame, and receives
// mining_started/progress/<mode>_found/stopped/error frames in reply.
// Exactly one job runs at a time, guarded by a mutex the way the
// teacher's ServerState guards its single child-process slot.
package server

import "encoding/json"

// Client -> server message type strings.
const (
	MsgStartPackageMining  = "start_package_mining"
	MsgStartGasCoinMining  = "start_gas_coin_mining"
	MsgStartMoveCallMining = "start_move_call_mining"
	MsgStopMining          = "stop_mining"
)

// Server -> client message type strings.
const (
	MsgConnected     = "connected"
	MsgMiningStarted = "mining_started"
	MsgProgress      = "progress"
	MsgPackageFound  = "package_found"
	MsgGasCoinFound  = "gas_coin_found"
	MsgMoveCallFound = "move_call_found"
	MsgStopped       = "stopped"
	MsgError         = "error"
)

// envelope is the only field every frame is guaranteed to carry; a
// handler reads Type, then re-unmarshals the raw bytes into the concrete
// request struct for that type.
type envelope struct {
	Type string `json:"type"`
}

// gasObjectWire mirrors sui.ObjectRef in the wire protocol's field names.
type gasObjectWire struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`
	Digest  string `json:"digest"`
}

// callArgWire is one tagged argument in a start_move_call_mining frame.
// Exactly one of the value fields is set, selected by Kind.
type callArgWire struct {
	Kind    string         `json:"kind"` // "string" | "address" | "bool" | "number" | "object"
	String  string         `json:"string,omitempty"`
	Address string         `json:"address,omitempty"`
	Bool    bool           `json:"bool,omitempty"`
	Number  uint64         `json:"number,omitempty"`
	Object  *gasObjectWire `json:"object,omitempty"`
}

// StartPackageMiningRequest is the start_package_mining frame body (spec
// 4.2.1).
type StartPackageMiningRequest struct {
	Type          string        `json:"type"`
	Prefix        string        `json:"prefix"`
	Sender        string        `json:"sender"`
	Modules       []string      `json:"modules"` // base64-encoded Move bytecode, filename order assumed stable
	GasObject     gasObjectWire `json:"gas_object"`
	GasPrice      uint64        `json:"gas_price"`
	BaseGasBudget uint64        `json:"base_gas_budget"`
	Workers       int           `json:"workers"`
	StartNonce    uint64        `json:"start_nonce"`
}

// StartGasCoinMiningRequest is the start_gas_coin_mining frame body (spec
// 4.2.2). The name mirrors the CLI subcommand `gas`; internally this is
// SplitCoin mode.
type StartGasCoinMiningRequest struct {
	Type          string        `json:"type"`
	Prefix        string        `json:"prefix"`
	Sender        string        `json:"sender"`
	SplitAmounts  []uint64      `json:"split_amounts"`
	GasBalance    uint64        `json:"gas_balance"`
	GasObject     gasObjectWire `json:"gas_object"`
	GasPrice      uint64        `json:"gas_price"`
	BaseGasBudget uint64        `json:"base_gas_budget"`
	Workers       int           `json:"workers"`
	StartNonce    uint64        `json:"start_nonce"`
}

// StartMoveCallMiningRequest is the start_move_call_mining frame body
// (spec 4.2.3).
type StartMoveCallMiningRequest struct {
	Type          string        `json:"type"`
	Prefix        string        `json:"prefix"`
	Sender        string        `json:"sender"`
	Package       string        `json:"package"`
	Module        string        `json:"module"`
	Function      string        `json:"function"`
	TypeArgs      []string      `json:"type_args"`
	Args          []callArgWire `json:"args"`
	TargetIndex   uint64        `json:"target_index"`
	GasObject     gasObjectWire `json:"gas_object"`
	GasPrice      uint64        `json:"gas_price"`
	BaseGasBudget uint64        `json:"base_gas_budget"`
	Workers       int           `json:"workers"`
	StartNonce    uint64        `json:"start_nonce"`
}

// StopMiningRequest is the stop_mining frame body; it carries nothing but
// its type.
type StopMiningRequest struct {
	Type string `json:"type"`
}

// ConnectedMessage is sent once, immediately after a client connects.
type ConnectedMessage struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

// MiningStartedMessage acknowledges a start_* frame was accepted.
type MiningStartedMessage struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// ProgressMessage is emitted roughly twice a second while a job runs.
type ProgressMessage struct {
	Type      string  `json:"type"`
	Attempts  uint64  `json:"attempts"`
	Hashrate  float64 `json:"hashrate"`
	LastNonce uint64  `json:"last_nonce"`
}

// FoundMessage reports a hit; Type is one of MsgPackageFound,
// MsgGasCoinFound, MsgMoveCallFound depending on which job found it.
type FoundMessage struct {
	Type        string `json:"type"`
	Nonce       uint64 `json:"nonce"`
	ObjectIndex uint64 `json:"object_index"`
	TxDigest    string `json:"tx_digest"` // hex
	ObjectID    string `json:"object_id"` // hex
	TxBytes     string `json:"tx_bytes"`  // base64
}

// StoppedMessage reports a clean cancellation with the resumable nonce.
type StoppedMessage struct {
	Type      string `json:"type"`
	LastNonce uint64 `json:"last_nonce"`
}

// ErrorMessage reports a taxonomy Kind (per internal/minerr) and a
// human-readable message; sent instead of mining_started when a start_*
// frame is rejected, or at any point a job fails.
type ErrorMessage struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// peekType reads just the "type" field out of a raw frame so the caller
// can decide which concrete struct to unmarshal the rest into.
func peekType(raw []byte) (string, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", err
	}
	return e.Type, nil
}
