// Package engine runs the parallel nonce search described in spec section
// 4.4: a fixed pool of worker goroutines pulls disjoint nonces from a
// shared atomic counter, mutates a private copy of the transaction
// template, derives candidate object IDs from the resulting digest, and
// reports the first match.
package engine

import (
	"github.com/sui-tools/vanity-miner/internal/prefixmatcher"
	"github.com/sui-tools/vanity-miner/internal/template"
)

// Mode names which TemplateBuilder produced the job's template. The engine
// itself doesn't branch on it — it's carried through for logging and for
// the driver to label its output.
type Mode int

const (
	ModePackagePublish Mode = iota
	ModeSplitCoin
	ModeGenericCall
)

func (m Mode) String() string {
	switch m {
	case ModePackagePublish:
		return "package_publish"
	case ModeSplitCoin:
		return "split_coin"
	case ModeGenericCall:
		return "generic_call"
	default:
		return "unknown"
	}
}

// DefaultBatchSize is the number of nonces a worker claims and hashes
// before checking the cancel flag and reporting progress (spec 4.4).
const DefaultBatchSize = 100_000

// MiningJob is immutable once constructed, matching spec section 3.
type MiningJob struct {
	Mode       Mode
	Template   *template.Template
	Matcher    *prefixmatcher.Matcher
	Workers    int    // 0 means "all logical cores"; resolved by the driver before New
	StartNonce uint64 // resume point; default 0
	BatchSize  uint64 // 0 means DefaultBatchSize
}

func (j MiningJob) batchSize() uint64 {
	if j.BatchSize == 0 {
		return DefaultBatchSize
	}
	return j.BatchSize
}

// ProgressTick is what a worker pushes to the reducer at each batch
// boundary — cheap and frequent.
type ProgressTick struct {
	DeltaAttempts uint64
	WorkerID      int
}

// ProgressReport is what the reducer emits to a listener roughly twice a
// second: an aggregated attempt count, an EWMA hashrate, and the
// high-water mark of the shared nonce counter for resume.
type ProgressReport struct {
	Attempts  uint64
	Hashrate  float64
	LastNonce uint64
}

// MiningHit is the terminal, successful result of a job.
type MiningHit struct {
	Nonce       uint64
	ObjectIndex uint64
	TxDigest    [32]byte
	ObjectID    [32]byte
	TxBytes     []byte
}
