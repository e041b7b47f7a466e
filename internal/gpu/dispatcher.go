// Package gpu defines the host-side interface a GPU/OpenCL mining backend
// would implement. Spec section 1 keeps that backend out of the mandatory
// core and asks only that the dispatch seam exist; this package is that
// seam, with a single software-only implementation that always declines.
package gpu

import "github.com/sui-tools/vanity-miner/internal/minerr"

// Dispatcher offers to run a batch of nonces on a device other than the
// CPU. The CLI driver calls Available once per job, only to log which
// backend is in use; the engine never calls Dispatch and always mines on
// its goroutine worker pool.
type Dispatcher interface {
	// Name identifies the backend for logging ("opencl", "cuda", ...).
	Name() string

	// Available reports whether this backend can run on the current host.
	Available() bool

	// Dispatch would run a batch of batchSize consecutive nonces starting
	// at startNonce against template bytes and report back the matching
	// nonce, if any. No implementation is wired yet; calling Dispatch on a
	// Dispatcher whose Available() is false always errors.
	Dispatch(templateBytes []byte, nonceOffset int, startNonce, batchSize uint64) (nonce uint64, found bool, err error)
}

// NullDispatcher is the only Dispatcher this module ships: it reports
// itself unavailable so callers always fall back to the CPU worker pool.
type NullDispatcher struct{}

// Name implements Dispatcher.
func (NullDispatcher) Name() string { return "none" }

// Available implements Dispatcher.
func (NullDispatcher) Available() bool { return false }

// Dispatch implements Dispatcher; it always fails since NullDispatcher is
// never available.
func (NullDispatcher) Dispatch(templateBytes []byte, nonceOffset int, startNonce, batchSize uint64) (uint64, bool, error) {
	return 0, false, minerr.New(minerr.InternalError, "gpu: no dispatcher backend is wired in this build")
}
