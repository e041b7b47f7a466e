package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sui-tools/vanity-miner/internal/derivation"
	"github.com/sui-tools/vanity-miner/internal/hashcore"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/template"
)

// progressQueueSize bounds the tick channel; a full queue drops the
// oldest tick rather than stall a worker's hot loop (spec section 5).
const progressQueueSize = 256

// reducerInterval is how often the reducer emits a ProgressReport.
const reducerInterval = 500 * time.Millisecond

// ewmaAlpha weights the exponentially-weighted hashrate average.
const ewmaAlpha = 0.3

// EngineHandle owns the mutable state of exactly one mining job: the
// shared nonce counter, the cancel flag, and the channels workers and the
// reducer communicate over. Nothing here lives at process scope — a new
// EngineHandle is built per job and discarded once it finishes.
type EngineHandle struct {
	job Job

	nonceCounter atomic.Uint64
	cancelled    atomic.Bool
	lastNonce    atomic.Uint64

	ticks    chan ProgressTick
	progress chan ProgressReport
	hitOnce  sync.Once
	hit      atomic.Pointer[MiningHit]
	fatal    atomic.Pointer[minerr.Error]

	wg sync.WaitGroup
}

// Job is another name for MiningJob, as the engine receives it once the
// driver has resolved it (worker count > 0, template non-nil).
type Job = MiningJob

// New builds an EngineHandle for job. Workers must already be resolved to
// a positive count (internal/hardware.ResolveWorkers does this for 0).
func New(job Job) *EngineHandle {
	e := &EngineHandle{
		job:      job,
		ticks:    make(chan ProgressTick, progressQueueSize),
		progress: make(chan ProgressReport, 1),
	}
	e.nonceCounter.Store(job.StartNonce)
	e.lastNonce.Store(job.StartNonce)
	return e
}

// Cancel requests that every worker stop at its next batch boundary. Safe
// to call multiple times and from any goroutine.
func (e *EngineHandle) Cancel() {
	e.cancelled.Store(true)
}

// Progress returns the channel the reducer publishes ProgressReports on.
// Callers should drain it; Run closes it when the job ends.
func (e *EngineHandle) Progress() <-chan ProgressReport {
	return e.progress
}

// LastNonce returns the current high-water mark of the shared nonce
// counter, valid at any time including after cancellation — this is what
// a driver threads into --start-nonce to resume.
func (e *EngineHandle) LastNonce() uint64 {
	return e.lastNonce.Load()
}

// Run starts all workers and the progress reducer, then blocks until one
// of: a hit is found, the cancel flag is set (by the caller or a prior
// Cancel call), or a worker reports a fatal error. It returns the hit (nil
// if none was found) and any fatal error.
func (e *EngineHandle) Run() (*MiningHit, error) {
	workers := e.job.Workers
	if workers <= 0 {
		workers = 1
	}

	e.wg.Add(workers)
	for w := 0; w < workers; w++ {
		go e.runWorker(w)
	}

	reducerDone := make(chan struct{})
	go func() {
		defer close(reducerDone)
		e.runReducer()
	}()

	e.wg.Wait()
	e.cancelled.Store(true) // make sure the reducer's final drain sees a stop
	close(e.ticks)
	<-reducerDone
	close(e.progress)

	if f := e.fatal.Load(); f != nil {
		return nil, f
	}
	return e.hit.Load(), nil
}

// runWorker is one worker's entire lifetime: claim a batch of nonces,
// hash every one of them against the job's derivation scheme and prefix
// matcher, report progress, then check for cancellation — repeat until
// told to stop.
func (e *EngineHandle) runWorker(id int) {
	defer e.wg.Done()

	tmpl := e.job.Template
	localBuf := make([]byte, len(tmpl.Bytes))
	batchSize := e.job.batchSize()
	indices := tmpl.Derivation.Scheme.Indices()

	defer func() {
		if r := recover(); r != nil {
			e.fatal.CompareAndSwap(nil, minerr.New(minerr.InternalError, "worker %d panicked: %v", id, r))
			e.cancelled.Store(true)
		}
	}()

	for {
		if e.cancelled.Load() {
			return
		}

		start := e.nonceCounter.Add(batchSize) - batchSize
		copy(localBuf, tmpl.Bytes)

		for k := uint64(0); k < batchSize; k++ {
			nonce := start + k
			template.WriteNonce(localBuf, tmpl.NonceOffset, nonce)
			digest := hashcore.TxDigest(localBuf)

			for _, idx := range indices {
				id := derivation.Derive(tmpl.Derivation.Algorithm, digest, idx)
				if e.job.Matcher.Matches(id[:]) {
					hitBuf := make([]byte, len(localBuf))
					copy(hitBuf, localBuf)
					e.hitOnce.Do(func() {
						e.hit.Store(&MiningHit{
							Nonce:       nonce,
							ObjectIndex: idx,
							TxDigest:    digest,
							ObjectID:    id,
							TxBytes:     hitBuf,
						})
					})
					e.cancelled.Store(true)
					return
				}
			}
		}

		e.bumpLastNonce(start + batchSize)
		e.pushTick(ProgressTick{DeltaAttempts: batchSize, WorkerID: id})
	}
}

// bumpLastNonce advances e.lastNonce to n if n is higher than the current
// value. Multiple workers may race here; only the monotonic direction
// matters (spec section 5's "never moves backward" guarantee).
func (e *EngineHandle) bumpLastNonce(n uint64) {
	for {
		cur := e.lastNonce.Load()
		if n <= cur {
			return
		}
		if e.lastNonce.CompareAndSwap(cur, n) {
			return
		}
	}
}

// pushTick is non-blocking: if the queue is full it drops the oldest tick
// to make room rather than stall the hot loop.
func (e *EngineHandle) pushTick(t ProgressTick) {
	select {
	case e.ticks <- t:
		return
	default:
	}
	select {
	case <-e.ticks:
	default:
	}
	select {
	case e.ticks <- t:
	default:
	}
}

// runReducer is the single consumer of the tick channel: it sums
// attempts, computes an EWMA hashrate over ~500ms windows, and emits one
// ProgressReport per window until the tick channel is closed.
func (e *EngineHandle) runReducer() {
	var totalAttempts uint64
	var hashrate float64
	windowStart := time.Now()
	var windowAttempts uint64

	ticker := time.NewTicker(reducerInterval)
	defer ticker.Stop()

	for {
		select {
		case t, ok := <-e.ticks:
			if !ok {
				e.emitReport(totalAttempts, hashrate)
				return
			}
			totalAttempts += t.DeltaAttempts
			windowAttempts += t.DeltaAttempts
		case now := <-ticker.C:
			elapsed := now.Sub(windowStart).Seconds()
			if elapsed > 0 {
				instantRate := float64(windowAttempts) / elapsed
				hashrate = ewmaAlpha*instantRate + (1-ewmaAlpha)*hashrate
			}
			windowAttempts = 0
			windowStart = now
			e.emitReport(totalAttempts, hashrate)
		}
	}
}

func (e *EngineHandle) emitReport(attempts uint64, hashrate float64) {
	report := ProgressReport{
		Attempts:  attempts,
		Hashrate:  hashrate,
		LastNonce: e.lastNonce.Load(),
	}
	select {
	case e.progress <- report:
	default:
		select {
		case <-e.progress:
		default:
		}
		select {
		case e.progress <- report:
		default:
		}
	}
}

// LogSummary writes a single-line summary of a finished job the way the
// teacher's drivers log job completion: short, present-tense, no
// structured logging library.
func LogSummary(mode Mode, hit *MiningHit, lastNonce uint64, err error) {
	if err != nil {
		log.Printf("mining %s: fatal error: %v", mode, err)
		return
	}
	if hit == nil {
		log.Printf("mining %s: cancelled at nonce %d", mode, lastNonce)
		return
	}
	log.Printf("mining %s: hit at nonce %d, object_index %d", mode, hit.Nonce, hit.ObjectIndex)
}
