// Package ledger is the append-only receipt store spec.md §4.4
// describes: sequence assignment, parent-hash chaining, secondary
// indices, and Merkle anchoring, grounded on the teacher's directory
// and blob-backed massif readers (massifs/logdircache.go,
// massifs/storage/objectstore.go) and their errors.go idiom of one
// package-level sentinel per failure mode.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proofpack/go-proofpack/canon"
	"github.com/proofpack/go-proofpack/hash"
	"github.com/proofpack/go-proofpack/merkle"
	"github.com/proofpack/go-proofpack/metrics"
	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

// Ledger is a single-writer, append-only receipt store. Concurrent
// Ingest calls are serialized on mu; queries may proceed in parallel
// with each other and with a writer, observing snapshot semantics
// (spec.md §5).
type Ledger struct {
	mu sync.Mutex

	store     Store
	index     Index
	stoprule  *stoprule.Controller
	registry  *receipt.Registry
	clock     func() time.Time
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
	sequences map[string]uint64 // tenant -> last assigned sequence
}

// Options configures a new Ledger. Store is required; Index and
// Registry default to an in-memory index and a fresh registry when
// nil. Logger defaults to a no-op logger. Metrics is optional — a nil
// Metrics is safe to call into and simply does not record anything.
// StopRule governance is opt-in via EnableStopRule after construction,
// since the controller's emitter must reference the ledger itself.
type Options struct {
	Store    Store
	Index    Index
	Registry *receipt.Registry
	Clock    func() time.Time
	Logger   *zap.SugaredLogger
	Metrics  *metrics.Metrics
}

// New constructs a Ledger. The caller owns Store and Index
// construction and teardown explicitly — there is no package-level
// mutable ledger state (spec.md §9). Any tenants with persisted state
// already on Store have their sequence counters seeded from it, so
// reopening a ledger over an existing log never reuses sequence
// numbers (I2).
func New(opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("ledger: Store is required")
	}
	if opts.Index == nil {
		opts.Index = NewInMemoryIndex()
	}
	if opts.Registry == nil {
		opts.Registry = receipt.NewRegistry()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	sequences := make(map[string]uint64)
	tenants, err := opts.Index.Tenants()
	if err != nil {
		return nil, fmt.Errorf("ledger: list known tenants: %w", err)
	}
	for _, tenant := range tenants {
		state, err := opts.Store.ReadState(tenant)
		if err != nil {
			return nil, fmt.Errorf("ledger: read tenant state for %q: %w", tenant, err)
		}
		sequences[tenant] = state.LastSequence
	}

	return &Ledger{
		store:     opts.Store,
		index:     opts.Index,
		registry:  opts.Registry,
		clock:     clock,
		log:       log,
		metrics:   opts.Metrics,
		sequences: sequences,
	}, nil
}

// Emitter returns a receipt.Emitter whose Sink is this ledger, ready
// to stamp and ingest receipts in one call.
func (l *Ledger) Emitter() *receipt.Emitter {
	e := receipt.NewEmitter(l.registry, l)
	e.Clock = l.clock
	return e
}

// Registry returns the ledger's receipt-type registry, so callers can
// register additional domain tags before emitting against it.
func (l *Ledger) Registry() *receipt.Registry { return l.registry }

// EnableStopRule wires a StopRule controller whose anomaly and halt
// receipts are themselves ingested into this ledger, using counters
// for metrics (nil skips them). Call once after New; most deployments
// do this immediately, since an ungoverned ledger silently accepts
// I1-I3 violations instead of halting on them.
func (l *Ledger) EnableStopRule(counters stoprule.Counters) {
	l.stoprule = stoprule.NewController(l.Emitter(), counters)
}

// StopRule returns the ledger's StopRule controller, or nil if
// EnableStopRule has not been called.
func (l *Ledger) StopRule() *stoprule.Controller { return l.stoprule }

// Ingest validates r against I1-I3, assigns it the next per-tenant
// sequence number, appends it to the durable log, and updates
// indices. parentHash, if present in the payload under the key
// "parent_hash", must already exist in the ledger for the same
// tenant (I3).
//
// Ingest satisfies receipt.Sink so a Ledger can be passed directly as
// an Emitter's sink.
//
// mu is released before any I1/I3 violation is escalated through
// tripInvariant: a StopRule controller wired via EnableStopRule emits
// its anomaly (and, on halt, its halt receipt) through an Emitter whose
// Sink is this same Ledger, which re-enters Ingest. Holding a
// non-reentrant mu across that call would deadlock the ledger
// permanently on its own governance path.
func (l *Ledger) Ingest(r receipt.Receipt) error {
	start := l.clock()

	l.mu.Lock()
	if err := l.verifyPayloadHash(r); err != nil {
		l.mu.Unlock()
		return l.tripInvariant("payload_hash_mismatch", 0, 1, r.TenantID, err)
	}

	parentHash, _ := r.Payload["parent_hash"].(string)
	if parentHash != "" {
		parent, ok, err := l.index.ByDigest(parentHash)
		if err != nil {
			l.mu.Unlock()
			return fmt.Errorf("ledger: lookup parent: %w", err)
		}
		if !ok || parent.Receipt.TenantID != r.TenantID {
			l.mu.Unlock()
			return l.tripInvariant("missing_parent", 0, 1, r.TenantID,
				fmt.Errorf("%w: parent_hash %q not found for tenant %q", ErrInvariantViolation, parentHash, r.TenantID))
		}
	}

	seq := l.sequences[r.TenantID] + 1
	l.sequences[r.TenantID] = seq

	line, err := r.CanonicalBytes()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: canonicalize receipt: %w", err)
	}
	line = append(line, '\n')
	if err := l.store.AppendLine(line); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: append line: %w", err)
	}

	entry := Entry{Receipt: r, Sequence: seq, ParentHash: parentHash}
	if err := l.index.IndexEntry(entry); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: index entry: %w", err)
	}

	state, err := l.store.ReadState(r.TenantID)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: read tenant state: %w", err)
	}
	state.LastSequence = seq
	if r.ReceiptType == receipt.TypeAnchor {
		if root, ok := r.Payload["merkle_root"].(string); ok {
			state.LastAnchorRoot = root
		}
	}
	if err := l.store.WriteState(r.TenantID, state); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ledger: write tenant state: %w", err)
	}
	l.mu.Unlock()

	l.log.Debugw("ledger: ingested receipt",
		"receipt_type", r.ReceiptType, "tenant", r.TenantID, "sequence", seq, "payload_hash", r.PayloadHash)
	l.metrics.IncReceipt(string(r.ReceiptType))
	l.metrics.ObserveIngest(l.clock().Sub(start).Seconds())

	return nil
}

func (l *Ledger) verifyPayloadHash(r receipt.Receipt) error {
	v, err := canon.FromGo(r.Payload)
	if err != nil {
		return fmt.Errorf("ledger: canonicalize payload: %w", err)
	}
	b, err := canon.Bytes(v)
	if err != nil {
		return fmt.Errorf("ledger: canonicalize payload: %w", err)
	}
	if hash.Digest(b) != r.PayloadHash {
		return fmt.Errorf("%w: payload_hash does not match canonicalized payload", ErrInvariantViolation)
	}
	return nil
}

func (l *Ledger) tripInvariant(metric string, baseline, delta float64, tenant string, cause error) error {
	l.log.Warnw("ledger: invariant violation", "metric", metric, "tenant", tenant, "cause", cause)
	if l.stoprule != nil {
		if tripErr := l.stoprule.Trip(
			metric, baseline, delta,
			stoprule.ClassificationViolation, stoprule.ActionHalt,
			cause.Error(), l.clock().Add(4*time.Hour), tenant,
		); tripErr != nil {
			return tripErr
		}
	}
	return cause
}

// Exists reports whether digest is already recorded in the ledger,
// the duplicate check the offline queue's sync path consults before
// re-ingesting a receipt it generated while disconnected.
func (l *Ledger) Exists(digest string) bool {
	_, ok, _ := l.index.ByDigest(digest)
	return ok
}

// GetByDigest returns the entry whose receipt has payload_hash digest.
func (l *Ledger) GetByDigest(digest string) (Entry, error) {
	e, ok, err := l.index.ByDigest(digest)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, digest)
	}
	return e, nil
}

// QueryByType returns every entry of the given receipt type, in
// insertion order.
func (l *Ledger) QueryByType(t receipt.Type) ([]Entry, error) {
	return l.index.ByType(t)
}

// QueryByTimeRange returns every entry whose ts falls within
// [start, end], ordered by Sequence; entries from different tenants
// are not in insertion order (see Index.ByTimeRange).
func (l *Ledger) QueryByTimeRange(start, end time.Time) ([]Entry, error) {
	return l.index.ByTimeRange(start, end)
}

// QueryByTenant returns every entry for tenant, in insertion order.
func (l *Ledger) QueryByTenant(tenant string) ([]Entry, error) {
	return l.index.ByTenant(tenant)
}

// AnchorBatch computes the Merkle root over receipts (in the supplied
// order), emits an anchor receipt recording the root, batch size, and
// leaf digests, and ingests that anchor receipt itself.
func (l *Ledger) AnchorBatch(receipts []receipt.Receipt, tenant string) (receipt.Receipt, error) {
	if len(receipts) > DefaultMaxBatchLeaves {
		return receipt.Receipt{}, fmt.Errorf("%w: %d leaves", ErrBatchTooLarge, len(receipts))
	}

	leafDigests := make([]interface{}, len(receipts))
	for i, r := range receipts {
		b, err := r.CanonicalBytes()
		if err != nil {
			return receipt.Receipt{}, fmt.Errorf("ledger: canonicalize leaf %d: %w", i, err)
		}
		leafDigests[i] = hash.Digest(b)
	}

	root, err := merkle.RootOfReceipts(receipts)
	if err != nil {
		return receipt.Receipt{}, fmt.Errorf("ledger: compute merkle root: %w", err)
	}

	l.log.Infow("ledger: anchoring batch", "tenant", tenant, "batch_size", len(receipts), "merkle_root", root)

	return l.Emitter().Emit(receipt.TypeAnchor, map[string]interface{}{
		"merkle_root": root,
		"batch_size":  len(receipts),
		"leaf_hashes": leafDigests,
	}, tenant)
}
