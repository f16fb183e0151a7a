// Package offline is the local append-only spool spec.md §4.7
// describes: receipt generation while disconnected from the main
// ledger, each enqueue updating its own Merkle root, with
// reconnect-time sync and conflict detection against the main ledger,
// grounded on the teacher's per-queue-lock directory writer
// (massifs/logdircache.go) adapted from a shared directory cache to a
// single local spool file.
package offline

import (
	"fmt"
	"sync"
	"time"

	"github.com/proofpack/go-proofpack/canon"
	"github.com/proofpack/go-proofpack/merkle"
	"github.com/proofpack/go-proofpack/receipt"
)

// Entry is a receipt plus the offline metadata spec.md §3 names: a
// local sequence number monotonic per tenant, the local Merkle root
// over the queue's contents at the moment of enqueue, and sync
// metadata filled in only once the entry has been reconciled with the
// main ledger.
type Entry struct {
	Receipt       receipt.Receipt
	LocalSequence uint64
	LocalRoot     string
	SyncTimestamp *time.Time
	SyncBatchID   *string
}

// Spool is the durable surface a Queue appends canonical lines to and
// persists its running state against; FSSpool is the default
// filesystem-backed implementation.
type Spool interface {
	AppendLine(line []byte) error
	ReadState() (State, error)
	WriteState(State) error
}

// State is the queue's on-disk state file contents: the sequence
// counter and the last synced batch, matching spec.md §6's offline
// state file.
type State struct {
	LastSequence    uint64
	LastSyncBatchID string
	LastSyncTime    *time.Time
}

// Queue is a single tenant's local, append-only receipt spool.
// Enqueue, Sync, and any query all serialize on one lock — spec.md §5
// requires only one enqueue or sync in flight per queue at a time.
type Queue struct {
	mu     sync.Mutex
	tenant string
	spool  Spool
	entries []Entry
}

// TypeConflictResolution is a collaborator-registered domain tag
// (spec.md's registered-core-types list omits it, but §4.7 requires a
// "conflict_resolution receipt records the outcomes" — the engine
// treats any unregistered tag as an error, so offline registers this
// one explicitly via RegisterTypes).
const TypeConflictResolution receipt.Type = "conflict_resolution"

// RegisterTypes registers the offline package's extension receipt
// type with r. Call once per Registry before any Queue using it emits
// a conflict_resolution receipt.
func RegisterTypes(r *receipt.Registry) {
	r.Register(TypeConflictResolution)
}

// NewQueue constructs a Queue for tenant backed by spool. Any entries
// already persisted in spool are not automatically replayed into
// memory; callers restoring a spool across process restarts should
// use Restore.
func NewQueue(tenant string, spool Spool) *Queue {
	return &Queue{tenant: tenant, spool: spool}
}

// Restore replays previously-enqueued entries (as already constructed
// Entry values, e.g. parsed back from the spool file by the caller)
// into the queue's in-memory state, for recovery across restarts.
func (q *Queue) Restore(entries []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([]Entry(nil), entries...)
}

// Enqueue envelopes payload as a receipt of type t, attaches offline
// metadata, appends it to the spool, and returns the resulting Entry.
//
// emitter must be a local, sinkless envelope stamper (Sink: nil) — a
// disconnected queue has no main ledger to forward an Ingest call to;
// the Queue itself is the only record of the receipt until Sync. Pass
// the shared Registry so receipt-type validation stays consistent
// with the rest of the deployment.
func (q *Queue) Enqueue(emitter *receipt.Emitter, t receipt.Type, payload map[string]interface{}) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, err := emitter.Emit(t, payload, q.tenant)
	if err != nil {
		return Entry{}, fmt.Errorf("offline: envelope receipt: %w", err)
	}

	seq := uint64(len(q.entries)) + 1
	entry := Entry{Receipt: r, LocalSequence: seq}
	q.entries = append(q.entries, entry)

	root, err := q.localRootLocked()
	if err != nil {
		return Entry{}, err
	}
	entry.LocalRoot = root
	q.entries[len(q.entries)-1] = entry

	line, err := q.encodeEntry(entry)
	if err != nil {
		return Entry{}, err
	}
	if err := q.spool.AppendLine(line); err != nil {
		return Entry{}, fmt.Errorf("offline: append spool line: %w", err)
	}
	state, err := q.spool.ReadState()
	if err != nil {
		return Entry{}, fmt.Errorf("offline: read spool state: %w", err)
	}
	state.LastSequence = seq
	if err := q.spool.WriteState(state); err != nil {
		return Entry{}, fmt.Errorf("offline: write spool state: %w", err)
	}

	return entry, nil
}

func (q *Queue) encodeEntry(e Entry) ([]byte, error) {
	fields := e.Receipt.CanonicalFields()
	fields["local_sequence"] = int64(e.LocalSequence)
	fields["local_merkle_root"] = e.LocalRoot
	v, err := canon.FromGo(fields)
	if err != nil {
		return nil, fmt.Errorf("offline: canonicalize entry: %w", err)
	}
	b, err := canon.Bytes(v)
	if err != nil {
		return nil, fmt.Errorf("offline: canonicalize entry: %w", err)
	}
	return append(b, '\n'), nil
}

// Size returns the number of entries currently queued.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Peek returns the oldest n queued entries (or fewer if the queue is
// shorter), oldest-first, without removing them.
func (q *Queue) Peek(n int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.entries) {
		n = len(q.entries)
	}
	out := make([]Entry, n)
	copy(out, q.entries[:n])
	return out
}

// LocalRoot returns the Merkle root over the queue's current contents
// in insertion order, or the empty string if the queue holds nothing.
func (q *Queue) LocalRoot() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.localRootLocked()
}

func (q *Queue) localRootLocked() (string, error) {
	if len(q.entries) == 0 {
		return "", nil
	}
	receipts := make([]receipt.Receipt, len(q.entries))
	for i, e := range q.entries {
		receipts[i] = e.Receipt
	}
	return merkle.RootOfReceipts(receipts)
}

// Status is the queue's point-in-time summary spec.md §4.7's
// `status()` operation returns.
type Status struct {
	PendingCount int
	LocalRoot    string
	LastSyncTime *time.Time
	LastSequence uint64
}

// Status reports the queue's current pending count, local root, and
// last-sync bookkeeping read from the spool's persisted state.
func (q *Queue) Status() (Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	root, err := q.localRootLocked()
	if err != nil {
		return Status{}, err
	}
	state, err := q.spool.ReadState()
	if err != nil {
		return Status{}, fmt.Errorf("offline: read spool state: %w", err)
	}
	return Status{
		PendingCount: len(q.entries),
		LocalRoot:    root,
		LastSyncTime: state.LastSyncTime,
		LastSequence: state.LastSequence,
	}, nil
}

// clear empties the in-memory queue once a sync has been verified.
func (q *Queue) clear(batchID string, syncedAt time.Time) error {
	q.entries = nil
	return q.spool.WriteState(State{
		LastSequence:    0,
		LastSyncBatchID: batchID,
		LastSyncTime:    &syncedAt,
	})
}

// digestSet is a convenience for conflict detection: the set of
// payload_hash values an ordered entry list carries.
func digestSet(entries []Entry) map[string]bool {
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.Receipt.PayloadHash] = true
	}
	return out
}
