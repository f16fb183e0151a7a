package offline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/proofpack/go-proofpack/merkle"
	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

// DefaultSyncTimeout is the deadline spec.md §5 names for a sync
// attempt before it aborts and leaves the local queue untouched.
const DefaultSyncTimeout = 30 * time.Second

// MainLedger is the narrow surface Sync needs from the main ledger: it
// ingests receipts and reports whether a digest is already recorded.
// Anchoring the batch is passed to Sync separately as its anchor
// function.
type MainLedger interface {
	Ingest(r receipt.Receipt) error
	Exists(digest string) bool
}

// ConflictReport is the result of the pre-sync scan spec.md §4.7
// names: sequence gaps and timestamp/sequence inversions are
// informational (auto-resolved); duplicates are skipped during sync;
// a Merkle mismatch blocks the sync entirely.
type ConflictReport struct {
	SequenceGaps       []uint64
	TimestampInversions []uint64
	Duplicates         []string // payload_hash values already in the main ledger
	MerkleMismatch     bool
}

// Blocking reports whether the conflict report requires operator
// intervention rather than auto-resolution.
func (c ConflictReport) Blocking() bool {
	return c.MerkleMismatch
}

// detectConflicts scans entries in local-sequence order for the
// taxonomy spec.md §4.7 names. Duplicate detection consults
// alreadyInLedger; Sync passes the main ledger's Exists, an
// authoritative digest lookup, and does not consult a BloomDedup.
func detectConflicts(entries []Entry, alreadyInLedger func(digest string) bool) ConflictReport {
	var report ConflictReport

	for i := 1; i < len(entries); i++ {
		if entries[i].LocalSequence != entries[i-1].LocalSequence+1 {
			report.SequenceGaps = append(report.SequenceGaps, entries[i].LocalSequence)
		}
		prevTS, prevErr := parseTS(entries[i-1].Receipt.TS)
		curTS, curErr := parseTS(entries[i].Receipt.TS)
		if prevErr == nil && curErr == nil && curTS.Before(prevTS) {
			report.TimestampInversions = append(report.TimestampInversions, entries[i].LocalSequence)
		}
	}

	for _, e := range entries {
		if alreadyInLedger != nil && alreadyInLedger(e.Receipt.PayloadHash) {
			report.Duplicates = append(report.Duplicates, e.Receipt.PayloadHash)
		}
	}

	return report
}

func parseTS(ts string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000000Z", ts)
}

// SyncResult is the outcome of a completed Sync call.
type SyncResult struct {
	BatchID      string
	SyncedCount  int
	Root         string
	SyncReceipt  receipt.Receipt
	ConflictReceipt receipt.Receipt
	Conflicts    ConflictReport
}

// Sync assembles the queue's current contents into a batch, checks for
// conflicts, submits the non-duplicate entries to ledger, verifies the
// recomputed root against the batch submitted, and — only on success —
// clears the queue. A Merkle mismatch or any ledger ingestion error
// leaves the queue untouched so a retry can pick up where it left off.
//
// limiter bounds how often Sync may actually submit a batch during a
// reconnect storm where ConnectivityProbe fires repeatedly; pass nil
// to skip rate limiting.
func Sync(ctx context.Context, q *Queue, ledger MainLedger, controller *stoprule.Controller, anchor func([]receipt.Receipt, string) (receipt.Receipt, error), limiter *rate.Limiter, tenant string) (SyncResult, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return SyncResult{}, fmt.Errorf("offline: rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultSyncTimeout)
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()
	entries := append([]Entry(nil), q.entries...)

	if len(entries) == 0 {
		return SyncResult{}, nil
	}

	conflicts := detectConflicts(entries, ledger.Exists)

	// Duplicates are auto-skipped during sync (spec.md §4.7) — they are
	// not a Merkle mismatch, just entries the main ledger already has.
	// toSubmit, not entries, is therefore the set whose root must agree
	// with what the ledger records once anchored.
	var toSubmit []Entry
	duplicateSet := map[string]bool{}
	for _, d := range conflicts.Duplicates {
		duplicateSet[d] = true
	}
	for _, e := range entries {
		if !duplicateSet[e.Receipt.PayloadHash] {
			toSubmit = append(toSubmit, e)
		}
	}

	receipts := make([]receipt.Receipt, len(toSubmit))
	for i, e := range toSubmit {
		receipts[i] = e.Receipt
	}
	batchRoot, err := merkle.RootOfReceipts(receipts)
	if err != nil {
		return SyncResult{}, fmt.Errorf("offline: compute batch root: %w", err)
	}

	for _, e := range toSubmit {
		select {
		case <-ctx.Done():
			_, _ = controller.Anomaly("offline_sync_timeout", DefaultSyncTimeout.Seconds(), 0, stoprule.ClassificationDeviation, stoprule.ActionAlert, tenant)
			return SyncResult{}, fmt.Errorf("offline: sync timed out: %w", ctx.Err())
		default:
		}
		if err := ledger.Ingest(e.Receipt); err != nil {
			return SyncResult{}, fmt.Errorf("offline: ingest during sync: %w", err)
		}
	}

	anchorReceipt, err := anchor(receipts, tenant)
	if err != nil {
		return SyncResult{}, fmt.Errorf("offline: anchor synced batch: %w", err)
	}
	anchoredRoot, _ := anchorReceipt.Payload["merkle_root"].(string)
	if anchoredRoot != batchRoot {
		// The root the main ledger actually recorded for the batch
		// disagrees with what was submitted — a genuine, non-recoverable
		// Merkle mismatch (spec.md §4.7), distinct from the routine
		// duplicate-skip handled above. The entries are already ingested,
		// so this cannot be left to a retry; it blocks and surfaces for
		// operator intervention rather than clearing the queue.
		conflicts.MerkleMismatch = true
		_, _ = controller.Anomaly("offline_merkle_consistency", 0, 1, stoprule.ClassificationViolation, stoprule.ActionAlert, tenant)
		conflictReceipt, _ := controller.Emitter.Emit(TypeConflictResolution, conflictReportPayload(conflicts, false), tenant)
		return SyncResult{Conflicts: conflicts, ConflictReceipt: conflictReceipt},
			fmt.Errorf("offline: anchored root does not match submitted batch root, operator intervention required")
	}

	batchID := anchorReceipt.PayloadHash
	syncedAt := time.Now().UTC()
	syncReceipt, err := controller.Emitter.Emit(receipt.TypeOfflineSync, map[string]interface{}{
		"batch_id":     batchID,
		"synced_count": int64(len(toSubmit)),
		"local_root":   batchRoot,
		"sync_time":    syncedAt.Format("2006-01-02T15:04:05.000000Z"),
	}, tenant)
	if err != nil {
		return SyncResult{}, fmt.Errorf("offline: emit offline_sync receipt: %w", err)
	}

	conflictReceipt, err := controller.Emitter.Emit(TypeConflictResolution, conflictReportPayload(conflicts, true), tenant)
	if err != nil {
		return SyncResult{}, fmt.Errorf("offline: emit conflict_resolution receipt: %w", err)
	}

	if err := q.clear(batchID, syncedAt); err != nil {
		return SyncResult{}, fmt.Errorf("offline: clear queue after sync: %w", err)
	}

	return SyncResult{
		BatchID:         batchID,
		SyncedCount:     len(toSubmit),
		Root:            batchRoot,
		SyncReceipt:     syncReceipt,
		ConflictReceipt: conflictReceipt,
		Conflicts:       conflicts,
	}, nil
}

func conflictReportPayload(c ConflictReport, resolved bool) map[string]interface{} {
	gaps := make([]interface{}, len(c.SequenceGaps))
	for i, g := range c.SequenceGaps {
		gaps[i] = int64(g)
	}
	inversions := make([]interface{}, len(c.TimestampInversions))
	for i, inv := range c.TimestampInversions {
		inversions[i] = int64(inv)
	}
	dupes := make([]interface{}, len(c.Duplicates))
	for i, d := range c.Duplicates {
		dupes[i] = d
	}
	return map[string]interface{}{
		"sequence_gaps":        gaps,
		"timestamp_inversions": inversions,
		"duplicates":           dupes,
		"merkle_mismatch":      c.MerkleMismatch,
		"resolved":             resolved,
	}
}
