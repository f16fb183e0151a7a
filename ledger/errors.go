package ledger

import "errors"

var (
	// ErrInvariantViolation wraps every ledger invariant breach (I1-I4):
	// payload_hash mismatch, non-monotone sequence, missing parent, or
	// an unreproducible Merkle root.
	ErrInvariantViolation = errors.New("ledger: invariant violation")
	// ErrCycleDetected is returned by Lineage when a parent reference
	// closes a cycle — defensive, since I3 plus monotone sequencing
	// should make this impossible.
	ErrCycleDetected = errors.New("ledger: cycle detected in lineage")
	// ErrDepthExceeded is returned by Lineage when the ancestor chain
	// exceeds the requested (or default) depth cap.
	ErrDepthExceeded = errors.New("ledger: lineage depth cap exceeded")
	// ErrNotFound is returned by GetByDigest for an unknown payload_hash.
	ErrNotFound = errors.New("ledger: digest not found")
	// ErrBatchTooLarge is returned by AnchorBatch when the batch exceeds
	// the soft per-tree leaf cap.
	ErrBatchTooLarge = errors.New("ledger: batch exceeds maximum leaves per tree")
)

// DefaultLineageDepth is the default cap spec.md §5 names for a
// lineage walk; callers may raise it explicitly via Lineage's maxDepth
// argument.
const DefaultLineageDepth = 10

// DefaultMaxBatchLeaves is the soft advisory cap on leaves per Merkle
// batch (spec.md §5: "a sensible default caps any single tree at
// ~10^6 leaves").
const DefaultMaxBatchLeaves = 1_000_000
