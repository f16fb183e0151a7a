package ledger

import "fmt"

// Lineage walks the parent-hash chain backward from digest, returning
// the ancestor entries in nearest-first order. maxDepth caps the walk;
// pass 0 to use DefaultLineageDepth. A chain that revisits a digest
// already seen in this walk returns ErrCycleDetected; a chain longer
// than maxDepth returns ErrDepthExceeded (spec.md §4.4, I3's corollary
// that a well-formed ledger has no lineage cycles, checked here
// defensively rather than assumed).
func (l *Ledger) Lineage(digest string, maxDepth int) ([]Entry, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultLineageDepth
	}

	seen := map[string]bool{digest: true}
	var chain []Entry

	current := digest
	for i := 0; i < maxDepth; i++ {
		parentDigest, ok, err := l.index.Parent(current)
		if err != nil {
			return nil, fmt.Errorf("ledger: lineage parent lookup: %w", err)
		}
		if !ok {
			return chain, nil
		}
		if seen[parentDigest] {
			return nil, fmt.Errorf("%w: %s", ErrCycleDetected, parentDigest)
		}
		seen[parentDigest] = true

		entry, ok, err := l.index.ByDigest(parentDigest)
		if err != nil {
			return nil, fmt.Errorf("ledger: lineage digest lookup: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: parent %s referenced but absent", ErrNotFound, parentDigest)
		}
		chain = append(chain, entry)
		current = parentDigest
	}

	if _, ok, err := l.index.Parent(current); err == nil && ok {
		return nil, fmt.Errorf("%w: exceeds %d", ErrDepthExceeded, maxDepth)
	}
	return chain, nil
}
