package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/proofpack/go-proofpack/receipt"
)

// Index is the ledger's secondary-index surface: lookup by digest, and
// query by type, time range, or tenant, plus the reverse-parent index
// (child digest -> parent digest) lineage walks use. A Ledger owns
// exactly one Index; the default is InMemoryIndex, but deployments
// with more receipts than fit comfortably in one process's memory can
// supply PostgresIndex (see pgindex.go) instead.
type Index interface {
	IndexEntry(e Entry) error
	ByDigest(payloadHash string) (Entry, bool, error)
	ByType(t receipt.Type) ([]Entry, error)
	// ByTimeRange orders results by Sequence, which is only a global
	// insertion order within a single tenant's stream — across tenants
	// it reflects interleaving of independent per-tenant sequences, not
	// true wall-clock order. Callers needing a strict cross-tenant
	// ordering should sort on the returned entries' timestamps instead.
	ByTimeRange(start, end time.Time) ([]Entry, error)
	ByTenant(tenant string) ([]Entry, error)
	Parent(childDigest string) (string, bool, error)
	// Tenants returns every tenant ID the index has ever seen an entry
	// for, so a Ledger can seed its per-tenant sequence counters from
	// persisted state when reopened over an existing log.
	Tenants() ([]string, error)
}

// InMemoryIndex is the default Index: plain Go maps guarded by a
// single RWMutex, adequate for the single-writer-serialized,
// snapshot-read ledger model in spec.md §5.
type InMemoryIndex struct {
	mu        sync.RWMutex
	byDigest  map[string]Entry
	byType    map[receipt.Type][]string // ordered digests
	byTenant  map[string][]string
	parentOf  map[string]string // child payload_hash -> parent payload_hash
}

// NewInMemoryIndex constructs an empty InMemoryIndex.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{
		byDigest: make(map[string]Entry),
		byType:   make(map[receipt.Type][]string),
		byTenant: make(map[string][]string),
		parentOf: make(map[string]string),
	}
}

func (idx *InMemoryIndex) IndexEntry(e Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	digest := e.Receipt.PayloadHash
	idx.byDigest[digest] = e
	idx.byType[e.Receipt.ReceiptType] = append(idx.byType[e.Receipt.ReceiptType], digest)
	idx.byTenant[e.Receipt.TenantID] = append(idx.byTenant[e.Receipt.TenantID], digest)
	if e.ParentHash != "" {
		idx.parentOf[digest] = e.ParentHash
	}
	return nil
}

func (idx *InMemoryIndex) ByDigest(payloadHash string) (Entry, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.byDigest[payloadHash]
	return e, ok, nil
}

func (idx *InMemoryIndex) ByType(t receipt.Type) ([]Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	digests := idx.byType[t]
	out := make([]Entry, 0, len(digests))
	for _, d := range digests {
		out = append(out, idx.byDigest[d])
	}
	return out, nil
}

func (idx *InMemoryIndex) ByTimeRange(start, end time.Time) ([]Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []Entry
	for _, e := range idx.byDigest {
		t, err := e.ParsedTime()
		if err != nil {
			continue
		}
		if (t.Equal(start) || t.After(start)) && (t.Equal(end) || t.Before(end)) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (idx *InMemoryIndex) ByTenant(tenant string) ([]Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	digests := idx.byTenant[tenant]
	out := make([]Entry, 0, len(digests))
	for _, d := range digests {
		out = append(out, idx.byDigest[d])
	}
	return out, nil
}

func (idx *InMemoryIndex) Parent(childDigest string) (string, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.parentOf[childDigest]
	return p, ok, nil
}

func (idx *InMemoryIndex) Tenants() ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.byTenant))
	for tenant := range idx.byTenant {
		out = append(out, tenant)
	}
	return out, nil
}
