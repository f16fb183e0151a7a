package ledger

import (
	"time"

	"github.com/proofpack/go-proofpack/receipt"
)

// Entry is a receipt plus its ingestion metadata: a per-tenant
// monotonic sequence number and an optional parent_hash chaining it to
// an earlier receipt in the same tenant's causal history.
type Entry struct {
	Receipt    receipt.Receipt
	Sequence   uint64
	ParentHash string // empty when this entry has no parent
}

// ParsedTime parses the entry's ts field; the time-range queries of
// both Index implementations filter on it.
func (e Entry) ParsedTime() (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000000Z", e.Receipt.TS)
}

// HourBucket returns the "YYYY-MM-DD-HH" bucket key of the ledger file
// layout's index/time/ directory convention in spec.md §6. Neither
// InMemoryIndex nor PostgresIndex keeps an hour-bucket index: their
// time-range queries compare ParsedTime directly.
func (e Entry) HourBucket() (string, error) {
	t, err := e.ParsedTime()
	if err != nil {
		return "", err
	}
	return t.UTC().Format("2006-01-02-15"), nil
}
