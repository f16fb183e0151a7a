package offline

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// BloomDedup is a fast, in-memory, false-positive-tolerant pre-check
// for "is this digest probably already in the main ledger", adapted
// from the teacher's bloom package (bloom/bloom4.go): the same
// double-hashing construction (SHA256-derived h1/h2, k probe
// positions per element) over a single in-memory bitset, simplified
// from the teacher's fixed on-disk multi-filter region format since
// the offline queue only ever needs one filter, rebuilt each process
// run rather than persisted.
//
// A BloomDedup answers "maybe present" or "definitely absent". Sync
// does not use one: its duplicate check goes straight to the main
// ledger's authoritative digest index (MainLedger.Exists).
type BloomDedup struct {
	bits  []byte
	mBits uint64
	k     uint8
}

// NewBloomDedup sizes a filter for expectedElements at the given
// false-positive rate (a fraction in (0,1)), using the standard
// m = -n*ln(p)/(ln2)^2, k = (m/n)*ln2 sizing formulas.
func NewBloomDedup(expectedElements int, falsePositiveRate float64) *BloomDedup {
	if expectedElements < 1 {
		expectedElements = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	n := float64(expectedElements)
	ln2 := math.Ln2
	m := -n * math.Log(falsePositiveRate) / (ln2 * ln2)
	mBits := uint64(m)
	if mBits < 8 {
		mBits = 8
	}
	k := uint8((m / n) * ln2)
	if k < 1 {
		k = 1
	}
	return &BloomDedup{
		bits:  make([]byte, (mBits+7)/8),
		mBits: mBits,
		k:     k,
	}
}

// Insert records digest as present.
func (b *BloomDedup) Insert(digest string) {
	h1, h2 := bloomHashPair(digest)
	for i := uint8(0); i < b.k; i++ {
		j := (h1 + uint64(i)*h2) % b.mBits
		b.bits[j>>3] |= 1 << (j & 7)
	}
}

// MaybeContains reports whether digest might be present. false is
// authoritative ("definitely not"); true requires confirmation against
// the real index.
func (b *BloomDedup) MaybeContains(digest string) bool {
	h1, h2 := bloomHashPair(digest)
	for i := uint8(0); i < b.k; i++ {
		j := (h1 + uint64(i)*h2) % b.mBits
		if b.bits[j>>3]&(1<<(j&7)) == 0 {
			return false
		}
	}
	return true
}

func bloomHashPair(s string) (uint64, uint64) {
	sum := sha256.Sum256([]byte(s))
	h1 := binary.BigEndian.Uint64(sum[0:8])
	h2 := binary.BigEndian.Uint64(sum[8:16])
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}
