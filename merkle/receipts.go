package merkle

import (
	"fmt"

	"github.com/proofpack/go-proofpack/hash"
	"github.com/proofpack/go-proofpack/receipt"
)

// ReceiptLeaves adapts an ordered list of receipts into a Leafer whose
// leaf digest for position i is composite_digest(canonicalize(receipt)),
// matching spec.md §4.3's build algorithm exactly.
type ReceiptLeaves []receipt.Receipt

func (r ReceiptLeaves) Len() int { return len(r) }

func (r ReceiptLeaves) LeafDigest(i int) (string, error) {
	b, err := r[i].CanonicalBytes()
	if err != nil {
		return "", fmt.Errorf("merkle: canonicalize receipt %d: %w", i, err)
	}
	return hash.Digest(b), nil
}

// RootOfReceipts is a convenience wrapper for Root(ReceiptLeaves(receipts)).
func RootOfReceipts(receipts []receipt.Receipt) (string, error) {
	return Root(ReceiptLeaves(receipts))
}

// ProveReceipt is a convenience wrapper for Prove(ReceiptLeaves(receipts), i).
func ProveReceipt(receipts []receipt.Receipt, i int) ([]ProofStep, error) {
	return Prove(ReceiptLeaves(receipts), i)
}

// VerifyReceipt recomputes the leaf digest for candidate and verifies
// it against proof and expectedRoot, tampering-detecting any byte
// change in candidate (spec.md §8 scenario 4).
func VerifyReceipt(candidate receipt.Receipt, proof []ProofStep, expectedRoot string) (bool, error) {
	b, err := candidate.CanonicalBytes()
	if err != nil {
		return false, err
	}
	return Verify(hash.Digest(b), proof, expectedRoot)
}
