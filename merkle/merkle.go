// Package merkle builds the binary Merkle tree over an ordered receipt
// list, computes its root, and generates and verifies per-leaf
// inclusion proofs.
//
// Unlike the teacher package this one is adapted from (mmr, a Merkle
// Mountain Range accumulator built incrementally one leaf at a time),
// this engine rebuilds a plain binary tree from a fully-known ordered
// list on every call — the shape spec.md requires (odd levels
// duplicate their last entry, not an MMR's forest-of-perfect-trees
// accumulator). The API idiom — small free functions, package-level
// error sentinels, explicit index types — is kept from mmr/proof.go
// and mmr/verify.go.
package merkle

import (
	"errors"
	"fmt"

	"github.com/proofpack/go-proofpack/hash"
)

var (
	// ErrEmptyProofAgainstNonemptyRoot is returned by Verify when the
	// supplied proof is empty but the leaf digest does not already
	// equal the expected root.
	ErrEmptyProofAgainstNonemptyRoot = errors.New("merkle: empty proof against nonempty root")
	// ErrProofMalformed is returned when a proof step lacks a side.
	ErrProofMalformed = errors.New("merkle: proof step malformed")
	// ErrIndexOutOfRange is returned by Prove for an index outside the
	// leaf list.
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
)

// Side identifies which side of a pairing a sibling digest sits on.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// ProofStep is one level of an inclusion proof: the sibling digest and
// which side it sits on relative to the node being folded.
type ProofStep struct {
	Sibling string
	Side    Side
}

// Leafer produces the canonical leaf digest for an item at position i
// in an ordered list; Root and Prove operate over anything satisfying
// this, so callers are not forced to materialize []string up front.
type Leafer interface {
	Len() int
	LeafDigest(i int) (string, error)
}

// digests is a Leafer over a pre-computed slice of leaf digests.
type digests []string

func (d digests) Len() int                      { return len(d) }
func (d digests) LeafDigest(i int) (string, error) { return d[i], nil }

// Digests wraps a pre-computed ordered slice of leaf digests as a
// Leafer.
func Digests(leaves []string) Leafer { return digests(leaves) }

// Root computes the Merkle root over leaves. An empty list yields the
// canonical empty-input sentinel digest (I4, spec.md scenario 1).
func Root(leaves Leafer) (string, error) {
	level, err := leafLevel(leaves)
	if err != nil {
		return "", err
	}
	if len(level) == 0 {
		return hash.EmptyDigest(), nil
	}
	for len(level) > 1 {
		level = foldLevel(level)
	}
	return level[0], nil
}

// Prove returns the inclusion proof for the leaf at index i: an
// ordered sequence of {sibling, side} steps from leaf to root,
// following the odd-fanout duplication rule level by level (not once
// globally — spec.md §8 "Odd-fanout stability").
func Prove(leaves Leafer, i int) ([]ProofStep, error) {
	level, err := leafLevel(leaves)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(level) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}

	var proof []ProofStep
	idx := i
	for len(level) > 1 {
		padded := padOdd(level)
		if idx%2 == 0 {
			// idx is the left child; sibling is to the right.
			proof = append(proof, ProofStep{Sibling: padded[idx+1], Side: SideRight})
		} else {
			proof = append(proof, ProofStep{Sibling: padded[idx-1], Side: SideLeft})
		}
		level = foldLevel(level)
		idx = idx / 2
	}
	return proof, nil
}

// Verify folds the candidate leaf digest against each proof step and
// compares the result to expectedRoot.
func Verify(leafDigest string, proof []ProofStep, expectedRoot string) (bool, error) {
	if len(proof) == 0 {
		if leafDigest != expectedRoot {
			return false, ErrEmptyProofAgainstNonemptyRoot
		}
		return true, nil
	}

	current := leafDigest
	for _, step := range proof {
		switch step.Side {
		case SideRight:
			current = hash.DigestString(current + step.Sibling)
		case SideLeft:
			current = hash.DigestString(step.Sibling + current)
		default:
			return false, ErrProofMalformed
		}
	}
	return current == expectedRoot, nil
}

func leafLevel(leaves Leafer) ([]string, error) {
	n := leaves.Len()
	level := make([]string, n)
	for i := 0; i < n; i++ {
		d, err := leaves.LeafDigest(i)
		if err != nil {
			return nil, fmt.Errorf("merkle: leaf digest %d: %w", i, err)
		}
		level[i] = d
	}
	return level, nil
}

// padOdd duplicates the last entry of level if its length is odd, per
// the odd-fanout rule applied at every level independently.
func padOdd(level []string) []string {
	if len(level)%2 == 1 {
		padded := make([]string, len(level)+1)
		copy(padded, level)
		padded[len(padded)-1] = level[len(level)-1]
		return padded
	}
	return level
}

// foldLevel pairs adjacent entries (after odd-fanout padding) and
// hashes each pair's concatenated digest strings into the parent
// level.
func foldLevel(level []string) []string {
	padded := padOdd(level)
	next := make([]string, 0, len(padded)/2)
	for i := 0; i < len(padded); i += 2 {
		next = append(next, hash.DigestString(padded[i]+padded[i+1]))
	}
	return next
}
