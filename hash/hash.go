// Package hash computes the composite digest used to anchor every receipt.
//
// A composite digest is the concatenation H1:H2 of two independent
// 256-bit cryptographic hashes over identical input bytes. Both halves
// are always computed; if a deployment is built without BLAKE3
// available, SecondaryDisabled is set and H2 falls back to H1 — that
// substitution is a build-time constant, never a runtime branch, so a
// given binary always produces the same roots.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// SecondaryDisabled records whether the secondary hash function has
// been substituted with the primary at build time. It must never vary
// at runtime: flipping it silently invalidates every Merkle root
// computed under the other setting.
const SecondaryDisabled = false

// EmptySentinel is the literal input hashed to produce the canonical
// empty-Merkle-tree root.
var EmptySentinel = []byte("empty")

// Digest computes the composite digest of data as "H1:H2" with both
// halves lowercase 64-character hex.
func Digest(data []byte) string {
	h1 := sha256.Sum256(data)
	var h2 [32]byte
	if SecondaryDisabled {
		h2 = h1
	} else {
		h2 = blake3.Sum256(data)
	}
	return hex.EncodeToString(h1[:]) + ":" + hex.EncodeToString(h2[:])
}

// DigestString is a convenience wrapper over Digest for string inputs.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// EmptyDigest is the composite digest of the canonical empty sentinel,
// used as the Merkle root of an empty receipt list.
func EmptyDigest() string {
	return Digest(EmptySentinel)
}
