package merkle

import (
	"testing"

	"github.com/proofpack/go-proofpack/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRootIsSentinel(t *testing.T) {
	root, err := Root(Digests(nil))
	require.NoError(t, err)
	assert.Equal(t, hash.EmptyDigest(), root)
}

func TestThreeLeafRootMatchesSpecWalkthrough(t *testing.T) {
	l1, l2, l3 := "leaf-1", "leaf-2", "leaf-3"
	leaves := Digests([]string{l1, l2, l3})

	// Level 1 (after duplication): L1, L2, L3, L3
	// Level 2: H(L1||L2), H(L3||L3)
	// Level 3 (root): H(H(L1||L2) || H(L3||L3))
	wantRoot := hash.DigestString(
		hash.DigestString(l1+l2) + hash.DigestString(l3+l3),
	)

	got, err := Root(leaves)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, got)
}

func TestInclusionProofVerifiesForEveryLeaf(t *testing.T) {
	leaves := Digests([]string{"leaf-1", "leaf-2", "leaf-3"})
	root, err := Root(leaves)
	require.NoError(t, err)

	for i := 0; i < leaves.Len(); i++ {
		proof, err := Prove(leaves, i)
		require.NoError(t, err)
		ld, _ := leaves.LeafDigest(i)
		ok, err := Verify(ld, proof, root)
		require.NoError(t, err)
		assert.True(t, ok, "leaf %d should verify", i)
	}
}

func TestProofForMiddleLeafMatchesSpecWalkthrough(t *testing.T) {
	l1, l2, l3 := "leaf-1", "leaf-2", "leaf-3"
	leaves := Digests([]string{l1, l2, l3})
	root, err := Root(leaves)
	require.NoError(t, err)

	proof, err := Prove(leaves, 1) // L2
	require.NoError(t, err)

	require.Len(t, proof, 2)
	assert.Equal(t, l1, proof[0].Sibling)
	assert.Equal(t, SideLeft, proof[0].Side)
	assert.Equal(t, hash.DigestString(l3+l3), proof[1].Sibling)
	assert.Equal(t, SideRight, proof[1].Side)

	ok, err := Verify(l2, proof, root)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTamperedLeafFailsVerification(t *testing.T) {
	leaves := Digests([]string{"leaf-1", "leaf-2", "leaf-3"})
	root, err := Root(leaves)
	require.NoError(t, err)

	proof, err := Prove(leaves, 1)
	require.NoError(t, err)

	ok, err := Verify("tampered-leaf-2", proof, root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRootReproducibleAcrossCalls(t *testing.T) {
	leaves := Digests([]string{"a", "b", "c", "d", "e"})
	r1, err := Root(leaves)
	require.NoError(t, err)
	r2, err := Root(leaves)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestOddFanoutAppliedPerLevelNotGlobally(t *testing.T) {
	// Five leaves: level 1 has 5 (odd, duplicates last -> 6), producing
	// 3 parents (odd again, so level 2 duplicates its last -> 4), then
	// level 3 has 2 (even) folding to the root.
	five := Digests([]string{"a", "b", "c", "d", "e"})
	rootFive, err := Root(five)
	require.NoError(t, err)

	ab := hash.DigestString("a" + "b")
	cd := hash.DigestString("c" + "d")
	ee := hash.DigestString("e" + "e")
	wantFive := hash.DigestString(hash.DigestString(ab+cd) + hash.DigestString(ee+ee))
	assert.Equal(t, wantFive, rootFive)

	sixGlobal := Digests([]string{"a", "b", "c", "d", "e", "e"})
	rootSixGlobal, err := Root(sixGlobal)
	require.NoError(t, err)

	// Appending one copy of the last leaf reproduces the padded level 1
	// exactly, and the six-leaf tree then pads its 3-parent level the
	// same way, so both computations give the same root.
	assert.Equal(t, rootFive, rootSixGlobal)
}

func TestIndexOutOfRange(t *testing.T) {
	leaves := Digests([]string{"a", "b"})
	_, err := Prove(leaves, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestEmptyProofAgainstNonemptyRoot(t *testing.T) {
	ok, err := Verify("some-leaf", nil, "some-other-root")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrEmptyProofAgainstNonemptyRoot)
}
