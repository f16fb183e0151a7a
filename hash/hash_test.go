package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestFormat(t *testing.T) {
	d := DigestString("hello")
	parts := strings.Split(d, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 64)
	assert.Len(t, parts[1], 64)
}

func TestDigestDeterministic(t *testing.T) {
	a := DigestString("repeatable")
	b := DigestString("repeatable")
	assert.Equal(t, a, b)
}

func TestEmptyDigestIsSentinel(t *testing.T) {
	assert.Equal(t, Digest(EmptySentinel), EmptyDigest())
}

func TestDigestDistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, DigestString("a"), DigestString("b"))
}
