package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gtassert "gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestKeyOrderInvariant(t *testing.T) {
	a := Object(map[string]Value{"b": Int(2), "a": Int(1)})
	b := Object(map[string]Value{"a": Int(1), "b": Int(2)})

	ab, err := Bytes(a)
	require.NoError(t, err)
	bb, err := Bytes(b)
	require.NoError(t, err)

	assert.Equal(t, ab, bb)
	assert.Equal(t, `{"a":1,"b":2}`, string(ab))
}

func TestArrayPreservesOrder(t *testing.T) {
	v := Array(Int(3), Int(1), Int(2))
	b, err := Bytes(v)
	require.NoError(t, err)
	assert.Equal(t, "[3,1,2]", string(b))
}

func TestDeterministicClone(t *testing.T) {
	v, err := FromGo(map[string]interface{}{
		"x": 1.5,
		"y": []interface{}{"a", "b"},
		"z": nil,
	})
	require.NoError(t, err)

	b1, err := Bytes(v)
	require.NoError(t, err)

	v2, err := FromGo(map[string]interface{}{
		"z": nil,
		"y": []interface{}{"a", "b"},
		"x": 1.5,
	})
	require.NoError(t, err)

	b2, err := Bytes(v2)
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
}

func TestInvalidUTF8Fails(t *testing.T) {
	bad := string([]byte{0xff, 0xfe, 0xfd})
	_, err := Bytes(String(bad))
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestFloatFormatting(t *testing.T) {
	b, err := Bytes(Float(1.0))
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))

	b, err = Bytes(Float(0.1))
	require.NoError(t, err)
	assert.Equal(t, "0.1", string(b))
}

// TestNestedObjectGoldenBytes pins the exact canonical encoding of a
// nested structure against a literal golden value, catching any
// accidental drift in key ordering or separators.
func TestNestedObjectGoldenBytes(t *testing.T) {
	v, err := FromGo(map[string]interface{}{
		"tenant_id": "tenant-a",
		"counts":    []interface{}{1.0, 2.0, 3.0},
		"meta": map[string]interface{}{
			"version": "v1",
			"active":  true,
		},
	})
	require.NoError(t, err)

	b, err := Bytes(v)
	require.NoError(t, err)

	const want = `{"counts":[1,2,3],"meta":{"active":true,"version":"v1"},"tenant_id":"tenant-a"}`
	gtassert.Assert(t, cmp.Equal(string(b), want))
}
