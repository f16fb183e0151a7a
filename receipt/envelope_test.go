package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/proofpack/go-proofpack/canon"
	"github.com/proofpack/go-proofpack/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	received []Receipt
}

func (m *memSink) Ingest(r Receipt) error {
	m.received = append(m.received, r)
	return nil
}

func newTestEmitter(sink Sink) *Emitter {
	e := NewEmitter(NewRegistry(), sink)
	e.Clock = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e
}

func TestEmitStampsRequiredFields(t *testing.T) {
	sink := &memSink{}
	e := newTestEmitter(sink)

	r, err := e.Emit(TypeIngest, map[string]interface{}{"source": "test"}, "")
	require.NoError(t, err)

	assert.Equal(t, TypeIngest, r.ReceiptType)
	assert.Equal(t, DefaultTenant, r.TenantID)
	assert.True(t, len(r.PayloadHash) > 0)
	assert.Equal(t, "2026-01-02T03:04:05.000000Z", r.TS)
	require.Len(t, sink.received, 1)
}

func TestEmitRejectsUnknownType(t *testing.T) {
	e := newTestEmitter(&memSink{})
	_, err := e.Emit(Type("bogus"), map[string]interface{}{}, "")
	assert.ErrorIs(t, err, ErrUnknownReceiptType)
}

func TestEmitRejectsReservedFieldCollision(t *testing.T) {
	e := newTestEmitter(&memSink{})
	_, err := e.Emit(TypeIngest, map[string]interface{}{"ts": "collide"}, "")
	assert.ErrorIs(t, err, ErrInvariantFieldCollision)
}

func TestPayloadHashConsistency(t *testing.T) {
	e := newTestEmitter(&memSink{})
	r, err := e.Emit(TypeIngest, map[string]interface{}{"a": 1, "b": "x"}, "tenant-a")
	require.NoError(t, err)

	// payload_hash must equal hash(canonicalize(payload fields)) — I1.
	fields := map[string]interface{}{"a": 1, "b": "x"}
	v, err := canon.FromGo(fields)
	require.NoError(t, err)
	b, err := canon.Bytes(v)
	require.NoError(t, err)
	assert.Equal(t, hash.Digest(b), r.PayloadHash)
}

func TestStreamWriterAppendsOnePerLine(t *testing.T) {
	e := newTestEmitter(&memSink{})
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf)

	r1, _ := e.Emit(TypeIngest, map[string]interface{}{"n": 1}, "")
	r2, _ := e.Emit(TypeIngest, map[string]interface{}{"n": 2}, "")

	require.NoError(t, sw.Write(r1))
	require.NoError(t, sw.Write(r2))

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	assert.Len(t, lines, 2)
}
