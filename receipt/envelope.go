// Package receipt constructs the required envelope around a payload:
// receipt_type, ts, tenant_id, payload_hash. Receipts are immutable
// once emitted; a correction is a new receipt, never a mutation.
package receipt

import (
	"fmt"
	"time"

	"github.com/proofpack/go-proofpack/canon"
	"github.com/proofpack/go-proofpack/hash"
)

// DefaultTenant is used when no explicit tenant is supplied.
const DefaultTenant = "default"

// Receipt is an emitted, immutable record: the four required envelope
// fields plus whatever payload fields the caller supplied.
type Receipt struct {
	ReceiptType Type                   `json:"receipt_type"`
	TS          string                 `json:"ts"`
	TenantID    string                 `json:"tenant_id"`
	PayloadHash string                 `json:"payload_hash"`
	Payload     map[string]interface{} `json:"-"`
}

// CanonicalFields returns the full canonical field set (envelope plus
// payload) used to compute a leaf digest for this receipt in the
// Merkle engine.
func (r Receipt) CanonicalFields() map[string]interface{} {
	fields := make(map[string]interface{}, len(r.Payload)+4)
	for k, v := range r.Payload {
		fields[k] = v
	}
	fields["receipt_type"] = string(r.ReceiptType)
	fields["ts"] = r.TS
	fields["tenant_id"] = r.TenantID
	fields["payload_hash"] = r.PayloadHash
	return fields
}

// CanonicalBytes renders the receipt's full field set (envelope plus
// payload) as canonical bytes — the representation the Merkle engine
// hashes to obtain a leaf digest.
func (r Receipt) CanonicalBytes() ([]byte, error) {
	v, err := canon.FromGo(r.CanonicalFields())
	if err != nil {
		return nil, err
	}
	return canon.Bytes(v)
}

// Clock abstracts the current time so tests can supply a fixed value;
// the zero value uses time.Now.
type Clock func() time.Time

// Sink receives every emitted receipt, in emission order, for
// indexing and for the canonical receipt stream. A Ledger satisfies
// this interface; so does any append-only writer.
type Sink interface {
	Ingest(r Receipt) error
}

// Emitter stamps payloads into receipts and hands them to a Sink. It
// holds no other state; construction and teardown are explicit, there
// is no package-level registry or sink.
type Emitter struct {
	Registry *Registry
	Sink     Sink
	Clock    Clock
}

// NewEmitter constructs an Emitter against the given registry and
// sink. Clock is left nil, so Emit uses time.Now until the caller sets
// it.
func NewEmitter(registry *Registry, sink Sink) *Emitter {
	return &Emitter{Registry: registry, Sink: sink}
}

func (e *Emitter) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Emit stamps payload into a receipt of type t for tenant, computes
// its payload_hash, hands it to the sink, and returns it.
//
// payload must not define receipt_type, ts, tenant_id, or payload_hash
// (ErrInvariantFieldCollision). t must be registered
// (ErrUnknownReceiptType). An empty tenant defaults to "default".
func (e *Emitter) Emit(t Type, payload map[string]interface{}, tenant string) (Receipt, error) {
	if e.Registry != nil && !e.Registry.Recognized(t) {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownReceiptType, t)
	}
	for field := range payload {
		if reservedFields[field] {
			return Receipt{}, fmt.Errorf("%w: field %q", ErrInvariantFieldCollision, field)
		}
	}
	if tenant == "" {
		tenant = DefaultTenant
	}

	payloadValue, err := canon.FromGo(payload)
	if err != nil {
		return Receipt{}, err
	}
	payloadBytes, err := canon.Bytes(payloadValue)
	if err != nil {
		return Receipt{}, err
	}

	r := Receipt{
		ReceiptType: t,
		TS:          e.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
		TenantID:    tenant,
		PayloadHash: hash.Digest(payloadBytes),
		Payload:     payload,
	}

	if e.Sink != nil {
		if err := e.Sink.Ingest(r); err != nil {
			return Receipt{}, fmt.Errorf("receipt: sink rejected receipt: %w", err)
		}
	}

	return r, nil
}
