package packet

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/veraison/go-cose"
)

// Signer wraps a packet receipt's opaque signature slot in a COSE
// Sign1 envelope, the concrete implementation SPEC_FULL.md gives the
// "signature: opaque to the engine" slot spec.md §3 leaves abstract,
// mirrored from the teacher's massifs/checkpoint.go
// (cose.CoseSign1Message wrapping a signed MMR state). The engine
// never requires a signature and never interprets one beyond treating
// it as opaque bytes once produced.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner generates a fresh ES256 signing key. It is the only
// constructor: a Signer cannot be built around an existing key, so
// every Signer's identity lasts only as long as the value itself.
func NewSigner() (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("packet: generate signing key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign produces a COSE Sign1 envelope over payload (typically a
// packet receipt's canonical bytes) and returns it CBOR-encoded, ready
// to be stored verbatim in the packet's signature field.
func (s *Signer) Sign(payload []byte) ([]byte, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, s.key)
	if err != nil {
		return nil, fmt.Errorf("packet: construct cose signer: %w", err)
	}

	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: cose.AlgorithmES256,
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("packet: sign cose message: %w", err)
	}

	encoded, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("packet: marshal cose message: %w", err)
	}
	return encoded, nil
}

// Verify checks sig against payload using the signer's public key.
func (s *Signer) Verify(payload, sig []byte) error {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(sig); err != nil {
		return fmt.Errorf("packet: unmarshal cose message: %w", err)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, &s.key.PublicKey)
	if err != nil {
		return fmt.Errorf("packet: construct cose verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("packet: verify cose message: %w", err)
	}
	return nil
}
