package packet

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/proofpack/go-proofpack/merkle"
	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

// Build runs the full decision-packet contract: attach claims to
// receipts (via Attach's hash-overlap heuristic, unless the caller
// already supplies its own mapping), audit claim-coverage (I5), and on
// a pass compute the Merkle root over the attached receipts and emit
// the `packet` receipt. If Attach fails, Build returns its error
// without auditing coverage or emitting a packet.
//
// precomputed may be nil, in which case Build calls Attach itself; a
// non-nil value is used as-is, matching spec.md §4.5's "the builder
// does not interpret claim text; it records the reported claim→receipts
// mapping" — the heuristic in Attach is one way to produce that
// mapping, not the only way.
//
// controller.Emitter and emitter should generally share the same
// Registry/Sink — Build takes emitter explicitly because Attach and
// the final packet emission use it directly, while controller is only
// consulted for the coverage gate.
func Build(emitter *receipt.Emitter, controller *stoprule.Controller, brief Brief, receipts []receipt.Receipt, precomputed *Mapping, tenant string) (receipt.Receipt, error) {
	var mapping Mapping
	if precomputed != nil {
		mapping = *precomputed
	} else {
		m, _, err := Attach(emitter, brief.Claims, receipts, tenant)
		if err != nil {
			return receipt.Receipt{}, fmt.Errorf("packet: attach: %w", err)
		}
		mapping = m
	}

	if _, _, err := Audit(controller, mapping, tenant); err != nil {
		return receipt.Receipt{}, err
	}

	attachedReceipts := attachedSet(mapping, receipts)
	root, err := merkle.RootOfReceipts(attachedReceipts)
	if err != nil {
		return receipt.Receipt{}, fmt.Errorf("packet: compute merkle root: %w", err)
	}

	attachedDigests := make([]interface{}, len(attachedReceipts))
	for i, r := range attachedReceipts {
		attachedDigests[i] = r.PayloadHash
	}

	payload := map[string]interface{}{
		"packet_id":       uuid.NewString(),
		"brief":           brief.ExecutiveSummary,
		"decision_health": decisionHealthToPayload(brief.DecisionHealth),
		"attached_receipts": attachedDigests,
		"receipt_count":   int64(len(attachedDigests)),
		"merkle_anchor":   root,
		"signature":       nil,
	}
	if brief.DialecticalRecord != nil {
		payload["dialectical_record"] = dialecticalToPayload(*brief.DialecticalRecord)
	} else {
		payload["dialectical_record"] = nil
	}

	return emitter.Emit(receipt.TypePacket, payload, tenant)
}

// attachedSet returns, in receipts' original order, every receipt that
// was matched to at least one claim.
func attachedSet(mapping Mapping, receipts []receipt.Receipt) []receipt.Receipt {
	matchedPrefixes := map[string]bool{}
	for _, rids := range mapping.ClaimToReceipts {
		for _, rid := range rids {
			matchedPrefixes[rid] = true
		}
	}
	var out []receipt.Receipt
	for _, r := range receipts {
		if matchedPrefixes[shortID(r.PayloadHash)] {
			out = append(out, r)
		}
	}
	return out
}

func decisionHealthToPayload(h DecisionHealth) map[string]interface{} {
	return map[string]interface{}{
		"strength":   h.Strength,
		"coverage":   h.Coverage,
		"efficiency": h.Efficiency,
	}
}

func dialecticalToPayload(d DialecticalRecord) map[string]interface{} {
	return map[string]interface{}{
		"pro":  toInterfaceSlice(d.Pro),
		"con":  toInterfaceSlice(d.Con),
		"gaps": toInterfaceSlice(d.Gaps),
	}
}
