package packet

import (
	"strings"

	"github.com/proofpack/go-proofpack/hash"
	"github.com/proofpack/go-proofpack/receipt"
)

// Attach maps each claim to the receipts that support it and emits an
// `attach` receipt recording the mapping, grounded on original_source
// packet/attach.py's hash-prefix-overlap heuristic: a claim and a
// receipt are linked when the first 16 hex characters of one digest
// appear as a substring of the other's composite digest. This
// heuristic is a default, not a requirement — any caller may supply
// its own Mapping directly to Build instead of calling Attach.
func Attach(emitter *receipt.Emitter, claims []Claim, receipts []receipt.Receipt, tenant string) (Mapping, receipt.Receipt, error) {
	mapping := map[string][]string{}
	used := map[string]bool{}
	allReceiptIDs := map[string]bool{}

	for _, r := range receipts {
		allReceiptIDs[shortID(r.PayloadHash)] = true
	}

	for _, claim := range claims {
		claimDigest := hash.DigestString(claim.Text)
		claimPrefix := shortID(claimDigest)

		var matched []string
		for _, r := range receipts {
			receiptPrefix := shortID(r.PayloadHash)
			if strings.Contains(r.PayloadHash, claimPrefix) || strings.Contains(claimDigest, receiptPrefix) {
				matched = append(matched, receiptPrefix)
				used[r.PayloadHash] = true
			}
		}
		mapping[claim.ClaimID] = matched
	}

	var orphans []string
	attached := 0
	for _, claim := range claims {
		if len(mapping[claim.ClaimID]) == 0 {
			orphans = append(orphans, claim.ClaimID)
		} else {
			attached++
		}
	}

	var unused []string
	for id := range allReceiptIDs {
		if !usedShortID(used, id) {
			unused = append(unused, id)
		}
	}

	m := Mapping{
		ClaimToReceipts: mapping,
		AttachedCount:   attached,
		TotalClaims:     len(claims),
		OrphanClaims:    orphans,
		UnusedReceipts:  unused,
	}

	payload := map[string]interface{}{
		"mappings":        mappingToPayload(mapping),
		"attached_count":  int64(attached),
		"total_claims":    int64(len(claims)),
		"orphan_claims":   toInterfaceSlice(orphans),
		"unused_receipts": toInterfaceSlice(unused),
	}
	r, err := emitter.Emit(receipt.TypeAttach, payload, tenant)
	return m, r, err
}

func shortID(digest string) string {
	if len(digest) <= 16 {
		return digest
	}
	return digest[:16]
}

func usedShortID(used map[string]bool, shortHash string) bool {
	for full := range used {
		if shortID(full) == shortHash {
			return true
		}
	}
	return false
}

func mappingToPayload(m map[string][]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = toInterfaceSlice(v)
	}
	return out
}

func toInterfaceSlice(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
