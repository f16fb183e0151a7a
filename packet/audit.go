package packet

import (
	"fmt"
	"time"

	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

// ErrCoverageBelowThreshold is raised when Audit's match rate falls
// below CoverageThreshold; the caller already has an anomaly and a
// halt receipt on the stream by the time this error returns (I5).
var ErrCoverageBelowThreshold = fmt.Errorf("packet: claim coverage below threshold")

// Audit checks mapping's claim-coverage against CoverageThreshold. On
// a pass it emits a `consistency` receipt and returns (result, nil).
// On a fail it routes the breach through controller — which emits the
// anomaly and halt receipts and returns the typed halting error — and
// Audit wraps that in ErrCoverageBelowThreshold so callers can
// errors.Is against a stable sentinel regardless of StopRule wiring.
func Audit(controller *stoprule.Controller, mapping Mapping, tenant string) (CoverageResult, receipt.Receipt, error) {
	matchRate := 0.0
	if mapping.TotalClaims > 0 {
		matchRate = float64(mapping.AttachedCount) / float64(mapping.TotalClaims)
	}

	violations := make([]Violation, 0, len(mapping.OrphanClaims))
	for _, claimID := range mapping.OrphanClaims {
		violations = append(violations, Violation{ClaimID: claimID, Reason: "no_receipt_attached"})
	}

	result := CoverageResult{
		MatchRate:  matchRate,
		Threshold:  CoverageThreshold,
		Violations: violations,
		Pass:       matchRate >= CoverageThreshold,
	}

	if !result.Pass {
		now := time.Now
		if controller.Emitter.Clock != nil {
			now = controller.Emitter.Clock
		}
		err := controller.Trip(
			"fusion_match", CoverageThreshold, matchRate-CoverageThreshold,
			stoprule.ClassificationViolation, stoprule.ActionHalt,
			"consistency_below_threshold",
			now().UTC().Add(4*time.Hour),
			tenant,
		)
		return result, receipt.Receipt{}, fmt.Errorf("%w: match_rate=%.4f threshold=%.4f: %v", ErrCoverageBelowThreshold, matchRate, CoverageThreshold, err)
	}

	r, err := controller.Emitter.Emit(receipt.TypeConsistency, map[string]interface{}{
		"match_rate":       matchRate,
		"threshold":        CoverageThreshold,
		"violations":       violationsToPayload(violations),
		"status":           "pass",
		"escalation_hours": nil,
	}, tenant)
	return result, r, err
}

func violationsToPayload(vs []Violation) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = map[string]interface{}{
			"claim_id": v.ClaimID,
			"reason":   v.Reason,
		}
	}
	return out
}
