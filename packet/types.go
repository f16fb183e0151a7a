// Package packet binds a human-readable decision to a Merkle-anchored
// set of supporting receipts, gated by a 99.9% claim-coverage
// threshold, restoring the three-step shape (attach, audit, build) of
// original_source's packet/attach.py, packet/audit.py, and
// packet/build.py, which the distilled contract folds into one
// "build" call.
package packet

// DecisionHealth is the three-scalar vector, each in [0,1], a
// BriefComposer reports alongside a claim: strength, coverage,
// efficiency. The engine never computes these; it only carries them.
type DecisionHealth struct {
	Strength   float64 `json:"strength"`
	Coverage   float64 `json:"coverage"`
	Efficiency float64 `json:"efficiency"`
}

// DialecticalRecord is the optional pro/con/gap list a BriefComposer
// may attach to a claim.
type DialecticalRecord struct {
	Pro  []string `json:"pro"`
	Con  []string `json:"con"`
	Gaps []string `json:"gaps"`
}

// Claim is one executive statement a decision packet must cover.
type Claim struct {
	ClaimID string `json:"claim_id"`
	Text    string `json:"text"`
}

// Brief is what a BriefComposer supplies for one packet build: the
// claims requiring coverage, the decision-health vector, and an
// optional dialectical record.
type Brief struct {
	ExecutiveSummary  string
	Claims             []Claim
	DecisionHealth     DecisionHealth
	DialecticalRecord *DialecticalRecord
}

// Mapping is the claim -> supporting-receipt-digest result Attach
// produces (or any caller-supplied equivalent — the engine never
// interprets claim text itself).
type Mapping struct {
	ClaimToReceipts map[string][]string
	AttachedCount   int
	TotalClaims     int
	OrphanClaims    []string
	UnusedReceipts  []string
}

// CoverageThreshold is the fixed claim-coverage gate I5 requires.
const CoverageThreshold = 0.999

// CoverageResult is what Audit returns: the observed match rate, the
// fixed threshold, the per-claim violation list, and a pass/fail
// verdict.
type CoverageResult struct {
	MatchRate  float64
	Threshold  float64
	Violations []Violation
	Pass       bool
}

// Violation names one claim that failed to attach.
type Violation struct {
	ClaimID string
	Reason  string
}
