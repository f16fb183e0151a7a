// Package collab declares the collaborator interfaces the engine
// consumes but never implements: a brief composer that turns raw
// material into a packet-ready brief, and a web-fallback subsystem
// that may enrich a brief with externally retrieved evidence. Both
// are explicit Non-goals of this module (spec.md §1) — the engine
// only defines the shape a collaborator must satisfy and the
// `collab`-tagged receipt type the web-fallback path emits back.
package collab

import (
	"context"

	"github.com/proofpack/go-proofpack/packet"
	"github.com/proofpack/go-proofpack/receipt"
)

// TypeWebRetrieval is the collaborator-registered domain tag a
// WebFallback implementation emits when it enriches a brief with
// external evidence (spec.md §4's Open Collaborator Interfaces:
// "emits web_retrieval receipts back").
const TypeWebRetrieval receipt.Type = "web_retrieval"

// RegisterTypes registers collab's extension receipt type with r.
func RegisterTypes(r *receipt.Registry) {
	r.Register(TypeWebRetrieval)
}

// BriefComposer supplies the executive claim, supporting evidence, and
// decision-health vector that packet.Build consumes. The engine never
// interprets claim text itself (spec.md §4.5); a BriefComposer is
// where that interpretation happens, entirely outside this module.
type BriefComposer interface {
	// ComposeBrief turns raw material (collaborator-defined; the core
	// never inspects it) into a packet.Brief ready for Build.
	ComposeBrief(ctx context.Context, material interface{}) (packet.Brief, error)
}

// WebFallback enriches a brief with optional externally retrieved
// results. It receives only canonical receipts from the core — never
// raw internal state — and reports back the evidence it found plus
// the receipts it wants recorded against TypeWebRetrieval.
type WebFallback interface {
	// Enrich may augment brief with additional supporting evidence
	// found externally. The returned receipts are caller-emitted
	// (via receipt.Emitter, tagged TypeWebRetrieval) before Enrich
	// returns; the core records them but does not produce them.
	Enrich(ctx context.Context, brief packet.Brief, available []receipt.Receipt) (packet.Brief, []receipt.Receipt, error)
}

// ExitCode is the CLI wrapper's process-exit vocabulary (spec.md §6).
// No CLI binary is built here — the CLI is an explicit Non-goal — but
// an external wrapper consuming this module's typed errors should map
// them this way:
//
//	0  success
//	1  an SLO breach surfaced an anomaly but did not corrupt state
//	   (a stoprule.Trip with Action other than ActionHalt, or a halt
//	   the wrapper chooses to retry)
//	2  a fatal error: invariant violation (*stoprule.HaltError),
//	   missing input, or unparseable data
type ExitCode int

const (
	ExitSuccess      ExitCode = 0
	ExitAnomaly      ExitCode = 1
	ExitFatal        ExitCode = 2
)
