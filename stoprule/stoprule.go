// Package stoprule is the uniform policy surface spec.md §4.6
// describes: translate any invariant breach into an anomaly receipt
// (and, when warranted, a halt receipt) and raise a typed error that
// references it. Nothing may catch a stoprule error and drop it
// silently — every collaborator either handles it or propagates it.
package stoprule

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/proofpack/go-proofpack/receipt"
)

// Classification is the closed vocabulary an anomaly is tagged with,
// restored from original_source detect/anomaly.py (the distilled
// spec.md §4.6 names the set but, unlike the original, does not type
// it as a Go enum).
type Classification string

const (
	ClassificationDrift       Classification = "drift"
	ClassificationDegradation Classification = "degradation"
	ClassificationViolation   Classification = "violation"
	ClassificationDeviation   Classification = "deviation"
	ClassificationAntiPattern Classification = "anti_pattern"
)

// Action is the closed vocabulary naming what a StopRule trip does
// next.
type Action string

const (
	ActionAlert    Action = "alert"
	ActionEscalate Action = "escalate"
	ActionHalt     Action = "halt"
	ActionAutoFix  Action = "auto_fix"
)

// HaltError is the typed error a Trip returns when Action is
// ActionHalt. Its Error() string references the anomaly that caused
// it, satisfying the StopRule discipline test in spec.md §8
// ("every thrown typed error is accompanied by exactly one anomaly
// receipt").
type HaltError struct {
	Reason  string
	Anomaly receipt.Receipt
	Halt    receipt.Receipt
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("stoprule: halted (%s): anomaly payload_hash=%s", e.Reason, e.Anomaly.PayloadHash)
}

// Counters is the narrow metrics surface a Controller increments on
// every trip; metrics.Metrics satisfies it without stoprule importing
// the metrics package's Prometheus dependency directly.
type Counters interface {
	IncAnomaly(classification string)
	IncHalt()
}

// Controller emits anomaly and halt receipts through an Emitter. It
// holds no other state — no process-wide registry of past trips, per
// spec.md §9's rejection of global mutable state.
type Controller struct {
	Emitter  *receipt.Emitter
	Counters Counters
	// Log is optional; a nil Log skips structured logging entirely
	// rather than falling back to a no-op logger, since most tests
	// construct a Controller directly without caring about log output.
	Log *zap.SugaredLogger
}

// NewController constructs a Controller against emitter. counters may
// be nil to skip metrics.
func NewController(emitter *receipt.Emitter, counters Counters) *Controller {
	return &Controller{Emitter: emitter, Counters: counters}
}

// Anomaly emits an anomaly receipt recording metric, baseline,
// observed-minus-expected delta, classification, and the resulting
// action, per spec.md §4.6 step 1.
func (c *Controller) Anomaly(metric string, baseline, delta float64, classification Classification, action Action, tenant string) (receipt.Receipt, error) {
	r, err := c.Emitter.Emit(receipt.TypeAnomaly, map[string]interface{}{
		"metric":         metric,
		"baseline":       baseline,
		"delta":          delta,
		"classification": string(classification),
		"action":         string(action),
	}, tenant)
	if err == nil && c.Counters != nil {
		c.Counters.IncAnomaly(string(classification))
	}
	return r, err
}

// Halt emits a halt receipt carrying reason and an escalation
// deadline, per spec.md §4.6 step 2.
func (c *Controller) Halt(reason string, escalationDeadline time.Time, tenant string) (receipt.Receipt, error) {
	r, err := c.Emitter.Emit(receipt.TypeHalt, map[string]interface{}{
		"reason":              reason,
		"escalation_deadline": escalationDeadline.UTC().Format("2006-01-02T15:04:05.000000Z"),
	}, tenant)
	if err == nil && c.Counters != nil {
		c.Counters.IncHalt()
	}
	return r, err
}

// Trip is the full StopRule contract in one call: emit the anomaly,
// emit the halt receipt if action is ActionHalt, and return a
// *HaltError referencing both so the caller cannot recover without
// acknowledging the anomaly that caused it.
//
// When action is not ActionHalt, Trip emits only the anomaly and
// returns nil — the caller continues (spec.md §7: "surfaces an
// anomaly and continues cleanly" for alert-level issues).
func (c *Controller) Trip(
	metric string, baseline, delta float64,
	classification Classification, action Action,
	reason string, escalationDeadline time.Time, tenant string,
) error {
	anomaly, err := c.Anomaly(metric, baseline, delta, classification, action, tenant)
	if err != nil {
		return fmt.Errorf("stoprule: emit anomaly: %w", err)
	}
	if c.Log != nil {
		c.Log.Warnw("stoprule: anomaly raised",
			"metric", metric, "classification", classification, "action", action, "tenant", tenant)
	}
	if action != ActionHalt {
		return nil
	}
	halt, err := c.Halt(reason, escalationDeadline, tenant)
	if err != nil {
		return fmt.Errorf("stoprule: emit halt: %w", err)
	}
	if c.Log != nil {
		c.Log.Errorw("stoprule: halted", "reason", reason, "tenant", tenant, "deadline", escalationDeadline)
	}
	return &HaltError{Reason: reason, Anomaly: anomaly, Halt: halt}
}
