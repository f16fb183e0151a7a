package packet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofpack/go-proofpack/packet"
	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

type collectingSink struct {
	receipts []receipt.Receipt
}

func (s *collectingSink) Ingest(r receipt.Receipt) error {
	s.receipts = append(s.receipts, r)
	return nil
}

func newHarness() (*receipt.Emitter, *stoprule.Controller, *collectingSink) {
	registry := receipt.NewRegistry()
	sink := &collectingSink{}
	clock := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	emitter := &receipt.Emitter{Registry: registry, Sink: sink, Clock: clock}
	controller := stoprule.NewController(emitter, nil)
	return emitter, controller, sink
}

func claimReceipt(t *testing.T, emitter *receipt.Emitter, n int) receipt.Receipt {
	t.Helper()
	r, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": int64(n)}, "tenant-a")
	require.NoError(t, err)
	return r
}

func TestBuildEmitsPacketWhenCoverageAtThreshold(t *testing.T) {
	emitter, controller, _ := newHarness()

	var receipts []receipt.Receipt
	claimToReceipts := map[string][]string{}
	for i := 0; i < 1000; i++ {
		r := claimReceipt(t, emitter, i)
		receipts = append(receipts, r)
		claimID := r.PayloadHash[:16]
		if i == 999 {
			claimToReceipts[claimID] = nil // the one orphan claim
			continue
		}
		claimToReceipts[claimID] = []string{r.PayloadHash[:16]}
	}

	mapping := packet.Mapping{
		ClaimToReceipts: claimToReceipts,
		AttachedCount:   999,
		TotalClaims:     1000,
		OrphanClaims:    []string{receipts[999].PayloadHash[:16]},
	}

	brief := packet.Brief{
		ExecutiveSummary: "quarterly risk review",
		DecisionHealth:   packet.DecisionHealth{Strength: 0.9, Coverage: 0.999, Efficiency: 0.8},
	}

	r, err := packet.Build(emitter, controller, brief, receipts, &mapping, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, receipt.TypePacket, r.ReceiptType)
	require.NotEmpty(t, r.Payload["merkle_anchor"])
	require.Equal(t, int64(999), r.Payload["receipt_count"])
}

func TestAuditFailsBelowThreshold(t *testing.T) {
	_, controller, _ := newHarness()

	mapping := packet.Mapping{
		AttachedCount: 998,
		TotalClaims:   1000,
		OrphanClaims:  []string{"c1", "c2"},
	}
	_, _, err := packet.Audit(controller, mapping, "tenant-a")
	require.Error(t, err)
	require.ErrorIs(t, err, packet.ErrCoverageBelowThreshold)
}

func TestAuditPassesAtExactThreshold(t *testing.T) {
	_, controller, _ := newHarness()

	mapping := packet.Mapping{
		AttachedCount: 999,
		TotalClaims:   1000,
		OrphanClaims:  []string{"c1"},
	}
	result, r, err := packet.Audit(controller, mapping, "tenant-a")
	require.NoError(t, err)
	require.True(t, result.Pass)
	require.Equal(t, receipt.TypeConsistency, r.ReceiptType)
}

func TestVerifyPacketDetectsTampering(t *testing.T) {
	emitter, controller, _ := newHarness()

	r1 := claimReceipt(t, emitter, 1)
	r2 := claimReceipt(t, emitter, 2)
	mapping := packet.Mapping{
		ClaimToReceipts: map[string][]string{
			"claim-1": {r1.PayloadHash[:16]},
			"claim-2": {r2.PayloadHash[:16]},
		},
		AttachedCount: 2,
		TotalClaims:   2,
	}
	brief := packet.Brief{ExecutiveSummary: "two claims"}

	pr, err := packet.Build(emitter, controller, brief, []receipt.Receipt{r1, r2}, &mapping, "tenant-a")
	require.NoError(t, err)

	ok, err := packet.VerifyPacket(pr, []receipt.Receipt{r1, r2})
	require.NoError(t, err)
	require.True(t, ok)

	tampered := r2
	tampered.Payload = map[string]interface{}{"n": int64(999)}
	ok, err = packet.VerifyPacket(pr, []receipt.Receipt{r1, tampered})
	require.NoError(t, err)
	require.False(t, ok)
}
