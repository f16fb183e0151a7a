package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofpack/go-proofpack/canon"
	"github.com/proofpack/go-proofpack/hash"
	"github.com/proofpack/go-proofpack/ledger"
	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

type memStore struct {
	lines []string
	state map[string]ledger.TenantState
}

func newMemStore() *memStore {
	return &memStore{state: make(map[string]ledger.TenantState)}
}

func (m *memStore) AppendLine(line []byte) error {
	m.lines = append(m.lines, string(line))
	return nil
}

func (m *memStore) ReadState(tenant string) (ledger.TenantState, error) {
	return m.state[tenant], nil
}

func (m *memStore) WriteState(tenant string, state ledger.TenantState) error {
	m.state[tenant] = state
	return nil
}

func newTestLedger(t *testing.T) (*ledger.Ledger, *memStore) {
	t.Helper()
	store := newMemStore()
	l, err := ledger.New(ledger.Options{
		Store: store,
		Clock: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	l.EnableStopRule(nil)
	return l, store
}

func TestIngestAssignsMonotonicSequence(t *testing.T) {
	l, _ := newTestLedger(t)
	emitter := l.Emitter()

	r1, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 1}, "tenant-a")
	require.NoError(t, err)
	r2, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 2}, "tenant-a")
	require.NoError(t, err)

	e1, err := l.GetByDigest(r1.PayloadHash)
	require.NoError(t, err)
	e2, err := l.GetByDigest(r2.PayloadHash)
	require.NoError(t, err)
	require.Equal(t, uint64(1), e1.Sequence)
	require.Equal(t, uint64(2), e2.Sequence)
}

func TestIngestTenantsAreIndependentSequences(t *testing.T) {
	l, _ := newTestLedger(t)
	emitter := l.Emitter()

	ra, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 1}, "tenant-a")
	require.NoError(t, err)
	rb, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 1}, "tenant-b")
	require.NoError(t, err)

	ea, _ := l.GetByDigest(ra.PayloadHash)
	eb, _ := l.GetByDigest(rb.PayloadHash)
	require.Equal(t, uint64(1), ea.Sequence)
	require.Equal(t, uint64(1), eb.Sequence)
}

func TestIngestRejectsMissingParent(t *testing.T) {
	l, _ := newTestLedger(t)
	payload := map[string]interface{}{"parent_hash": "nonexistent"}
	v, err := canon.FromGo(payload)
	require.NoError(t, err)
	b, err := canon.Bytes(v)
	require.NoError(t, err)
	err = l.Ingest(receipt.Receipt{
		ReceiptType: receipt.TypeIngest,
		TS:          "2026-01-01T00:00:00.000000Z",
		TenantID:    "tenant-a",
		PayloadHash: hash.Digest(b),
		Payload:     payload,
	})
	require.Error(t, err)
}

func TestIngestRejectsPayloadHashMismatch(t *testing.T) {
	l, _ := newTestLedger(t)
	err := l.Ingest(receipt.Receipt{
		ReceiptType: receipt.TypeIngest,
		TS:          "2026-01-01T00:00:00.000000Z",
		TenantID:    "tenant-a",
		PayloadHash: "0000000000000000000000000000000000000000000000000000000000000:0000000000000000000000000000000000000000000000000000000000000",
		Payload:     map[string]interface{}{"n": 1},
	})
	require.Error(t, err)
	var haltErr *stoprule.HaltError
	require.ErrorAs(t, err, &haltErr)
}

func TestLineageWalksParentChainAndDetectsCycleFreeChains(t *testing.T) {
	l, _ := newTestLedger(t)
	emitter := l.Emitter()

	root, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"step": 0}, "tenant-a")
	require.NoError(t, err)

	child, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{
		"step":        1,
		"parent_hash": root.PayloadHash,
	}, "tenant-a")
	require.NoError(t, err)

	grandchild, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{
		"step":        2,
		"parent_hash": child.PayloadHash,
	}, "tenant-a")
	require.NoError(t, err)

	chain, err := l.Lineage(grandchild.PayloadHash, 0)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, child.PayloadHash, chain[0].Receipt.PayloadHash)
	require.Equal(t, root.PayloadHash, chain[1].Receipt.PayloadHash)
}

func TestLineageEnforcesDepthCap(t *testing.T) {
	l, _ := newTestLedger(t)
	emitter := l.Emitter()

	prev, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"step": 0}, "tenant-a")
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		r, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{
			"step":        i,
			"parent_hash": prev.PayloadHash,
		}, "tenant-a")
		require.NoError(t, err)
		prev = r
	}

	_, err = l.Lineage(prev.PayloadHash, 2)
	require.ErrorIs(t, err, ledger.ErrDepthExceeded)
}

func TestAnchorBatchEmitsAnchorReceiptWithMerkleRoot(t *testing.T) {
	l, _ := newTestLedger(t)
	emitter := l.Emitter()

	r1, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 1}, "tenant-a")
	require.NoError(t, err)
	r2, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 2}, "tenant-a")
	require.NoError(t, err)

	anchor, err := l.AnchorBatch([]receipt.Receipt{r1, r2}, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, receipt.TypeAnchor, anchor.ReceiptType)
	require.Equal(t, 2, anchor.Payload["batch_size"])
	require.NotEmpty(t, anchor.Payload["merkle_root"])

	entries, err := l.QueryByType(receipt.TypeAnchor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestQueryByTimeRangeAndTenant(t *testing.T) {
	l, _ := newTestLedger(t)
	emitter := l.Emitter()

	_, err := emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 1}, "tenant-a")
	require.NoError(t, err)
	_, err = emitter.Emit(receipt.TypeIngest, map[string]interface{}{"n": 2}, "tenant-b")
	require.NoError(t, err)

	byTenant, err := l.QueryByTenant("tenant-a")
	require.NoError(t, err)
	require.Len(t, byTenant, 1)

	byTime, err := l.QueryByTimeRange(
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, byTime, 2)
}
