package offline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofpack/go-proofpack/merkle"
	"github.com/proofpack/go-proofpack/offline"
	"github.com/proofpack/go-proofpack/receipt"
	"github.com/proofpack/go-proofpack/stoprule"
)

type memSpool struct {
	lines []string
	state offline.State
}

func (m *memSpool) AppendLine(line []byte) error {
	m.lines = append(m.lines, string(line))
	return nil
}
func (m *memSpool) ReadState() (offline.State, error) { return m.state, nil }
func (m *memSpool) WriteState(s offline.State) error   { m.state = s; return nil }

type fakeLedger struct {
	ingested map[string]receipt.Receipt
}

func newFakeLedger() *fakeLedger { return &fakeLedger{ingested: map[string]receipt.Receipt{}} }

func (f *fakeLedger) Ingest(r receipt.Receipt) error {
	f.ingested[r.PayloadHash] = r
	return nil
}

func (f *fakeLedger) Exists(digest string) bool {
	_, ok := f.ingested[digest]
	return ok
}

func (f *fakeLedger) AnchorBatch(receipts []receipt.Receipt, tenant string) (receipt.Receipt, error) {
	root, err := merkle.RootOfReceipts(receipts)
	if err != nil {
		return receipt.Receipt{}, err
	}
	emitter := receipt.NewEmitter(receipt.NewRegistry(), f)
	return emitter.Emit(receipt.TypeAnchor, map[string]interface{}{
		"merkle_root": root,
		"batch_size":  int64(len(receipts)),
	}, tenant)
}

func newTestQueue(t *testing.T) (*offline.Queue, *receipt.Emitter, *stoprule.Controller, *fakeLedger) {
	t.Helper()
	spool := &memSpool{}
	q := offline.NewQueue("tenant-a", spool)
	registry := receipt.NewRegistry()
	offline.RegisterTypes(registry)
	ledger := newFakeLedger()

	// localEmitter stamps offline entries without forwarding them
	// anywhere; syncEmitter is the one whose Sink is the main ledger,
	// used only for StopRule and post-sync receipts.
	localEmitter := receipt.NewEmitter(registry, nil)
	syncEmitter := receipt.NewEmitter(registry, ledger)
	controller := stoprule.NewController(syncEmitter, nil)
	return q, localEmitter, controller, ledger
}

func TestEnqueueUpdatesLocalRootIncrementally(t *testing.T) {
	q, emitter, _, _ := newTestQueue(t)

	e1, err := q.Enqueue(emitter, receipt.TypeIngest, map[string]interface{}{"n": int64(1)})
	require.NoError(t, err)
	r1, err := q.LocalRoot()
	require.NoError(t, err)
	require.Equal(t, e1.LocalRoot, r1)

	e2, err := q.Enqueue(emitter, receipt.TypeIngest, map[string]interface{}{"n": int64(2)})
	require.NoError(t, err)
	r2, err := q.LocalRoot()
	require.NoError(t, err)
	require.Equal(t, e2.LocalRoot, r2)
	require.NotEqual(t, r1, r2)
	require.Equal(t, 2, q.Size())
}

func TestPeekReturnsOldestFirst(t *testing.T) {
	q, emitter, _, _ := newTestQueue(t)
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(emitter, receipt.TypeIngest, map[string]interface{}{"n": int64(i)})
		require.NoError(t, err)
	}
	entries := q.Peek(2)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].LocalSequence)
	require.Equal(t, uint64(2), entries[1].LocalSequence)
}

func TestSyncClearsQueueOnSuccess(t *testing.T) {
	q, emitter, controller, ledger := newTestQueue(t)
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(emitter, receipt.TypeIngest, map[string]interface{}{"n": int64(i)})
		require.NoError(t, err)
	}
	preSyncRoot, err := q.LocalRoot()
	require.NoError(t, err)

	result, err := offline.Sync(context.Background(), q, ledger, controller, ledger.AnchorBatch, nil, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, 3, result.SyncedCount)
	require.Equal(t, preSyncRoot, result.Root)
	require.Equal(t, 0, q.Size())

	status, err := q.Status()
	require.NoError(t, err)
	require.Equal(t, 0, status.PendingCount)
	require.NotNil(t, status.LastSyncTime)
}

func TestSyncOnEmptyQueueIsNoop(t *testing.T) {
	q, _, controller, ledger := newTestQueue(t)
	result, err := offline.Sync(context.Background(), q, ledger, controller, ledger.AnchorBatch, nil, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, 0, result.SyncedCount)
}

func TestBloomDedupNeverFalseNegative(t *testing.T) {
	b := offline.NewBloomDedup(100, 0.01)
	digests := []string{"aaa", "bbb", "ccc"}
	for _, d := range digests {
		b.Insert(d)
	}
	for _, d := range digests {
		require.True(t, b.MaybeContains(d))
	}
	require.False(t, b.MaybeContains("zzz-not-inserted"))
}

func TestConnectivityProbeUnreachableEndpoint(t *testing.T) {
	probe := offline.NewWebSocketProbe("ws://127.0.0.1:1/unreachable")
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.False(t, probe.Reachable(ctx))
}
