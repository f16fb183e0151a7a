package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/proofpack/go-proofpack/receipt"
)

// PostgresIndex is an alternative Index backend for ledgers too large
// to hold in one process's memory, grounded on
// Mindburn-Labs-helm/apps/helm-node's use of the same driver
// (lib/pq) for its own persisted record store. The in-memory index
// remains the default (ledger.NewInMemoryIndex); PostgresIndex is
// opt-in.
type PostgresIndex struct {
	db *sql.DB
}

// NewPostgresIndex opens db (already sql.Open("postgres", dsn)) and
// ensures the proofpack_entries table exists.
func NewPostgresIndex(db *sql.DB) (*PostgresIndex, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS proofpack_entries (
	payload_hash TEXT PRIMARY KEY,
	receipt_type TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	sequence BIGINT NOT NULL,
	parent_hash TEXT,
	payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS proofpack_entries_type_idx ON proofpack_entries (receipt_type);
CREATE INDEX IF NOT EXISTS proofpack_entries_tenant_idx ON proofpack_entries (tenant_id);
CREATE INDEX IF NOT EXISTS proofpack_entries_ts_idx ON proofpack_entries (ts);
`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ledger: create postgres schema: %w", err)
	}
	return &PostgresIndex{db: db}, nil
}

func (p *PostgresIndex) IndexEntry(e Entry) error {
	t, err := e.ParsedTime()
	if err != nil {
		return fmt.Errorf("ledger: parse entry timestamp: %w", err)
	}
	payloadJSON, err := payloadToJSON(e.Receipt.Payload)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(
		`INSERT INTO proofpack_entries
			(payload_hash, receipt_type, tenant_id, ts, sequence, parent_hash, payload)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		 ON CONFLICT (payload_hash) DO NOTHING`,
		e.Receipt.PayloadHash, string(e.Receipt.ReceiptType), e.Receipt.TenantID, t, e.Sequence, e.ParentHash, payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("ledger: index entry in postgres: %w", err)
	}
	return nil
}

func (p *PostgresIndex) ByDigest(payloadHash string) (Entry, bool, error) {
	row := p.db.QueryRow(
		`SELECT receipt_type, tenant_id, ts, sequence, COALESCE(parent_hash, ''), payload
		 FROM proofpack_entries WHERE payload_hash = $1`, payloadHash)
	e, err := scanEntry(row, payloadHash)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: query by digest: %w", err)
	}
	return e, true, nil
}

func (p *PostgresIndex) ByType(t receipt.Type) ([]Entry, error) {
	rows, err := p.db.Query(
		`SELECT payload_hash, receipt_type, tenant_id, ts, sequence, COALESCE(parent_hash, ''), payload
		 FROM proofpack_entries WHERE receipt_type = $1 ORDER BY sequence ASC`, string(t))
	if err != nil {
		return nil, fmt.Errorf("ledger: query by type: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (p *PostgresIndex) ByTimeRange(start, end time.Time) ([]Entry, error) {
	rows, err := p.db.Query(
		`SELECT payload_hash, receipt_type, tenant_id, ts, sequence, COALESCE(parent_hash, ''), payload
		 FROM proofpack_entries WHERE ts >= $1 AND ts <= $2 ORDER BY sequence ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("ledger: query by time range: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (p *PostgresIndex) ByTenant(tenant string) ([]Entry, error) {
	rows, err := p.db.Query(
		`SELECT payload_hash, receipt_type, tenant_id, ts, sequence, COALESCE(parent_hash, ''), payload
		 FROM proofpack_entries WHERE tenant_id = $1 ORDER BY sequence ASC`, tenant)
	if err != nil {
		return nil, fmt.Errorf("ledger: query by tenant: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (p *PostgresIndex) Parent(childDigest string) (string, bool, error) {
	row := p.db.QueryRow(`SELECT COALESCE(parent_hash, '') FROM proofpack_entries WHERE payload_hash = $1`, childDigest)
	var parent string
	if err := row.Scan(&parent); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ledger: query parent: %w", err)
	}
	return parent, parent != "", nil
}

func (p *PostgresIndex) Tenants() ([]string, error) {
	rows, err := p.db.Query(`SELECT DISTINCT tenant_id FROM proofpack_entries`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query tenants: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, fmt.Errorf("ledger: scan tenant: %w", err)
		}
		out = append(out, tenant)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner, digest string) (Entry, error) {
	var receiptType, tenantID, parentHash string
	var ts time.Time
	var sequence uint64
	var payloadJSON []byte
	if err := row.Scan(&receiptType, &tenantID, &ts, &sequence, &parentHash, &payloadJSON); err != nil {
		return Entry{}, err
	}
	return entryFromRow(digest, receiptType, tenantID, parentHash, ts, sequence, payloadJSON)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var digest, receiptType, tenantID, parentHash string
		var ts time.Time
		var sequence uint64
		var payloadJSON []byte
		if err := rows.Scan(&digest, &receiptType, &tenantID, &ts, &sequence, &parentHash, &payloadJSON); err != nil {
			return nil, fmt.Errorf("ledger: scan row: %w", err)
		}
		e, err := entryFromRow(digest, receiptType, tenantID, parentHash, ts, sequence, payloadJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func entryFromRow(digest, receiptType, tenantID, parentHash string, ts time.Time, sequence uint64, payloadJSON []byte) (Entry, error) {
	payload, err := payloadFromJSON(payloadJSON)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Receipt: receipt.Receipt{
			ReceiptType: receipt.Type(receiptType),
			TS:          ts.UTC().Format("2006-01-02T15:04:05.000000Z"),
			TenantID:    tenantID,
			PayloadHash: digest,
			Payload:     payload,
		},
		Sequence:   sequence,
		ParentHash: parentHash,
	}, nil
}
