package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage"
)

// RecordStore implements storage.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// Append adds a new record and assigns its ID from the sequence.
func (s *RecordStore) Append(ctx context.Context, rec *domain.DistributionRecord) error {
	if rec == nil || rec.RecipientID == "" || rec.Network == "" {
		return storage.ErrInvalidInput
	}
	if rec.ID != 0 {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO distribution_records (
			recipient_id, network, amount, value_usd,
			status, tx_ref, error_detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		rec.RecipientID, rec.Network, rec.Amount, rec.ValueUSD,
		string(rec.Status), rec.TxRef, rec.ErrorDetail, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append distribution record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *RecordStore) GetByID(ctx context.Context, id int64) (*domain.DistributionRecord, error) {
	query := selectRecords + ` WHERE id = $1`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get record by id: %w", err)
	}
	return rec, nil
}

// GetByRecipient retrieves all records for a recipient, ordered by created_at ASC.
func (s *RecordStore) GetByRecipient(ctx context.Context, recipientID string) ([]*domain.DistributionRecord, error) {
	query := selectRecords + ` WHERE recipient_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("get records by recipient: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByNetwork retrieves all records for a network, ordered by created_at ASC.
func (s *RecordStore) GetByNetwork(ctx context.Context, network string) ([]*domain.DistributionRecord, error) {
	query := selectRecords + ` WHERE network = $1 ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, network)
	if err != nil {
		return nil, fmt.Errorf("get records by network: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetAll retrieves every record, ordered by created_at ASC.
func (s *RecordStore) GetAll(ctx context.Context) ([]*domain.DistributionRecord, error) {
	query := selectRecords + ` ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

const selectRecords = `
	SELECT id, recipient_id, network, amount, value_usd,
	       status, tx_ref, error_detail, created_at
	FROM distribution_records
`

// scanRecord scans a single row into a DistributionRecord.
func scanRecord(row pgx.Row) (*domain.DistributionRecord, error) {
	var rec domain.DistributionRecord
	var status string

	err := row.Scan(
		&rec.ID, &rec.RecipientID, &rec.Network, &rec.Amount, &rec.ValueUSD,
		&status, &rec.TxRef, &rec.ErrorDetail, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.Status(status)
	return &rec, nil
}

// scanRecords scans multiple rows into a slice of DistributionRecord.
func scanRecords(rows pgx.Rows) ([]*domain.DistributionRecord, error) {
	var records []*domain.DistributionRecord

	for rows.Next() {
		var rec domain.DistributionRecord
		var status string

		err := rows.Scan(
			&rec.ID, &rec.RecipientID, &rec.Network, &rec.Amount, &rec.ValueUSD,
			&status, &rec.TxRef, &rec.ErrorDetail, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}

		rec.Status = domain.Status(status)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}

	return records, nil
}
