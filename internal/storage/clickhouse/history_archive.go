package clickhouse

import (
	"context"
	"fmt"

	"multichain-distributor/internal/domain"
)

// HistoryArchive mirrors distribution records into the append-only
// distribution_history table.
type HistoryArchive struct {
	conn *Conn
}

// NewHistoryArchive creates a new HistoryArchive.
func NewHistoryArchive(conn *Conn) *HistoryArchive {
	return &HistoryArchive{conn: conn}
}

// NetworkTotals is one network's aggregated history.
type NetworkTotals struct {
	Network       string
	SentCount     uint64
	DeferredCount uint64
	FailedCount   uint64
	SentAmount    float64
	SentValueUSD  float64
}

// InsertBatch appends records to the archive. MergeTree does not enforce
// uniqueness; callers are expected to mirror each ledger record exactly once.
func (a *HistoryArchive) InsertBatch(ctx context.Context, records []*domain.DistributionRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO distribution_history (
			record_id, recipient_id, network, amount, value_usd,
			status, tx_ref, error_detail, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, rec := range records {
		err = batch.Append(
			rec.ID, rec.RecipientID, rec.Network, rec.Amount, rec.ValueUSD,
			string(rec.Status), rec.TxRef, rec.ErrorDetail, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// TotalsByNetwork aggregates the full history per network, ordered by
// network ASC.
func (a *HistoryArchive) TotalsByNetwork(ctx context.Context) ([]*NetworkTotals, error) {
	query := `
		SELECT
			network,
			countIf(status = 'SENT'),
			countIf(status = 'DEFERRED'),
			countIf(status = 'FAILED'),
			sumIf(amount, status = 'SENT'),
			sumIf(value_usd, status = 'SENT')
		FROM distribution_history
		GROUP BY network
		ORDER BY network ASC
	`

	rows, err := a.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []*NetworkTotals
	for rows.Next() {
		var t NetworkTotals
		err := rows.Scan(
			&t.Network, &t.SentCount, &t.DeferredCount, &t.FailedCount,
			&t.SentAmount, &t.SentValueUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan totals row: %w", err)
		}
		totals = append(totals, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals rows: %w", err)
	}

	return totals, nil
}

// GetByNetwork retrieves archived records for a network, ordered by
// created_at ASC.
func (a *HistoryArchive) GetByNetwork(ctx context.Context, network string) ([]*domain.DistributionRecord, error) {
	query := `
		SELECT record_id, recipient_id, network, amount, value_usd,
		       status, tx_ref, error_detail, created_at
		FROM distribution_history
		WHERE network = ?
		ORDER BY created_at ASC, record_id ASC
	`

	rows, err := a.conn.Query(ctx, query, network)
	if err != nil {
		return nil, fmt.Errorf("query by network: %w", err)
	}
	defer rows.Close()

	var records []*domain.DistributionRecord
	for rows.Next() {
		var rec domain.DistributionRecord
		var status string
		err := rows.Scan(
			&rec.ID, &rec.RecipientID, &rec.Network, &rec.Amount, &rec.ValueUSD,
			&status, &rec.TxRef, &rec.ErrorDetail, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.Status = domain.Status(status)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return records, nil
}
