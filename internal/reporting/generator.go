package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage"
)

// Generator builds history reports from the ledger and reserve stores.
type Generator struct {
	records  storage.RecordStore
	reserves storage.ReserveStore
}

// NewGenerator creates a new Generator.
func NewGenerator(records storage.RecordStore, reserves storage.ReserveStore) *Generator {
	return &Generator{records: records, reserves: reserves}
}

// Generate produces the full history report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: time.Now().UTC()}

	reserves, err := g.reserves.ListReserves(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reserves: %w", err)
	}
	for _, r := range reserves {
		report.Reserves = append(report.Reserves, ReserveRow{
			Network:       r.Network,
			Amount:        r.Amount,
			LastAttemptAt: r.LastAttemptAt,
		})
	}

	records, err := g.records.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	report.Networks = summarize(records)

	return report, nil
}

// RecipientHistory returns one recipient's ledger rows, ordered by
// created_at ASC.
func (g *Generator) RecipientHistory(ctx context.Context, recipientID string) ([]*domain.DistributionRecord, error) {
	records, err := g.records.GetByRecipient(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("load recipient history: %w", err)
	}
	return records, nil
}

// NetworkHistory returns one network's ledger rows, ordered by
// created_at ASC.
func (g *Generator) NetworkHistory(ctx context.Context, network string) ([]*domain.DistributionRecord, error) {
	records, err := g.records.GetByNetwork(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("load network history: %w", err)
	}
	return records, nil
}

// summarize folds ledger rows into per-network totals, ordered by network ASC.
func summarize(records []*domain.DistributionRecord) []NetworkSummaryRow {
	byNetwork := make(map[string]*NetworkSummaryRow)

	for _, rec := range records {
		row, ok := byNetwork[rec.Network]
		if !ok {
			row = &NetworkSummaryRow{Network: rec.Network}
			byNetwork[rec.Network] = row
		}

		switch rec.Status {
		case domain.StatusSent:
			row.SentCount++
			row.SentAmount += rec.Amount
			row.SentValueUSD += rec.ValueUSD
		case domain.StatusDeferred:
			row.DeferredCount++
		case domain.StatusFailed:
			row.FailedCount++
		}
	}

	rows := make([]NetworkSummaryRow, 0, len(byNetwork))
	for _, row := range byNetwork {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Network < rows[j].Network })
	return rows
}
