// Package reporting renders read-only projections of the distribution
// ledger: reserve snapshots, per-network history summaries, and per-cycle
// results.
package reporting

import "time"

// Report is the queryable-history projection over the ledger store.
type Report struct {
	GeneratedAt time.Time

	// Reserves is the current per-network reserve snapshot, ordered by
	// network ASC.
	Reserves []ReserveRow

	// Networks summarizes the full distribution history per network,
	// ordered by network ASC.
	Networks []NetworkSummaryRow
}

// ReserveRow is one network's reserve snapshot.
type ReserveRow struct {
	Network       string
	Amount        float64
	LastAttemptAt int64 // Unix ms, 0 if never attempted
}

// NetworkSummaryRow aggregates one network's distribution history.
type NetworkSummaryRow struct {
	Network       string
	SentCount     int
	DeferredCount int
	FailedCount   int
	SentAmount    float64
	SentValueUSD  float64
}
