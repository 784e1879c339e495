// Package storage defines the persistence contracts for the distribution
// engine: a mutable per-network reserve ledger and an append-only record of
// every distribution attempt.
package storage

import (
	"context"

	"multichain-distributor/internal/domain"
)

// ReserveStore tracks the withheld reserve per network. Reserves accumulate
// across cycles until liquidity or fee conditions allow them to be paid out.
type ReserveStore interface {
	// UpsertReserve adds delta to the network's reserve, creating the row if
	// it does not exist. Negative deltas draw the reserve down. at is the
	// attempt timestamp in Unix milliseconds and always overwrites
	// last_attempt_at, even for a zero delta.
	UpsertReserve(ctx context.Context, network string, delta float64, at int64) error

	// GetReserve retrieves one network's reserve. Returns ErrNotFound if the
	// network has never been written.
	GetReserve(ctx context.Context, network string) (*domain.NetworkReserve, error)

	// ListReserves retrieves all reserves, ordered by network ASC.
	ListReserves(ctx context.Context) ([]*domain.NetworkReserve, error)
}

// RecordStore is the append-only distribution ledger. Records are immutable
// once written; a SENT record stands even if later reconciliation disagrees.
type RecordStore interface {
	// Append adds a new record and assigns rec.ID. Returns ErrDuplicateKey
	// if rec already carries an ID, which means it was persisted before.
	Append(ctx context.Context, rec *domain.DistributionRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.DistributionRecord, error)

	// GetByRecipient retrieves all records for a recipient, ordered by
	// created_at ASC.
	GetByRecipient(ctx context.Context, recipientID string) ([]*domain.DistributionRecord, error)

	// GetByNetwork retrieves all records for a network, ordered by
	// created_at ASC.
	GetByNetwork(ctx context.Context, network string) ([]*domain.DistributionRecord, error)

	// GetAll retrieves every record, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.DistributionRecord, error)
}
