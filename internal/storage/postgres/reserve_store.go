package postgres

import (
	"context"
	"fmt"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage"
)

// ReserveStore implements storage.ReserveStore using PostgreSQL.
type ReserveStore struct {
	pool *Pool
}

// NewReserveStore creates a new ReserveStore.
func NewReserveStore(pool *Pool) *ReserveStore {
	return &ReserveStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReserveStore = (*ReserveStore)(nil)

// UpsertReserve adds delta to the network's reserve, creating the row if
// absent. The addition happens inside the statement, so concurrent cycles
// cannot lose an increment.
func (s *ReserveStore) UpsertReserve(ctx context.Context, network string, delta float64, at int64) error {
	if network == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO network_reserves (network, amount, last_attempt_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (network) DO UPDATE SET
			amount = network_reserves.amount + EXCLUDED.amount,
			last_attempt_at = EXCLUDED.last_attempt_at
	`

	if _, err := s.pool.Exec(ctx, query, network, delta, at); err != nil {
		return fmt.Errorf("upsert reserve: %w", err)
	}
	return nil
}

// GetReserve retrieves one network's reserve. Returns ErrNotFound if absent.
func (s *ReserveStore) GetReserve(ctx context.Context, network string) (*domain.NetworkReserve, error) {
	query := `
		SELECT network, amount, last_attempt_at
		FROM network_reserves
		WHERE network = $1
	`

	var r domain.NetworkReserve
	err := s.pool.QueryRow(ctx, query, network).Scan(&r.Network, &r.Amount, &r.LastAttemptAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get reserve: %w", err)
	}
	return &r, nil
}

// ListReserves retrieves all reserves, ordered by network ASC.
func (s *ReserveStore) ListReserves(ctx context.Context) ([]*domain.NetworkReserve, error) {
	query := `
		SELECT network, amount, last_attempt_at
		FROM network_reserves
		ORDER BY network ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reserves: %w", err)
	}
	defer rows.Close()

	var reserves []*domain.NetworkReserve
	for rows.Next() {
		var r domain.NetworkReserve
		if err := rows.Scan(&r.Network, &r.Amount, &r.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("scan reserve row: %w", err)
		}
		reserves = append(reserves, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reserve rows: %w", err)
	}

	return reserves, nil
}
