// Package memory provides in-memory store implementations, used by tests
// and by one-shot runs that do not need durability.
package memory

import (
	"context"
	"sort"
	"sync"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage"
)

// ReserveStore is an in-memory implementation of storage.ReserveStore.
type ReserveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.NetworkReserve // keyed by network
}

// NewReserveStore creates a new in-memory reserve store.
func NewReserveStore() *ReserveStore {
	return &ReserveStore{
		data: make(map[string]*domain.NetworkReserve),
	}
}

// Compile-time interface check.
var _ storage.ReserveStore = (*ReserveStore)(nil)

// UpsertReserve adds delta to the network's reserve, creating it if absent.
func (s *ReserveStore) UpsertReserve(_ context.Context, network string, delta float64, at int64) error {
	if network == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[network]
	if !exists {
		r = &domain.NetworkReserve{Network: network}
		s.data[network] = r
	}
	r.Amount += delta
	r.LastAttemptAt = at
	return nil
}

// GetReserve retrieves one network's reserve. Returns ErrNotFound if absent.
func (s *ReserveStore) GetReserve(_ context.Context, network string) (*domain.NetworkReserve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[network]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// ListReserves retrieves all reserves, ordered by network ASC.
func (s *ReserveStore) ListReserves(_ context.Context) ([]*domain.NetworkReserve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.NetworkReserve, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Network < result[j].Network
	})

	return result, nil
}
