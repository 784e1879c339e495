package memory

import (
	"context"
	"sort"
	"sync"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage"
)

// RecordStore is an in-memory implementation of storage.RecordStore.
type RecordStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.DistributionRecord // keyed by record ID
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		data: make(map[int64]*domain.DistributionRecord),
	}
}

// Compile-time interface check.
var _ storage.RecordStore = (*RecordStore)(nil)

// Append adds a new record and assigns its ID.
func (s *RecordStore) Append(_ context.Context, rec *domain.DistributionRecord) error {
	if rec == nil || rec.RecipientID == "" || rec.Network == "" {
		return storage.ErrInvalidInput
	}
	if rec.ID != 0 {
		return storage.ErrDuplicateKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	rec.ID = s.nextID

	copy := *rec
	s.data[rec.ID] = &copy
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *RecordStore) GetByID(_ context.Context, id int64) (*domain.DistributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *rec
	return &copy, nil
}

// GetByRecipient retrieves all records for a recipient, ordered by created_at ASC.
func (s *RecordStore) GetByRecipient(_ context.Context, recipientID string) ([]*domain.DistributionRecord, error) {
	return s.filter(func(r *domain.DistributionRecord) bool {
		return r.RecipientID == recipientID
	}), nil
}

// GetByNetwork retrieves all records for a network, ordered by created_at ASC.
func (s *RecordStore) GetByNetwork(_ context.Context, network string) ([]*domain.DistributionRecord, error) {
	return s.filter(func(r *domain.DistributionRecord) bool {
		return r.Network == network
	}), nil
}

// GetAll retrieves every record, ordered by created_at ASC.
func (s *RecordStore) GetAll(_ context.Context) ([]*domain.DistributionRecord, error) {
	return s.filter(func(*domain.DistributionRecord) bool { return true }), nil
}

func (s *RecordStore) filter(keep func(*domain.DistributionRecord) bool) []*domain.DistributionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DistributionRecord
	for _, rec := range s.data {
		if keep(rec) {
			copy := *rec
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result
}
