package memory

import (
	"context"
	"errors"
	"testing"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/storage"
)

func testRecord(recipient, network string, createdAt int64) *domain.DistributionRecord {
	return &domain.DistributionRecord{
		RecipientID: recipient,
		Network:     network,
		Amount:      1.5,
		ValueUSD:    100,
		Status:      domain.StatusSent,
		TxRef:       "0xabc",
		CreatedAt:   createdAt,
	}
}

func TestRecordStore_AppendAssignsID(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	rec := testRecord("alice", "ethereum", 1000)
	if err := s.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("append did not assign an ID")
	}

	got, err := s.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RecipientID != "alice" || got.Status != domain.StatusSent {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestRecordStore_ReAppendRejected(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	rec := testRecord("alice", "ethereum", 1000)
	s.Append(ctx, rec)
	if err := s.Append(ctx, rec); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey on re-append, got %v", err)
	}
}

func TestRecordStore_InvalidInput(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	if err := s.Append(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil record: expected ErrInvalidInput, got %v", err)
	}
	if err := s.Append(ctx, &domain.DistributionRecord{Network: "ethereum"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing recipient: expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordStore_GetByIDMissing(t *testing.T) {
	s := NewRecordStore()
	if _, err := s.GetByID(context.Background(), 404); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordStore_QueriesOrdered(t *testing.T) {
	s := NewRecordStore()
	ctx := context.Background()

	s.Append(ctx, testRecord("alice", "bitcoin", 3000))
	s.Append(ctx, testRecord("alice", "ethereum", 1000))
	s.Append(ctx, testRecord("bob", "ethereum", 2000))

	byRecipient, err := s.GetByRecipient(ctx, "alice")
	if err != nil {
		t.Fatalf("get by recipient: %v", err)
	}
	if len(byRecipient) != 2 || byRecipient[0].CreatedAt != 1000 || byRecipient[1].CreatedAt != 3000 {
		t.Errorf("unexpected recipient order: %+v", byRecipient)
	}

	byNetwork, err := s.GetByNetwork(ctx, "ethereum")
	if err != nil {
		t.Fatalf("get by network: %v", err)
	}
	if len(byNetwork) != 2 || byNetwork[0].CreatedAt != 1000 || byNetwork[1].CreatedAt != 2000 {
		t.Errorf("unexpected network order: %+v", byNetwork)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 || all[0].CreatedAt != 1000 || all[2].CreatedAt != 3000 {
		t.Errorf("unexpected full order: %+v", all)
	}
}
