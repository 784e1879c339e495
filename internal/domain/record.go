package domain

// Status is the terminal state of one distribution attempt.
type Status string

const (
	StatusSent     Status = "SENT"
	StatusDeferred Status = "DEFERRED"
	StatusFailed   Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

// DistributionRecord is the append-only audit trail of one attempted payout.
// Exactly one record is created per (recipient, network, cycle); records are
// never mutated, corrections are new records.
type DistributionRecord struct {
	ID          int64  // assigned by the store
	RecipientID string
	Network     string
	Amount      float64 // token units
	ValueUSD    float64
	Status      Status
	TxRef       string // transaction reference, present iff SENT
	ErrorDetail string // present iff FAILED
	CreatedAt   int64  // Unix timestamp in milliseconds
}

// Outcome is the in-memory per-candidate result of one cycle, before it is
// flattened into a DistributionRecord. Reason carries the defer reason for
// DEFERRED outcomes and the error detail for FAILED ones.
type Outcome struct {
	RecipientID string
	Network     string
	Status      Status
	Amount      float64
	ValueUSD    float64
	TxRef       string
	Reason      string
}

// Record converts an outcome into its persistent form.
func (o Outcome) Record(now int64) *DistributionRecord {
	rec := &DistributionRecord{
		RecipientID: o.RecipientID,
		Network:     o.Network,
		Amount:      o.Amount,
		ValueUSD:    o.ValueUSD,
		Status:      o.Status,
		TxRef:       o.TxRef,
		CreatedAt:   now,
	}
	if o.Status == StatusFailed {
		rec.ErrorDetail = o.Reason
	}
	return rec
}
