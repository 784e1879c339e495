package domain

// TransferEstimate is the result of a pre-send check. A non-empty DeferReason
// means the transfer must not be attempted this cycle (invalid address, amount
// below fee, and so on); otherwise FeeCost holds the expected fee in native
// token units.
type TransferEstimate struct {
	FeeCost     float64
	DeferReason string
}

// Deferred reports whether the estimate rejected the transfer.
func (e TransferEstimate) Deferred() bool {
	return e.DeferReason != ""
}
