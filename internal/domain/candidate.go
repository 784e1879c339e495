package domain

// DistributionCandidate is one recipient's desired payout on one network
// context. Amount is in the context's token units and is always positive;
// zero and negative requests are filtered before candidates are built.
type DistributionCandidate struct {
	RecipientID string
	Address     string  // recipient chain address resolved by the adapter
	Amount      float64 // requested token amount
	ValueUSD    float64 // USD equivalent used for threshold comparison
}
