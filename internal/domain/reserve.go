package domain

// NetworkReserve is the accumulated, not-yet-sent token amount for one
// network. One row per network; mutated only by additive upserts at the end
// of a cycle. The spendable balance for a cycle is
// wallet balance − dynamic fee reserve + Amount.
type NetworkReserve struct {
	Network       string
	Amount        float64 // accumulated token units
	LastAttemptAt int64   // Unix timestamp in milliseconds of the last distribution attempt
}
