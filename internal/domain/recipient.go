package domain

// Recipient is one payout target as supplied by the valuation collaborator.
// Addresses maps network identifier to the recipient's chain address on that
// network; networks without an entry simply exclude the recipient.
type Recipient struct {
	ID        string  // stable recipient identifier
	TargetUSD float64 // target share produced by the external fairness computation
	Addresses map[string]string
}

// AddressOn returns the recipient's address for a network, if any.
func (r Recipient) AddressOn(network string) (string, bool) {
	addr, ok := r.Addresses[network]
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}
