package config

import (
	"encoding/json"
	"fmt"
	"os"

	"multichain-distributor/internal/domain"
)

// recipientFile is the on-disk shape of one recipient entry.
type recipientFile struct {
	ID        string            `json:"id"`
	TargetUSD float64           `json:"target_usd"`
	Addresses map[string]string `json:"addresses"`
}

// LoadRecipients reads the recipient list produced by the valuation
// collaborator. Entries with an empty ID or non-positive target are
// rejected; duplicate IDs are rejected so the ledger stays unambiguous.
func LoadRecipients(path string) ([]domain.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipients file: %w", err)
	}

	var entries []recipientFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse recipients file: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	recipients := make([]domain.Recipient, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("recipient %d: missing id", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("recipient %q: duplicate id", e.ID)
		}
		seen[e.ID] = true
		if e.TargetUSD <= 0 {
			return nil, fmt.Errorf("recipient %q: target_usd must be positive", e.ID)
		}
		recipients = append(recipients, domain.Recipient{
			ID:        e.ID,
			TargetUSD: e.TargetUSD,
			Addresses: e.Addresses,
		})
	}
	return recipients, nil
}
