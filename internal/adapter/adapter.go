// Package adapter defines the contract every chain adapter implements.
// The orchestrator is written against this interface only; all chain-specific
// behavior (wire formats, signing, fee models, address formats) lives behind
// it. Adding a chain means adding one more implementation, nothing else.
package adapter

import (
	"context"

	"multichain-distributor/internal/domain"
)

// Adapter normalizes one chain protocol behind the distribution capability
// set. Implementations own their chain clients exclusively: one adapter
// instance serves one network identifier and is safe to reuse across cycles,
// but must never be shared across network identifiers.
type Adapter interface {
	// Kind returns the adapter's execution model tag.
	Kind() domain.AdapterKind

	// DiscoverContexts returns the network contexts this adapter can
	// distribute on given the requested token kinds. A disabled or
	// misconfigured network yields zero contexts and may return an error
	// that the caller records as a warning; it never fails the cycle.
	// Token kinds the adapter does not support are silently skipped.
	DiscoverContexts(ctx context.Context, prefs domain.TokenPreferences) ([]domain.NetworkContext, error)

	// WalletBalance returns the distributable token balance of the
	// adapter's own signing account, in token units. An error means the
	// network is temporarily unavailable and the caller skips it for the
	// cycle.
	WalletBalance(ctx context.Context, nc domain.NetworkContext) (float64, error)

	// DynamicFeeReserve returns the headroom to keep for future fees, in
	// token units of the distributed token (zero when fees are paid in a
	// different token). Never fails: implementations return a conservative
	// constant when live fee data is unavailable.
	DynamicFeeReserve(ctx context.Context, nc domain.NetworkContext) float64

	// ResolveRecipientAddress returns the recipient's address on this
	// context's network. Pure lookup, no I/O; a missing address excludes
	// the recipient from this network without being an error.
	ResolveRecipientAddress(r domain.Recipient, nc domain.NetworkContext) (string, bool)

	// EstimateTransfer validates the destination and prices the transfer.
	// Obviously invalid addresses and amounts that would not exceed the
	// fee come back as a deferral, not an error. An error means the
	// estimation endpoint itself failed.
	EstimateTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (domain.TransferEstimate, error)

	// SendTransfer broadcasts the payment and returns a transaction
	// reference. Errors indicate broadcast rejection (bad signature,
	// sequence conflict, insufficient funds at submission time). Called at
	// most once per candidate per cycle; never retried silently.
	SendTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (string, error)
}
