// Package stellar implements the adapter contract for Stellar-style
// federated ledgers over the Horizon REST API. Payment envelopes are built
// and signed by a remote signer service; Horizon supplies balances, fee
// stats, and transaction submission.
package stellar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/rpc"
)

const (
	// stroopsPerLumen is the base-unit scale (7 decimals).
	stroopsPerLumen = 10_000_000

	// defaultBaseFee is the protocol minimum fee in stroops.
	defaultBaseFee = 100

	// feeHeadroomPayments is how many payments the fee reserve covers.
	feeHeadroomPayments = 10
)

// Config holds one Stellar network's configuration.
type Config struct {
	Enabled        bool
	Network        string // e.g. "stellar"
	NetworkName    string
	Endpoint       string // Horizon base URL
	SignerEndpoint string // remote signer service base URL
	WalletAddress  string // G... account ID
	Symbol         string // e.g. "XLM"
	Decimals       int32  // 7 unless overridden

	// DefaultFeeStroops is the fallback per-operation fee when /fee_stats
	// is unavailable.
	DefaultFeeStroops int64
}

// Adapter implements adapter.Adapter for federated ledgers.
type Adapter struct {
	cfg     Config
	horizon *rpc.RESTClient
	signer  *rpc.RESTClient
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a Stellar adapter.
func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg}
	if cfg.Endpoint != "" {
		a.horizon = rpc.NewRESTClient(cfg.Endpoint, 0)
	}
	if cfg.SignerEndpoint != "" {
		a.signer = rpc.NewRESTClient(cfg.SignerEndpoint, 0)
	}
	return a
}

// Kind returns the adapter's execution model tag.
func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterFederated
}

// DiscoverContexts offers the native lumen only.
func (a *Adapter) DiscoverContexts(_ context.Context, prefs domain.TokenPreferences) ([]domain.NetworkContext, error) {
	if !a.cfg.Enabled {
		return nil, nil
	}
	if a.cfg.Endpoint == "" || a.cfg.SignerEndpoint == "" || a.cfg.WalletAddress == "" {
		return nil, fmt.Errorf("stellar %s: enabled but endpoint, signer, or wallet missing", a.cfg.Network)
	}
	if !prefs.Wants(domain.TokenNative) {
		return nil, nil
	}

	decimals := a.cfg.Decimals
	if decimals == 0 {
		decimals = 7
	}

	nc := domain.NetworkContext{
		Kind:           domain.AdapterFederated,
		Network:        a.cfg.Network,
		NetworkName:    a.cfg.NetworkName,
		TokenKind:      domain.TokenNative,
		TokenSymbol:    a.cfg.Symbol,
		TokenDecimals:  decimals,
		NativeSymbol:   a.cfg.Symbol,
		NativeDecimals: decimals,
		WalletAddress:  a.cfg.WalletAddress,
	}
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	return []domain.NetworkContext{nc}, nil
}

// account is the subset of Horizon's account resource the adapter reads.
type account struct {
	Sequence string `json:"sequence"`
	Balances []struct {
		AssetType string `json:"asset_type"`
		Balance   string `json:"balance"`
	} `json:"balances"`
}

// WalletBalance returns the signing account's native balance.
func (a *Adapter) WalletBalance(ctx context.Context, nc domain.NetworkContext) (float64, error) {
	acct, err := a.account(ctx)
	if err != nil {
		return 0, fmt.Errorf("stellar %s: get account: %w", nc.Network, err)
	}
	for _, b := range acct.Balances {
		if b.AssetType != "native" {
			continue
		}
		bal, perr := strconv.ParseFloat(b.Balance, 64)
		if perr != nil {
			return 0, fmt.Errorf("stellar %s: parse balance %q: %w", nc.Network, b.Balance, perr)
		}
		return bal, nil
	}
	return 0, fmt.Errorf("stellar %s: account has no native balance entry", nc.Network)
}

func (a *Adapter) account(ctx context.Context) (*account, error) {
	var acct account
	if err := a.horizon.GetJSON(ctx, "/accounts/"+a.cfg.WalletAddress, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// DynamicFeeReserve keeps headroom for feeHeadroomPayments payments at the
// median charged fee.
func (a *Adapter) DynamicFeeReserve(ctx context.Context, _ domain.NetworkContext) float64 {
	return float64(a.feeStroops(ctx)) * feeHeadroomPayments / stroopsPerLumen
}

// feeStroops returns the median charged fee from /fee_stats, or the
// configured (or protocol-minimum) fallback.
func (a *Adapter) feeStroops(ctx context.Context) int64 {
	var stats struct {
		FeeCharged struct {
			P50 string `json:"p50"`
		} `json:"fee_charged"`
	}
	if err := a.horizon.GetJSON(ctx, "/fee_stats", &stats); err == nil {
		if fee, perr := strconv.ParseInt(stats.FeeCharged.P50, 10, 64); perr == nil && fee > 0 {
			return fee
		}
	}
	if a.cfg.DefaultFeeStroops > 0 {
		return a.cfg.DefaultFeeStroops
	}
	return defaultBaseFee
}

// ResolveRecipientAddress returns the recipient's address on this network.
func (a *Adapter) ResolveRecipientAddress(r domain.Recipient, nc domain.NetworkContext) (string, bool) {
	return r.AddressOn(nc.Network)
}

// EstimateTransfer validates the strkey destination and prices the payment.
func (a *Adapter) EstimateTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (domain.TransferEstimate, error) {
	if _, err := DecodeAccountID(addr); err != nil {
		return domain.TransferEstimate{DeferReason: fmt.Sprintf("invalid Stellar address %q: %v", addr, err)}, nil
	}

	fee := float64(a.feeStroops(ctx)) / stroopsPerLumen
	if amount <= fee {
		return domain.TransferEstimate{
			DeferReason: fmt.Sprintf("amount %g %s does not exceed estimated fee %g", amount, nc.TokenSymbol, fee),
		}, nil
	}
	return domain.TransferEstimate{FeeCost: fee}, nil
}

// SendTransfer fetches the account sequence, has the signer build a signed
// payment envelope, and submits it to Horizon. Horizon answers failed
// submissions with a 400 carrying result codes; those are rejections.
func (a *Adapter) SendTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (string, error) {
	acct, err := a.account(ctx)
	if err != nil {
		return "", fmt.Errorf("stellar %s: sequence: %w", nc.Network, err)
	}

	signReq := map[string]interface{}{
		"source":      a.cfg.WalletAddress,
		"destination": addr,
		"amount":      strconv.FormatFloat(amount, 'f', int(nc.TokenDecimals), 64),
		"sequence":    acct.Sequence,
		"fee":         a.feeStroops(ctx),
	}
	var signResp struct {
		TxEnvelope string `json:"tx_envelope"` // base64 XDR
	}
	if err := a.signer.PostJSON(ctx, "/v1/sign/payment", signReq, &signResp); err != nil {
		return "", fmt.Errorf("stellar %s: sign: %w", nc.Network, err)
	}

	form := "tx=" + url.QueryEscape(signResp.TxEnvelope)
	var submitResp struct {
		Hash string `json:"hash"`
	}
	if err := a.horizon.PostForm(ctx, "/transactions", form, &submitResp); err != nil {
		var httpErr *rpc.HTTPError
		if errors.As(err, &httpErr) {
			return "", fmt.Errorf("stellar %s: submission rejected: %s", nc.Network, httpErr.Body)
		}
		return "", fmt.Errorf("stellar %s: submit: %w", nc.Network, err)
	}
	if submitResp.Hash == "" {
		return "", fmt.Errorf("stellar %s: submission returned no hash", nc.Network)
	}

	return submitResp.Hash, nil
}
