// Package substrate implements the adapter contract for Substrate chains.
// State queries and extrinsic submission go through an api-sidecar REST
// endpoint; extrinsic construction and signing are delegated to a remote
// signer service. Fees on these chains are dominated by the fixed base fee,
// so estimation uses the configured per-transfer fee rather than building a
// throwaway extrinsic per estimate.
package substrate

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/rpc"
)

// feeHeadroomPayments is how many transfers the fee reserve covers.
const feeHeadroomPayments = 10

// Config holds one Substrate network's configuration.
type Config struct {
	Enabled        bool
	Network        string // e.g. "polkadot"
	NetworkName    string
	Endpoint       string // api-sidecar REST base URL
	SignerEndpoint string // remote signer service base URL
	WalletAddress  string
	Symbol         string // e.g. "DOT"
	Decimals       int32  // 10 for Polkadot

	// SS58Prefix is the network's address type byte (0 for Polkadot,
	// 2 for Kusama, 42 generic). Negative disables the prefix check.
	SS58Prefix int

	// TransferFee is the expected fee of one balance transfer in token
	// units; also the conservative default for the dynamic reserve.
	TransferFee float64
}

// Adapter implements adapter.Adapter for extrinsic-based chains.
type Adapter struct {
	cfg     Config
	sidecar *rpc.RESTClient
	signer  *rpc.RESTClient
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a Substrate adapter.
func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg}
	if cfg.Endpoint != "" {
		a.sidecar = rpc.NewRESTClient(cfg.Endpoint, 0)
	}
	if cfg.SignerEndpoint != "" {
		a.signer = rpc.NewRESTClient(cfg.SignerEndpoint, 0)
	}
	return a
}

// Kind returns the adapter's execution model tag.
func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterSubstrate
}

// DiscoverContexts offers the native token only.
func (a *Adapter) DiscoverContexts(_ context.Context, prefs domain.TokenPreferences) ([]domain.NetworkContext, error) {
	if !a.cfg.Enabled {
		return nil, nil
	}
	if a.cfg.Endpoint == "" || a.cfg.SignerEndpoint == "" || a.cfg.WalletAddress == "" {
		return nil, fmt.Errorf("substrate %s: enabled but endpoint, signer, or wallet missing", a.cfg.Network)
	}
	if !prefs.Wants(domain.TokenNative) {
		return nil, nil
	}

	decimals := a.cfg.Decimals
	if decimals == 0 {
		decimals = 10
	}

	nc := domain.NetworkContext{
		Kind:           domain.AdapterSubstrate,
		Network:        a.cfg.Network,
		NetworkName:    a.cfg.NetworkName,
		TokenKind:      domain.TokenNative,
		TokenSymbol:    a.cfg.Symbol,
		TokenDecimals:  decimals,
		NativeSymbol:   a.cfg.Symbol,
		NativeDecimals: decimals,
		WalletAddress:  a.cfg.WalletAddress,
		DefaultFee:     a.transferFee(),
	}
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	return []domain.NetworkContext{nc}, nil
}

// balanceInfo is the sidecar's account balance response.
type balanceInfo struct {
	Nonce string `json:"nonce"`
	Free  string `json:"free"` // planck
}

// WalletBalance returns the signing account's free balance.
func (a *Adapter) WalletBalance(ctx context.Context, nc domain.NetworkContext) (float64, error) {
	info, err := a.balanceInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("substrate %s: balance info: %w", nc.Network, err)
	}
	planck, err := strconv.ParseFloat(info.Free, 64)
	if err != nil {
		return 0, fmt.Errorf("substrate %s: parse balance %q: %w", nc.Network, info.Free, err)
	}
	return planck / math.Pow10(int(nc.TokenDecimals)), nil
}

func (a *Adapter) balanceInfo(ctx context.Context) (*balanceInfo, error) {
	var info balanceInfo
	path := "/accounts/" + a.cfg.WalletAddress + "/balance-info"
	if err := a.sidecar.GetJSON(ctx, path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DynamicFeeReserve keeps headroom for feeHeadroomPayments transfers at the
// configured fixed fee. Partial-fee queries need a built extrinsic, so this
// never performs I/O and never fails.
func (a *Adapter) DynamicFeeReserve(_ context.Context, _ domain.NetworkContext) float64 {
	return a.transferFee() * feeHeadroomPayments
}

func (a *Adapter) transferFee() float64 {
	if a.cfg.TransferFee > 0 {
		return a.cfg.TransferFee
	}
	return 0.02 // conservative default in token units
}

// ResolveRecipientAddress returns the recipient's address on this network.
func (a *Adapter) ResolveRecipientAddress(r domain.Recipient, nc domain.NetworkContext) (string, bool) {
	return r.AddressOn(nc.Network)
}

// EstimateTransfer validates the SS58 destination and applies the fixed fee.
func (a *Adapter) EstimateTransfer(_ context.Context, nc domain.NetworkContext, addr string, amount float64) (domain.TransferEstimate, error) {
	prefix := a.cfg.SS58Prefix
	if err := ValidateSS58(addr, prefix); err != nil {
		return domain.TransferEstimate{DeferReason: fmt.Sprintf("invalid %s address %q: %v", nc.TokenSymbol, addr, err)}, nil
	}

	fee := a.transferFee()
	if amount <= fee {
		return domain.TransferEstimate{
			DeferReason: fmt.Sprintf("amount %g %s does not exceed estimated fee %g", amount, nc.TokenSymbol, fee),
		}, nil
	}
	return domain.TransferEstimate{FeeCost: fee}, nil
}

// SendTransfer fetches the account nonce, has the signer build a signed
// balances.transferKeepAlive extrinsic at that nonce, and submits it through
// the sidecar.
func (a *Adapter) SendTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (string, error) {
	info, err := a.balanceInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("substrate %s: nonce: %w", nc.Network, err)
	}

	planck := adapter.ToBaseUnits(amount, nc.TokenDecimals)
	signReq := map[string]interface{}{
		"from":  a.cfg.WalletAddress,
		"to":    addr,
		"value": planck.String(),
		"nonce": info.Nonce,
	}
	var signResp struct {
		Tx string `json:"tx"` // hex-encoded signed extrinsic
	}
	if err := a.signer.PostJSON(ctx, "/v1/sign/transfer", signReq, &signResp); err != nil {
		return "", fmt.Errorf("substrate %s: sign: %w", nc.Network, err)
	}

	var submitResp struct {
		Hash string `json:"hash"`
	}
	if err := a.sidecar.PostJSON(ctx, "/transaction", map[string]string{"tx": signResp.Tx}, &submitResp); err != nil {
		return "", fmt.Errorf("substrate %s: submit extrinsic: %w", nc.Network, err)
	}
	if submitResp.Hash == "" {
		return "", fmt.Errorf("substrate %s: submit returned no hash", nc.Network)
	}

	return submitResp.Hash, nil
}
