// Package utxo implements the adapter contract for UTXO chains with a
// bitcoind-compatible wallet RPC. The wallet daemon owns coin selection and
// signing; this adapter speaks getbalance / estimatesmartfee / sendtoaddress
// and validates destination addresses (base58check and bech32).
package utxo

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/rpc"
)

const (
	// typicalTxVbytes is the virtual size of a one-input two-output
	// segwit payment, used for fee estimation.
	typicalTxVbytes = 141

	// feeHeadroomPayments is how many typical payments the dynamic fee
	// reserve should cover.
	feeHeadroomPayments = 10

	// dustLimit is the minimum output the network relays, in coin units.
	dustLimit = 0.00000546

	// feeBlockTarget is the confirmation target passed to estimatesmartfee.
	feeBlockTarget = 6
)

// Config holds one UTXO network's configuration.
type Config struct {
	Enabled     bool
	Network     string // e.g. "bitcoin"
	NetworkName string
	Endpoint    string // wallet daemon JSON-RPC endpoint
	RPCUser     string
	RPCPassword string
	Symbol      string // e.g. "BTC"
	Decimals    int32  // 8 unless overridden

	// Bech32HRP is the human-readable prefix for native segwit addresses
	// ("bc" for Bitcoin mainnet).
	Bech32HRP string

	// DefaultFeeRate is the fallback fee rate in coin/kvB when
	// estimatesmartfee is unavailable.
	DefaultFeeRate float64
}

// Adapter implements adapter.Adapter for UTXO networks.
type Adapter struct {
	cfg    Config
	client *rpc.Client
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a UTXO adapter.
func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg}
	if cfg.Endpoint != "" {
		opts := []rpc.ClientOption{}
		if cfg.RPCUser != "" {
			opts = append(opts, rpc.WithBasicAuth(cfg.RPCUser, cfg.RPCPassword))
		}
		a.client = rpc.NewClient(cfg.Endpoint, opts...)
	}
	return a
}

// Kind returns the adapter's execution model tag.
func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterUTXO
}

// DiscoverContexts offers the native coin only; UTXO wallets hold no
// contract tokens, so FUNGIBLE_CONTRACT requests are silently skipped.
func (a *Adapter) DiscoverContexts(_ context.Context, prefs domain.TokenPreferences) ([]domain.NetworkContext, error) {
	if !a.cfg.Enabled {
		return nil, nil
	}
	if a.cfg.Endpoint == "" {
		return nil, fmt.Errorf("utxo %s: enabled but endpoint missing", a.cfg.Network)
	}
	if !prefs.Wants(domain.TokenNative) {
		return nil, nil
	}

	decimals := a.cfg.Decimals
	if decimals == 0 {
		decimals = 8
	}

	nc := domain.NetworkContext{
		Kind:           domain.AdapterUTXO,
		Network:        a.cfg.Network,
		NetworkName:    a.cfg.NetworkName,
		TokenKind:      domain.TokenNative,
		TokenSymbol:    a.cfg.Symbol,
		TokenDecimals:  decimals,
		NativeSymbol:   a.cfg.Symbol,
		NativeDecimals: decimals,
	}
	if err := nc.Validate(); err != nil {
		return nil, err
	}
	return []domain.NetworkContext{nc}, nil
}

// WalletBalance returns the wallet's spendable balance via getbalance.
func (a *Adapter) WalletBalance(ctx context.Context, nc domain.NetworkContext) (float64, error) {
	var balance float64
	if err := a.client.Call(ctx, "getbalance", []interface{}{}, &balance); err != nil {
		return 0, fmt.Errorf("utxo %s: get balance: %w", nc.Network, err)
	}
	return balance, nil
}

// DynamicFeeReserve keeps headroom for feeHeadroomPayments typical payments
// at the current smart-fee rate.
func (a *Adapter) DynamicFeeReserve(ctx context.Context, _ domain.NetworkContext) float64 {
	return a.feeRate(ctx) * typicalTxVbytes / 1000 * feeHeadroomPayments
}

// feeRate returns the live fee rate in coin/kvB or the configured fallback.
func (a *Adapter) feeRate(ctx context.Context) float64 {
	var result struct {
		FeeRate float64 `json:"feerate"`
	}
	if err := a.client.Call(ctx, "estimatesmartfee", []interface{}{feeBlockTarget}, &result); err == nil && result.FeeRate > 0 {
		return result.FeeRate
	}
	if a.cfg.DefaultFeeRate > 0 {
		return a.cfg.DefaultFeeRate
	}
	return 0.0001 // 10 sat/vB
}

// ResolveRecipientAddress returns the recipient's address on this network.
func (a *Adapter) ResolveRecipientAddress(r domain.Recipient, nc domain.NetworkContext) (string, bool) {
	return r.AddressOn(nc.Network)
}

// EstimateTransfer validates the destination and prices a typical payment.
func (a *Adapter) EstimateTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (domain.TransferEstimate, error) {
	if !a.validAddress(addr) {
		return domain.TransferEstimate{DeferReason: fmt.Sprintf("invalid %s address %q", a.cfg.Symbol, addr)}, nil
	}
	if amount < dustLimit {
		return domain.TransferEstimate{
			DeferReason: fmt.Sprintf("amount %g %s below dust limit", amount, nc.TokenSymbol),
		}, nil
	}

	fee := a.feeRate(ctx) * typicalTxVbytes / 1000
	if amount <= fee {
		return domain.TransferEstimate{
			DeferReason: fmt.Sprintf("amount %g %s does not exceed estimated fee %g", amount, nc.TokenSymbol, fee),
		}, nil
	}
	return domain.TransferEstimate{FeeCost: fee}, nil
}

// SendTransfer pays via sendtoaddress; the wallet daemon selects inputs,
// signs, and broadcasts. The call is made exactly once: the daemon builds a
// new transaction per request, so a transport retry could double-pay.
func (a *Adapter) SendTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (string, error) {
	var txid string
	if err := a.client.CallOnce(ctx, "sendtoaddress", []interface{}{addr, amount}, &txid); err != nil {
		return "", fmt.Errorf("utxo %s: send: %w", nc.Network, err)
	}
	return txid, nil
}

// validAddress accepts base58check (legacy/P2SH) and bech32 (segwit)
// addresses; bech32 addresses must carry the configured HRP.
func (a *Adapter) validAddress(addr string) bool {
	if addr == "" {
		return false
	}

	// bech32 segwit
	if hrp, data, err := bech32.Decode(addr); err == nil {
		if a.cfg.Bech32HRP != "" && hrp != a.cfg.Bech32HRP {
			return false
		}
		// witness version byte plus at least a 20-byte program
		return len(data) > 1
	}

	// base58check legacy/P2SH: 20-byte payload after the version byte
	payload, _, err := base58.CheckDecode(addr)
	if err != nil {
		return false
	}
	return len(payload) == 20
}
