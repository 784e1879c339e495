// Package evm implements the adapter contract for EVM-style networks.
// Balances and fees come from the node's JSON-RPC API; sends go through
// eth_sendTransaction against node-managed keys (geth account or clef
// signer), so raw transaction signing never enters this process.
package evm

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/rpc"
)

// Gas units for the two transfer shapes.
const (
	gasNativeTransfer = 21000
	gasTokenTransfer  = 65000

	// feeHeadroomPayments is how many typical payments the dynamic fee
	// reserve should cover.
	feeHeadroomPayments = 10
)

// Config holds one EVM network's configuration.
type Config struct {
	Enabled        bool
	Network        string // stable identifier, e.g. "ethereum"
	NetworkName    string // human name, e.g. "Ethereum Mainnet"
	Endpoint       string // HTTP JSON-RPC endpoint
	WSEndpoint     string // optional WebSocket endpoint for send confirmation
	WalletAddress  string // sending account managed by the node/signer
	NativeSymbol   string // e.g. "ETH"
	NativeDecimals int32  // 18 unless overridden

	// Contract token distribution (optional).
	ContractAddress string
	TokenSymbol     string
	TokenDecimals   int32

	// DefaultGasPriceWei is the fallback when eth_gasPrice is unavailable.
	DefaultGasPriceWei int64

	// ConfirmTimeout bounds the best-effort post-send confirmation wait.
	// Zero disables confirmation watching.
	ConfirmTimeout time.Duration

	Verbose bool
}

// Adapter implements adapter.Adapter for EVM networks.
type Adapter struct {
	cfg    Config
	client *rpc.Client
	ws     *rpc.WSClient
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates an EVM adapter. The RPC client is constructed eagerly (it does
// no I/O until the first call); the WS client is dialed lazily on first send.
func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg}
	if cfg.Endpoint != "" {
		a.client = rpc.NewClient(cfg.Endpoint)
	}
	return a
}

// Kind returns the adapter's execution model tag.
func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterEVM
}

// DiscoverContexts offers a native context and, when a contract address is
// configured, a fungible-contract context.
func (a *Adapter) DiscoverContexts(_ context.Context, prefs domain.TokenPreferences) ([]domain.NetworkContext, error) {
	if !a.cfg.Enabled {
		return nil, nil
	}
	if a.cfg.Endpoint == "" || a.cfg.WalletAddress == "" {
		return nil, fmt.Errorf("evm %s: enabled but endpoint or wallet address missing", a.cfg.Network)
	}

	decimals := a.cfg.NativeDecimals
	if decimals == 0 {
		decimals = 18
	}

	var contexts []domain.NetworkContext

	if prefs.Wants(domain.TokenNative) {
		nc := domain.NetworkContext{
			Kind:           domain.AdapterEVM,
			Network:        a.cfg.Network,
			NetworkName:    a.cfg.NetworkName,
			TokenKind:      domain.TokenNative,
			TokenSymbol:    a.cfg.NativeSymbol,
			TokenDecimals:  decimals,
			NativeSymbol:   a.cfg.NativeSymbol,
			NativeDecimals: decimals,
			WalletAddress:  a.cfg.WalletAddress,
		}
		if err := nc.Validate(); err != nil {
			return nil, err
		}
		contexts = append(contexts, nc)
	}

	if prefs.Wants(domain.TokenContract) && a.cfg.ContractAddress != "" {
		nc := domain.NetworkContext{
			Kind:           domain.AdapterEVM,
			Network:        a.cfg.Network,
			NetworkName:    a.cfg.NetworkName,
			TokenKind:      domain.TokenContract,
			TokenSymbol:    a.cfg.TokenSymbol,
			TokenDecimals:  a.cfg.TokenDecimals,
			NativeSymbol:   a.cfg.NativeSymbol,
			NativeDecimals: decimals,
			WalletAddress:  a.cfg.WalletAddress,
		}
		if err := nc.Validate(); err != nil {
			return nil, err
		}
		contexts = append(contexts, nc)
	}

	return contexts, nil
}

// WalletBalance queries the signing account's balance of the distributed
// token: eth_getBalance for native, balanceOf via eth_call for contracts.
func (a *Adapter) WalletBalance(ctx context.Context, nc domain.NetworkContext) (float64, error) {
	if nc.TokenKind == domain.TokenNative {
		var hexBal string
		if err := a.client.Call(ctx, "eth_getBalance", []interface{}{a.cfg.WalletAddress, "latest"}, &hexBal); err != nil {
			return 0, fmt.Errorf("evm %s: get balance: %w", nc.Network, err)
		}
		wei, err := parseHexBig(hexBal)
		if err != nil {
			return 0, fmt.Errorf("evm %s: parse balance: %w", nc.Network, err)
		}
		return adapter.FromBaseUnits(wei, nc.TokenDecimals), nil
	}

	// ERC-20 balanceOf(address)
	data := "0x70a08231" + leftPadAddress(a.cfg.WalletAddress)
	callObj := map[string]interface{}{
		"to":   a.cfg.ContractAddress,
		"data": data,
	}
	var hexBal string
	if err := a.client.Call(ctx, "eth_call", []interface{}{callObj, "latest"}, &hexBal); err != nil {
		return 0, fmt.Errorf("evm %s: token balance: %w", nc.Network, err)
	}
	units, err := parseHexBig(hexBal)
	if err != nil {
		return 0, fmt.Errorf("evm %s: parse token balance: %w", nc.Network, err)
	}
	return adapter.FromBaseUnits(units, nc.TokenDecimals), nil
}

// DynamicFeeReserve keeps headroom for feeHeadroomPayments native transfers
// at the current gas price. Contract contexts return zero because fees are
// paid in the native token, not the distributed one.
func (a *Adapter) DynamicFeeReserve(ctx context.Context, nc domain.NetworkContext) float64 {
	if nc.TokenKind != domain.TokenNative {
		return 0
	}

	gasPrice := a.gasPrice(ctx)
	feeWei := new(big.Int).Mul(gasPrice, big.NewInt(gasNativeTransfer*feeHeadroomPayments))
	return adapter.FromBaseUnits(feeWei, nc.NativeDecimals)
}

// gasPrice returns the live gas price or the configured fallback.
func (a *Adapter) gasPrice(ctx context.Context) *big.Int {
	var hexPrice string
	if err := a.client.Call(ctx, "eth_gasPrice", []interface{}{}, &hexPrice); err == nil {
		if price, perr := parseHexBig(hexPrice); perr == nil && price.Sign() > 0 {
			return price
		}
	}
	fallback := a.cfg.DefaultGasPriceWei
	if fallback <= 0 {
		fallback = 20_000_000_000 // 20 gwei
	}
	return big.NewInt(fallback)
}

// ResolveRecipientAddress returns the recipient's address on this network.
func (a *Adapter) ResolveRecipientAddress(r domain.Recipient, nc domain.NetworkContext) (string, bool) {
	return r.AddressOn(nc.Network)
}

// EstimateTransfer validates the destination address and prices the send.
func (a *Adapter) EstimateTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (domain.TransferEstimate, error) {
	if !ValidAddress(addr) {
		return domain.TransferEstimate{DeferReason: fmt.Sprintf("invalid EVM address %q", addr)}, nil
	}

	gasUnits := int64(gasNativeTransfer)
	if nc.TokenKind == domain.TokenContract {
		gasUnits = gasTokenTransfer
	}
	feeWei := new(big.Int).Mul(a.gasPrice(ctx), big.NewInt(gasUnits))
	fee := adapter.FromBaseUnits(feeWei, nc.NativeDecimals)

	if nc.TokenKind == domain.TokenNative && amount <= fee {
		return domain.TransferEstimate{
			DeferReason: fmt.Sprintf("amount %g %s does not exceed estimated fee %g", amount, nc.TokenSymbol, fee),
		}, nil
	}

	return domain.TransferEstimate{FeeCost: fee}, nil
}

// SendTransfer broadcasts via eth_sendTransaction. For contract tokens the
// value rides in the transfer(address,uint256) calldata instead.
func (a *Adapter) SendTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (string, error) {
	var tx map[string]interface{}

	if nc.TokenKind == domain.TokenNative {
		wei := adapter.ToBaseUnits(amount, nc.TokenDecimals)
		tx = map[string]interface{}{
			"from":  a.cfg.WalletAddress,
			"to":    addr,
			"value": "0x" + wei.Text(16),
			"gas":   fmt.Sprintf("0x%x", gasNativeTransfer),
		}
	} else {
		units := adapter.ToBaseUnits(amount, nc.TokenDecimals)
		data := "0xa9059cbb" + leftPadAddress(addr) + leftPadBig(units)
		tx = map[string]interface{}{
			"from": a.cfg.WalletAddress,
			"to":   a.cfg.ContractAddress,
			"data": data,
			"gas":  fmt.Sprintf("0x%x", gasTokenTransfer),
		}
	}

	// The node signs and broadcasts a fresh transaction per request, so the
	// send is never retried: a lost response must not become two payments.
	var txHash string
	if err := a.client.CallOnce(ctx, "eth_sendTransaction", []interface{}{tx}, &txHash); err != nil {
		return "", fmt.Errorf("evm %s: send: %w", nc.Network, err)
	}

	if a.cfg.ConfirmTimeout > 0 && a.cfg.WSEndpoint != "" {
		a.awaitConfirmation(ctx, nc, txHash)
	}

	return txHash, nil
}

// ValidAddress reports whether addr is a well-formed 20-byte hex address.
func ValidAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	for _, c := range addr[2:] {
		if !isHexDigit(byte(c)) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseHexBig decodes a 0x-prefixed hex quantity.
func parseHexBig(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("malformed hex quantity %q", s)
	}
	return n, nil
}

// leftPadAddress ABI-encodes an address argument (32 bytes, no 0x).
func leftPadAddress(addr string) string {
	hex := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	return strings.Repeat("0", 64-len(hex)) + hex
}

// leftPadBig ABI-encodes a uint256 argument (32 bytes, no 0x).
func leftPadBig(n *big.Int) string {
	hex := n.Text(16)
	return strings.Repeat("0", 64-len(hex)) + hex
}

func (a *Adapter) logf(format string, args ...interface{}) {
	if a.cfg.Verbose {
		log.Printf("[evm:"+a.cfg.Network+"] "+format, args...)
	}
}
