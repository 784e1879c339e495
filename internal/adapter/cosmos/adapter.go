// Package cosmos implements the adapter contract for Cosmos-SDK chains.
// Balances, account sequences, and broadcasts go through the chain's LCD
// REST API; transaction signing is delegated to a remote signer service that
// holds the mnemonic-derived key, so credentials never enter this process.
// Only the staking denom is distributed.
package cosmos

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil/bech32"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/rpc"
)

const (
	// defaultGasPerTransfer is the gas consumed by a bank MsgSend.
	defaultGasPerTransfer = 80000

	// defaultGasAdjustment pads simulated gas against estimation drift.
	defaultGasAdjustment = 1.3

	// feeHeadroomPayments is how many transfers the fee reserve covers.
	feeHeadroomPayments = 10
)

// Config holds one Cosmos network's configuration.
type Config struct {
	Enabled        bool
	Network        string // e.g. "cosmoshub"
	NetworkName    string
	Endpoint       string // LCD REST base URL
	SignerEndpoint string // remote signer service base URL
	WalletAddress  string
	Bech32HRP      string // e.g. "cosmos"
	Denom          string // base denom, e.g. "uatom"
	Symbol         string // display symbol, e.g. "ATOM"
	Decimals       int32  // base-denom exponent, 6 unless overridden

	GasPerTransfer int64
	GasAdjustment  float64
	// DefaultGasPrice is the fallback price in base denom per gas unit.
	DefaultGasPrice float64
}

// Adapter implements adapter.Adapter for account-sequenced chains.
type Adapter struct {
	cfg    Config
	lcd    *rpc.RESTClient
	signer *rpc.RESTClient
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a Cosmos adapter.
func New(cfg Config) *Adapter {
	a := &Adapter{cfg: cfg}
	if cfg.Endpoint != "" {
		a.lcd = rpc.NewRESTClient(cfg.Endpoint, 0)
	}
	if cfg.SignerEndpoint != "" {
		a.signer = rpc.NewRESTClient(cfg.SignerEndpoint, 0)
	}
	return a
}

// Kind returns the adapter's execution model tag.
func (a *Adapter) Kind() domain.AdapterKind {
	return domain.AdapterSequenced
}

// DiscoverContexts offers the native staking denom only.
func (a *Adapter) DiscoverContexts(_ context.Context, prefs domain.TokenPreferences) ([]domain.NetworkContext, error) {
	if !a.cfg.Enabled {
		return nil, nil
	}
	if a.cfg.Endpoint == "" || a.cfg.SignerEndpoint == "" || a.cfg.WalletAddress == "" {
		return nil, fmt.Errorf("cosmos %s: enabled but endpoint, signer, or wallet missing", a.cfg.Network)
	}
	if !prefs.Wants(domain.TokenNative) {
		return nil, nil
	}

	decimals := a.cfg.Decimals
	if decimals == 0 {
		decimals = 6
	}

	nc := domain.NetworkContext{
		Kind:           domain.AdapterSequenced,
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

// WalletBalance queries the signing account's balance of the staking denom.
func (a *Adapter) WalletBalance(ctx context.Context, nc domain.NetworkContext) (float64, error) {
	var result struct {
		Balance struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		} `json:"balance"`
	}
	path := fmt.Sprintf("/cosmos/bank/v1beta1/balances/%s/by_denom?denom=%s", a.cfg.WalletAddress, a.cfg.Denom)
	if err := a.lcd.GetJSON(ctx, path, &result); err != nil {
		return 0, fmt.Errorf("cosmos %s: get balance: %w", nc.Network, err)
	}

	base, err := strconv.ParseInt(result.Balance.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cosmos %s: parse balance %q: %w", nc.Network, result.Balance.Amount, err)
	}
	return float64(base) / math.Pow10(int(nc.TokenDecimals)), nil
}

// DynamicFeeReserve keeps headroom for feeHeadroomPayments bank sends at the
// node's minimum gas price.
func (a *Adapter) DynamicFeeReserve(ctx context.Context, nc domain.NetworkContext) float64 {
	feeBase := a.transferFeeBase(ctx)
	return feeBase * feeHeadroomPayments / math.Pow10(int(nc.TokenDecimals))
}

// transferFeeBase returns the fee of one transfer in base denom units.
func (a *Adapter) transferFeeBase(ctx context.Context) float64 {
	gas := a.cfg.GasPerTransfer
	if gas <= 0 {
		gas = defaultGasPerTransfer
	}
	adjustment := a.cfg.GasAdjustment
	if adjustment <= 0 {
		adjustment = defaultGasAdjustment
	}
	return a.gasPrice(ctx) * float64(gas) * adjustment
}

// gasPrice returns the node's minimum gas price in base denom per gas unit,
// or the configured fallback.
func (a *Adapter) gasPrice(ctx context.Context) float64 {
	var result struct {
		MinimumGasPrice string `json:"minimum_gas_price"`
	}
	if err := a.lcd.GetJSON(ctx, "/cosmos/base/node/v1beta1/config", &result); err == nil {
		if price, ok := parseGasPrice(result.MinimumGasPrice, a.cfg.Denom); ok {
			return price
		}
	}
	if a.cfg.DefaultGasPrice > 0 {
		return a.cfg.DefaultGasPrice
	}
	return 0.025
}

// parseGasPrice extracts the numeric part of a "0.025uatom" style price for
// the given denom.
func parseGasPrice(s, denom string) (float64, bool) {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasSuffix(part, denom) {
			continue
		}
		num := strings.TrimSuffix(part, denom)
		price, err := strconv.ParseFloat(num, 64)
		if err != nil || price <= 0 {
			return 0, false
		}
		return price, true
	}
	return 0, false
}

// ResolveRecipientAddress returns the recipient's address on this network.
func (a *Adapter) ResolveRecipientAddress(r domain.Recipient, nc domain.NetworkContext) (string, bool) {
	return r.AddressOn(nc.Network)
}

// EstimateTransfer validates the bech32 destination and prices the send.
func (a *Adapter) EstimateTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (domain.TransferEstimate, error) {
	if !a.validAddress(addr) {
		return domain.TransferEstimate{DeferReason: fmt.Sprintf("invalid %s address %q", a.cfg.Bech32HRP, addr)}, nil
	}

	fee := a.transferFeeBase(ctx) / math.Pow10(int(nc.TokenDecimals))
	if amount <= fee {
		return domain.TransferEstimate{
			DeferReason: fmt.Sprintf("amount %g %s does not exceed estimated fee %g", amount, nc.TokenSymbol, fee),
		}, nil
	}
	return domain.TransferEstimate{FeeCost: fee}, nil
}

// SendTransfer fetches the account sequence, has the signer build and sign a
// bank MsgSend at that sequence, and broadcasts the signed bytes in sync
// mode. A non-zero broadcast code (sequence conflict, insufficient funds) is
// a rejection.
func (a *Adapter) SendTransfer(ctx context.Context, nc domain.NetworkContext, addr string, amount float64) (string, error) {
	accountNumber, sequence, err := a.accountState(ctx)
	if err != nil {
		return "", fmt.Errorf("cosmos %s: account state: %w", nc.Network, err)
	}

	baseAmount := adapter.ToBaseUnits(amount, nc.TokenDecimals)
	gas := a.cfg.GasPerTransfer
	if gas <= 0 {
		gas = defaultGasPerTransfer
	}
	feeBase := int64(a.transferFeeBase(ctx))

	signReq := map[string]interface{}{
		"from_address":   a.cfg.WalletAddress,
		"to_address":     addr,
		"denom":          a.cfg.Denom,
		"amount":         baseAmount.String(),
		"account_number": accountNumber,
		"sequence":       sequence,
		"gas_limit":      gas,
		"fee_amount":     strconv.FormatInt(feeBase, 10),
	}
	var signResp struct {
		TxBytes string `json:"tx_bytes"` // base64 signed tx
	}
	if err := a.signer.PostJSON(ctx, "/v1/sign/bank-send", signReq, &signResp); err != nil {
		return "", fmt.Errorf("cosmos %s: sign: %w", nc.Network, err)
	}

	broadcastReq := map[string]interface{}{
		"tx_bytes": signResp.TxBytes,
		"mode":     "BROADCAST_MODE_SYNC",
	}
	var broadcastResp struct {
		TxResponse struct {
			Code   int    `json:"code"`
			TxHash string `json:"txhash"`
			RawLog string `json:"raw_log"`
		} `json:"tx_response"`
	}
	if err := a.lcd.PostJSON(ctx, "/cosmos/tx/v1beta1/txs", broadcastReq, &broadcastResp); err != nil {
		return "", fmt.Errorf("cosmos %s: broadcast: %w", nc.Network, err)
	}
	if broadcastResp.TxResponse.Code != 0 {
		return "", fmt.Errorf("cosmos %s: broadcast rejected (code %d): %s",
			nc.Network, broadcastResp.TxResponse.Code, broadcastResp.TxResponse.RawLog)
	}

	return broadcastResp.TxResponse.TxHash, nil
}

// accountState fetches the signing account's number and current sequence.
func (a *Adapter) accountState(ctx context.Context) (string, string, error) {
	var result struct {
		Account struct {
			AccountNumber string `json:"account_number"`
			Sequence      string `json:"sequence"`
		} `json:"account"`
	}
	path := "/cosmos/auth/v1beta1/accounts/" + a.cfg.WalletAddress
	if err := a.lcd.GetJSON(ctx, path, &result); err != nil {
		return "", "", err
	}
	return result.Account.AccountNumber, result.Account.Sequence, nil
}

// validAddress checks bech32 encoding and the configured prefix.
func (a *Adapter) validAddress(addr string) bool {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return false
	}
	if a.cfg.Bech32HRP != "" && hrp != a.cfg.Bech32HRP {
		return false
	}
	return len(data) > 0
}
