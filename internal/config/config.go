// Package config assembles runtime configuration from environment
// variables. Every network has its own DIST_<NETWORK>_* block. An enabled
// network with missing settings is not rejected here: its adapter reports
// the configuration error during context discovery and the cycle continues
// without it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"multichain-distributor/internal/adapter"
	"multichain-distributor/internal/adapter/cosmos"
	"multichain-distributor/internal/adapter/evm"
	"multichain-distributor/internal/adapter/stellar"
	"multichain-distributor/internal/adapter/substrate"
	"multichain-distributor/internal/adapter/utxo"
	"multichain-distributor/internal/domain"
)

// Config is the full runtime configuration.
type Config struct {
	PostgresDSN   string
	ClickhouseDSN string

	// PriceEndpoint is the optional live price API; StaticPrices is the
	// fallback table, parsed from "SYM=PRICE,SYM=PRICE".
	PriceEndpoint string
	StaticPrices  map[string]float64

	DefaultThresholdUSD float64
	RecipientsPath      string

	// TokenKinds narrows context discovery, parsed from DIST_TOKEN_KINDS
	// ("native", "contract", or both). Empty means native-only.
	TokenKinds []domain.TokenKind

	EVM       evm.Config
	UTXO      utxo.Config
	Cosmos    cosmos.Config
	Substrate substrate.Config
	Stellar   stellar.Config

	// thresholds collects each network's DIST_<NETWORK>_THRESHOLD_USD.
	thresholds map[string]float64
}

// FromEnv reads the full configuration from the environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		PostgresDSN:    os.Getenv("DIST_POSTGRES_DSN"),
		ClickhouseDSN:  os.Getenv("DIST_CLICKHOUSE_DSN"),
		PriceEndpoint:  os.Getenv("DIST_PRICE_ENDPOINT"),
		RecipientsPath: os.Getenv("DIST_RECIPIENTS_FILE"),
		thresholds:     make(map[string]float64),
	}

	var err error
	cfg.StaticPrices, err = parsePriceTable(os.Getenv("DIST_STATIC_PRICES"))
	if err != nil {
		return nil, fmt.Errorf("DIST_STATIC_PRICES: %w", err)
	}
	cfg.DefaultThresholdUSD = envFloat("DIST_DEFAULT_THRESHOLD_USD", 0)
	cfg.TokenKinds, err = parseTokenKinds(os.Getenv("DIST_TOKEN_KINDS"))
	if err != nil {
		return nil, fmt.Errorf("DIST_TOKEN_KINDS: %w", err)
	}

	cfg.EVM = evm.Config{
		Enabled:            envBool("DIST_EVM_ENABLED"),
		Network:            envOr("DIST_EVM_NETWORK", "ethereum"),
		NetworkName:        envOr("DIST_EVM_NAME", "Ethereum"),
		Endpoint:           os.Getenv("DIST_EVM_ENDPOINT"),
		WSEndpoint:         os.Getenv("DIST_EVM_WS_ENDPOINT"),
		WalletAddress:      os.Getenv("DIST_EVM_WALLET"),
		NativeSymbol:       envOr("DIST_EVM_SYMBOL", "ETH"),
		ContractAddress:    os.Getenv("DIST_EVM_CONTRACT"),
		TokenSymbol:        os.Getenv("DIST_EVM_TOKEN_SYMBOL"),
		TokenDecimals:      int32(envInt("DIST_EVM_TOKEN_DECIMALS", 18)),
		DefaultGasPriceWei: envInt("DIST_EVM_DEFAULT_GAS_PRICE_WEI", 0),
		ConfirmTimeout:     envDuration("DIST_EVM_CONFIRM_TIMEOUT", 0),
	}
	cfg.registerThreshold(cfg.EVM.Network, "DIST_EVM_THRESHOLD_USD")

	cfg.UTXO = utxo.Config{
		Enabled:        envBool("DIST_UTXO_ENABLED"),
		Network:        envOr("DIST_UTXO_NETWORK", "bitcoin"),
		NetworkName:    envOr("DIST_UTXO_NAME", "Bitcoin"),
		Endpoint:       os.Getenv("DIST_UTXO_ENDPOINT"),
		RPCUser:        os.Getenv("DIST_UTXO_RPC_USER"),
		RPCPassword:    os.Getenv("DIST_UTXO_RPC_PASSWORD"),
		Symbol:         envOr("DIST_UTXO_SYMBOL", "BTC"),
		Decimals:       int32(envInt("DIST_UTXO_DECIMALS", 8)),
		Bech32HRP:      envOr("DIST_UTXO_BECH32_HRP", "bc"),
		DefaultFeeRate: envFloat("DIST_UTXO_DEFAULT_FEE_RATE", 0),
	}
	cfg.registerThreshold(cfg.UTXO.Network, "DIST_UTXO_THRESHOLD_USD")

	cfg.Cosmos = cosmos.Config{
		Enabled:         envBool("DIST_COSMOS_ENABLED"),
		Network:         envOr("DIST_COSMOS_NETWORK", "cosmoshub"),
		NetworkName:     envOr("DIST_COSMOS_NAME", "Cosmos Hub"),
		Endpoint:        os.Getenv("DIST_COSMOS_ENDPOINT"),
		SignerEndpoint:  os.Getenv("DIST_COSMOS_SIGNER_ENDPOINT"),
		WalletAddress:   os.Getenv("DIST_COSMOS_WALLET"),
		Bech32HRP:       envOr("DIST_COSMOS_BECH32_HRP", "cosmos"),
		Denom:           envOr("DIST_COSMOS_DENOM", "uatom"),
		Symbol:          envOr("DIST_COSMOS_SYMBOL", "ATOM"),
		Decimals:        int32(envInt("DIST_COSMOS_DECIMALS", 6)),
		GasPerTransfer:  envInt("DIST_COSMOS_GAS_PER_TRANSFER", 0),
		GasAdjustment:   envFloat("DIST_COSMOS_GAS_ADJUSTMENT", 0),
		DefaultGasPrice: envFloat("DIST_COSMOS_DEFAULT_GAS_PRICE", 0),
	}
	cfg.registerThreshold(cfg.Cosmos.Network, "DIST_COSMOS_THRESHOLD_USD")

	cfg.Substrate = substrate.Config{
		Enabled:        envBool("DIST_SUBSTRATE_ENABLED"),
		Network:        envOr("DIST_SUBSTRATE_NETWORK", "polkadot"),
		NetworkName:    envOr("DIST_SUBSTRATE_NAME", "Polkadot"),
		Endpoint:       os.Getenv("DIST_SUBSTRATE_ENDPOINT"),
		SignerEndpoint: os.Getenv("DIST_SUBSTRATE_SIGNER_ENDPOINT"),
		WalletAddress:  os.Getenv("DIST_SUBSTRATE_WALLET"),
		Symbol:         envOr("DIST_SUBSTRATE_SYMBOL", "DOT"),
		Decimals:       int32(envInt("DIST_SUBSTRATE_DECIMALS", 10)),
		SS58Prefix:     int(envInt("DIST_SUBSTRATE_SS58_PREFIX", 0)),
		TransferFee:    envFloat("DIST_SUBSTRATE_TRANSFER_FEE", 0),
	}
	cfg.registerThreshold(cfg.Substrate.Network, "DIST_SUBSTRATE_THRESHOLD_USD")

	cfg.Stellar = stellar.Config{
		Enabled:           envBool("DIST_STELLAR_ENABLED"),
		Network:           envOr("DIST_STELLAR_NETWORK", "stellar"),
		NetworkName:       envOr("DIST_STELLAR_NAME", "Stellar"),
		Endpoint:          os.Getenv("DIST_STELLAR_ENDPOINT"),
		SignerEndpoint:    os.Getenv("DIST_STELLAR_SIGNER_ENDPOINT"),
		WalletAddress:     os.Getenv("DIST_STELLAR_WALLET"),
		Symbol:            envOr("DIST_STELLAR_SYMBOL", "XLM"),
		DefaultFeeStroops: envInt("DIST_STELLAR_DEFAULT_FEE_STROOPS", 0),
	}
	cfg.registerThreshold(cfg.Stellar.Network, "DIST_STELLAR_THRESHOLD_USD")

	return cfg, nil
}

// Adapters constructs one adapter per configured network, enabled or not;
// disabled adapters discover zero contexts.
func (c *Config) Adapters(verbose bool) []adapter.Adapter {
	evmCfg := c.EVM
	evmCfg.Verbose = verbose
	return []adapter.Adapter{
		evm.New(evmCfg),
		utxo.New(c.UTXO),
		cosmos.New(c.Cosmos),
		substrate.New(c.Substrate),
		stellar.New(c.Stellar),
	}
}

// Thresholds returns the per-network minimum-distribution thresholds.
func (c *Config) Thresholds() map[string]float64 {
	out := make(map[string]float64, len(c.thresholds))
	for k, v := range c.thresholds {
		out[k] = v
	}
	return out
}

func (c *Config) registerThreshold(network, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.thresholds[network] = f
		}
	}
}

// parseTokenKinds parses a comma-separated kind list, e.g. "native,contract".
func parseTokenKinds(s string) ([]domain.TokenKind, error) {
	if s == "" {
		return nil, nil
	}
	var kinds []domain.TokenKind
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "native":
			kinds = append(kinds, domain.TokenNative)
		case "contract":
			kinds = append(kinds, domain.TokenContract)
		default:
			return nil, fmt.Errorf("unknown token kind %q", part)
		}
	}
	return kinds, nil
}

// parsePriceTable parses "ETH=2500,BTC=64000" into a symbol table.
func parsePriceTable(s string) (map[string]float64, error) {
	prices := make(map[string]float64)
	if s == "" {
		return prices, nil
	}
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed entry %q", pair)
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", parts[0], err)
		}
		prices[strings.ToUpper(parts[0])] = price
	}
	return prices, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
