package config

import (
	"os"
	"path/filepath"
	"testing"

	"multichain-distributor/internal/domain"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}

	if cfg.EVM.Network != "ethereum" || cfg.EVM.NativeSymbol != "ETH" {
		t.Errorf("evm defaults wrong: %+v", cfg.EVM)
	}
	if cfg.EVM.TokenDecimals != 18 {
		t.Errorf("expected 18 token decimals, got %d", cfg.EVM.TokenDecimals)
	}
	if cfg.UTXO.Bech32HRP != "bc" || cfg.UTXO.Decimals != 8 {
		t.Errorf("utxo defaults wrong: %+v", cfg.UTXO)
	}
	if cfg.Cosmos.Denom != "uatom" || cfg.Cosmos.Bech32HRP != "cosmos" {
		t.Errorf("cosmos defaults wrong: %+v", cfg.Cosmos)
	}
	if cfg.Substrate.Decimals != 10 {
		t.Errorf("substrate defaults wrong: %+v", cfg.Substrate)
	}
	if cfg.EVM.Enabled || cfg.Stellar.Enabled {
		t.Error("networks should be disabled by default")
	}
	if len(cfg.Thresholds()) != 0 {
		t.Errorf("expected no thresholds, got %v", cfg.Thresholds())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DIST_EVM_ENABLED", "true")
	t.Setenv("DIST_EVM_NETWORK", "polygon")
	t.Setenv("DIST_EVM_ENDPOINT", "http://localhost:8545")
	t.Setenv("DIST_EVM_WALLET", "0x1111111111111111111111111111111111111111")
	t.Setenv("DIST_EVM_THRESHOLD_USD", "25")
	t.Setenv("DIST_DEFAULT_THRESHOLD_USD", "10")
	t.Setenv("DIST_SUBSTRATE_SS58_PREFIX", "2")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}

	if !cfg.EVM.Enabled {
		t.Error("evm should be enabled")
	}
	if cfg.EVM.Network != "polygon" {
		t.Errorf("expected polygon, got %s", cfg.EVM.Network)
	}
	if cfg.DefaultThresholdUSD != 10 {
		t.Errorf("expected default threshold 10, got %f", cfg.DefaultThresholdUSD)
	}
	if got := cfg.Thresholds()["polygon"]; got != 25 {
		t.Errorf("expected polygon threshold 25, got %f", got)
	}
	if cfg.Substrate.SS58Prefix != 2 {
		t.Errorf("expected ss58 prefix 2, got %d", cfg.Substrate.SS58Prefix)
	}
}

func TestParsePriceTable(t *testing.T) {
	prices, err := parsePriceTable("eth=2500, BTC=64000.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if prices["ETH"] != 2500 || prices["BTC"] != 64000.5 {
		t.Errorf("unexpected table: %v", prices)
	}

	if _, err := parsePriceTable("ETH"); err == nil {
		t.Error("expected error for entry without =")
	}
	if _, err := parsePriceTable("ETH=abc"); err == nil {
		t.Error("expected error for non-numeric price")
	}
}

func TestParseTokenKinds(t *testing.T) {
	kinds, err := parseTokenKinds("native, Contract")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != domain.TokenNative || kinds[1] != domain.TokenContract {
		t.Errorf("unexpected kinds: %v", kinds)
	}

	if kinds, err := parseTokenKinds(""); err != nil || kinds != nil {
		t.Errorf("empty input should parse to nil, got %v, %v", kinds, err)
	}
	if _, err := parseTokenKinds("nft"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestAdaptersCoverAllNetworks(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if got := len(cfg.Adapters(false)); got != 5 {
		t.Fatalf("expected 5 adapters, got %d", got)
	}
}

func TestLoadRecipients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.json")
	data := `[
		{"id": "alice", "target_usd": 150, "addresses": {"ethereum": "0xabc", "bitcoin": "bc1qxyz"}},
		{"id": "bob", "target_usd": 50, "addresses": {"stellar": "GABC"}}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	recipients, err := LoadRecipients(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(recipients))
	}
	if recipients[0].ID != "alice" || recipients[0].TargetUSD != 150 {
		t.Errorf("unexpected first recipient: %+v", recipients[0])
	}
	if addr, ok := recipients[0].AddressOn("ethereum"); !ok || addr != "0xabc" {
		t.Errorf("unexpected ethereum address: %q", addr)
	}
}

func TestLoadRecipientsRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing id":      `[{"target_usd": 10}]`,
		"duplicate id":    `[{"id": "a", "target_usd": 10}, {"id": "a", "target_usd": 5}]`,
		"zero target":     `[{"id": "a", "target_usd": 0}]`,
		"negative target": `[{"id": "a", "target_usd": -5}]`,
		"malformed json":  `{"id": "a"`,
	}
	for name, data := range cases {
		path := filepath.Join(t.TempDir(), "recipients.json")
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRecipients(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadRecipientsMissingFile(t *testing.T) {
	if _, err := LoadRecipients(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
