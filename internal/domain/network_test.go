package domain

import "testing"

func validContext() NetworkContext {
	return NetworkContext{
		Kind:           AdapterEVM,
		Network:        "ethereum",
		NetworkName:    "Ethereum",
		TokenKind:      TokenNative,
		TokenSymbol:    "ETH",
		TokenDecimals:  18,
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
	}
}

func TestNetworkContextValidate(t *testing.T) {
	if err := validContext().Validate(); err != nil {
		t.Fatalf("valid context rejected: %v", err)
	}

	nc := validContext()
	nc.Network = ""
	if err := nc.Validate(); err == nil {
		t.Error("empty network identifier accepted")
	}

	nc = validContext()
	nc.TokenDecimals = 0
	if err := nc.Validate(); err == nil {
		t.Error("zero token decimals accepted")
	}

	nc = validContext()
	nc.TokenSymbol = "WETH"
	if err := nc.Validate(); err == nil {
		t.Error("native context with mismatched token symbol accepted")
	}

	nc = validContext()
	nc.TokenKind = TokenContract
	nc.TokenSymbol = "USDC"
	nc.TokenDecimals = 6
	if err := nc.Validate(); err != nil {
		t.Errorf("contract context rejected: %v", err)
	}
}

func TestTokenPreferencesWants(t *testing.T) {
	var empty TokenPreferences
	if !empty.Wants(TokenNative) {
		t.Error("empty preferences should want native")
	}
	if empty.Wants(TokenContract) {
		t.Error("empty preferences should not want contract tokens")
	}

	both := TokenPreferences{Kinds: []TokenKind{TokenNative, TokenContract}}
	if !both.Wants(TokenContract) || !both.Wants(TokenNative) {
		t.Error("explicit preferences should want both kinds")
	}
}

func TestRecipientAddressOn(t *testing.T) {
	r := Recipient{
		ID:        "alice",
		TargetUSD: 100,
		Addresses: map[string]string{"ethereum": "0xabc", "bitcoin": ""},
	}

	if addr, ok := r.AddressOn("ethereum"); !ok || addr != "0xabc" {
		t.Errorf("expected ethereum address, got %q, %v", addr, ok)
	}
	if _, ok := r.AddressOn("bitcoin"); ok {
		t.Error("empty address should exclude the recipient")
	}
	if _, ok := r.AddressOn("stellar"); ok {
		t.Error("missing network should exclude the recipient")
	}
}
