package domain

import "fmt"

// AdapterKind identifies the execution model of a chain adapter.
type AdapterKind string

const (
	AdapterEVM       AdapterKind = "EVM"
	AdapterUTXO      AdapterKind = "UTXO"
	AdapterSequenced AdapterKind = "ACCOUNT_SEQUENCED"
	AdapterSubstrate AdapterKind = "SUBSTRATE"
	AdapterFederated AdapterKind = "FEDERATED_LEDGER"
)

func (k AdapterKind) String() string {
	return string(k)
}

// TokenKind distinguishes a chain's native token from a contract-issued one.
type TokenKind string

const (
	TokenNative   TokenKind = "NATIVE"
	TokenContract TokenKind = "FUNGIBLE_CONTRACT"
)

func (k TokenKind) String() string {
	return string(k)
}

// TokenPreferences narrows which token kinds context discovery should offer.
// An empty Kinds slice means native-only.
type TokenPreferences struct {
	Kinds []TokenKind
}

// Wants reports whether the given kind was requested.
func (p TokenPreferences) Wants(kind TokenKind) bool {
	if len(p.Kinds) == 0 {
		return kind == TokenNative
	}
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NetworkContext describes one (adapter kind, network, token) triple that is
// currently usable for distribution. Contexts are rebuilt from live
// configuration on every cycle and never persisted; ledger records reference
// only the Network identifier.
type NetworkContext struct {
	Kind           AdapterKind
	Network        string  // stable network identifier, e.g. "ethereum"
	NetworkName    string  // human-readable name
	TokenKind      TokenKind
	TokenSymbol    string
	TokenDecimals  int32
	NativeSymbol   string  // fee-paying token symbol; may differ from TokenSymbol
	NativeDecimals int32
	WalletAddress  string  // sending wallet address, optional
	DefaultFee     float64 // fallback fee estimate in native token units, optional
}

// Validate checks the context invariants: positive decimal precision and
// native contexts distributing the native symbol itself.
func (nc NetworkContext) Validate() error {
	if nc.Network == "" {
		return fmt.Errorf("network context: empty network identifier")
	}
	if nc.TokenDecimals <= 0 {
		return fmt.Errorf("network context %s: token decimals must be positive, got %d", nc.Network, nc.TokenDecimals)
	}
	if nc.NativeDecimals <= 0 {
		return fmt.Errorf("network context %s: native decimals must be positive, got %d", nc.Network, nc.NativeDecimals)
	}
	if nc.TokenKind == TokenNative && nc.TokenSymbol != nc.NativeSymbol {
		return fmt.Errorf("network context %s: native token symbol %q does not match native symbol %q",
			nc.Network, nc.TokenSymbol, nc.NativeSymbol)
	}
	return nil
}
