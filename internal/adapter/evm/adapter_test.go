package evm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"multichain-distributor/internal/domain"
)

// rpcHandler answers JSON-RPC methods from a map of canned results.
func rpcHandler(t *testing.T, results map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64        `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		result, ok := results[req.Method]
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func testConfig(endpoint string) Config {
	return Config{
		Enabled:       true,
		Network:       "ethereum",
		NetworkName:   "Ethereum",
		Endpoint:      endpoint,
		WalletAddress: "0x00000000000000000000000000000000000000aa",
		NativeSymbol:  "ETH",
	}
}

func nativeContext(t *testing.T, a *Adapter) domain.NetworkContext {
	t.Helper()
	contexts, err := a.DiscoverContexts(context.Background(), domain.TokenPreferences{})
	if err != nil {
		t.Fatalf("discover contexts: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected 1 context, got %d", len(contexts))
	}
	return contexts[0]
}

func TestDiscoverContexts_Disabled(t *testing.T) {
	a := New(Config{Enabled: false, Network: "ethereum"})
	contexts, err := a.DiscoverContexts(context.Background(), domain.TokenPreferences{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(contexts) != 0 {
		t.Errorf("disabled network produced %d contexts", len(contexts))
	}
}

func TestDiscoverContexts_MissingEndpoint(t *testing.T) {
	a := New(Config{Enabled: true, Network: "ethereum"})
	contexts, err := a.DiscoverContexts(context.Background(), domain.TokenPreferences{})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if len(contexts) != 0 {
		t.Errorf("misconfigured network produced %d contexts", len(contexts))
	}
}

func TestDiscoverContexts_ContractToken(t *testing.T) {
	cfg := testConfig("http://localhost:0")
	cfg.ContractAddress = "0x00000000000000000000000000000000000000cc"
	cfg.TokenSymbol = "USDC"
	cfg.TokenDecimals = 6
	a := New(cfg)

	prefs := domain.TokenPreferences{Kinds: []domain.TokenKind{domain.TokenNative, domain.TokenContract}}
	contexts, err := a.DiscoverContexts(context.Background(), prefs)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(contexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(contexts))
	}
	if contexts[1].TokenKind != domain.TokenContract || contexts[1].TokenSymbol != "USDC" {
		t.Errorf("unexpected contract context: %+v", contexts[1])
	}
}

func TestWalletBalance_Native(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{
		"eth_getBalance": "0xde0b6b3a7640000", // 1 ETH in wei
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	nc := nativeContext(t, a)

	bal, err := a.WalletBalance(context.Background(), nc)
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if bal != 1.0 {
		t.Errorf("expected 1.0 ETH, got %v", bal)
	}
}

func TestWalletBalance_EndpointError(t *testing.T) {
	// Empty method map: every call answers with an RPC error.
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{}))
	defer server.Close()

	a := New(testConfig(server.URL))
	nc := nativeContext(t, a)
	if _, err := a.WalletBalance(context.Background(), nc); err == nil {
		t.Fatal("expected communication error")
	}
}

func TestDynamicFeeReserve_FallbackOnError(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.DefaultGasPriceWei = 10_000_000_000
	a := New(cfg)
	nc := nativeContext(t, a)

	reserve := a.DynamicFeeReserve(context.Background(), nc)
	// 10 gwei * 21000 gas * 10 payments = 0.0021 ETH
	if reserve != 0.0021 {
		t.Errorf("expected fallback reserve 0.0021, got %v", reserve)
	}
}

func TestEstimateTransfer_InvalidAddress(t *testing.T) {
	a := New(testConfig("http://127.0.0.1:1"))
	nc := nativeContext(t, a)

	est, err := a.EstimateTransfer(context.Background(), nc, "not-an-address", 1.0)
	if err != nil {
		t.Fatalf("estimate must not error on bad address: %v", err)
	}
	if !est.Deferred() {
		t.Fatal("expected deferral for invalid address")
	}
}

func TestEstimateTransfer_AmountBelowFee(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, map[string]interface{}{
		"eth_gasPrice": "0x4a817c800", // 20 gwei
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	nc := nativeContext(t, a)

	// fee = 20 gwei * 21000 = 0.00042 ETH; request less than that
	est, err := a.EstimateTransfer(context.Background(), nc, "0x00000000000000000000000000000000000000bb", 0.0001)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !est.Deferred() {
		t.Fatal("expected deferral when amount does not exceed fee")
	}
}

func TestSendTransfer_Native(t *testing.T) {
	var sentTx map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64                   `json:"id"`
			Method string                   `json:"method"`
			Params []map[string]interface{} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_sendTransaction" {
			t.Errorf("expected eth_sendTransaction, got %s", req.Method)
		}
		if len(req.Params) == 1 {
			sentTx = req.Params[0]
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": "0xtxhash1",
		})
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	nc := nativeContext(t, a)

	ref, err := a.SendTransfer(context.Background(), nc, "0x00000000000000000000000000000000000000bb", 1.5)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if ref != "0xtxhash1" {
		t.Errorf("expected tx hash, got %q", ref)
	}
	if sentTx["value"] != "0x14d1120d7b160000" { // 1.5 ETH
		t.Errorf("unexpected value field: %v", sentTx["value"])
	}
}

func TestSendTransfer_BroadcastRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]interface{}{"code": -32000, "message": "insufficient funds"},
		})
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	nc := nativeContext(t, a)

	if _, err := a.SendTransfer(context.Background(), nc, "0x00000000000000000000000000000000000000bb", 1.5); err == nil {
		t.Fatal("expected broadcast rejection error")
	}
}

func TestSendTransfer_NoRetryOnTransportFailure(t *testing.T) {
	var sendCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_sendTransaction" {
			t.Errorf("expected eth_sendTransaction, got %s", req.Method)
		}
		// First request: drop the connection after the node may already
		// have accepted the transaction. Any second request would be a
		// duplicate broadcast.
		if atomic.AddInt32(&sendCalls, 1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": "0xtxhash2",
		})
	}))
	defer server.Close()

	a := New(testConfig(server.URL))
	nc := nativeContext(t, a)

	ref, err := a.SendTransfer(context.Background(), nc, "0x00000000000000000000000000000000000000bb", 1.5)
	if err == nil {
		t.Fatalf("expected transport error, got tx ref %q", ref)
	}
	if n := atomic.LoadInt32(&sendCalls); n != 1 {
		t.Fatalf("eth_sendTransaction broadcast %d times for one candidate", n)
	}
}

func TestValidAddress(t *testing.T) {
	valid := []string{
		"0x00000000000000000000000000000000000000aa",
		"0xDeaDbeefdEAdbeefdEadbEEFdeadbeEFdEaDbeeF",
	}
	for _, addr := range valid {
		if !ValidAddress(addr) {
			t.Errorf("expected %q valid", addr)
		}
	}

	invalid := []string{
		"",
		"0x123",
		"00000000000000000000000000000000000000aaaa",
		"0x0000000000000000000000000000000000000zzz",
	}
	for _, addr := range invalid {
		if ValidAddress(addr) {
			t.Errorf("expected %q invalid", addr)
		}
	}
}
