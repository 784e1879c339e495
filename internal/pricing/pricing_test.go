package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatic(t *testing.T) {
	s := NewStatic(map[string]float64{"eth": 2500, "XLM": 0.11})

	p, err := s.PriceUSD(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p != 2500 {
		t.Errorf("expected 2500, got %v", p)
	}

	if _, err := s.PriceUSD(context.Background(), "DOGE"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/prices/BTC":
			json.NewEncoder(w).Encode(map[string]interface{}{"symbol": "BTC", "usd": 64200.5})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	h := NewHTTP(server.URL)

	p, err := h.PriceUSD(context.Background(), "btc")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p != 64200.5 {
		t.Errorf("expected 64200.5, got %v", p)
	}

	if _, err := h.PriceUSD(context.Background(), "UNKNOWN"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice on 404, got %v", err)
	}
}

func TestChain_FallsBackToStatic(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := NewChain(NewHTTP(server.URL), NewStatic(map[string]float64{"DOT": 4.2}))

	p, err := c.PriceUSD(context.Background(), "DOT")
	if err != nil {
		t.Fatalf("chained lookup: %v", err)
	}
	if p != 4.2 {
		t.Errorf("expected fallback price 4.2, got %v", p)
	}
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain(NewStatic(nil), NewStatic(nil))
	if _, err := c.PriceUSD(context.Background(), "ATOM"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestChain_Empty(t *testing.T) {
	c := NewChain()
	if _, err := c.PriceUSD(context.Background(), "ATOM"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}
