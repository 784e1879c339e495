// Package pricing resolves USD prices for distributed tokens. The
// orchestrator sizes candidates as TargetUSD / price, so a missing price
// means the network's candidates cannot be computed at all; lookups
// therefore chain a live HTTP source with a static fallback table.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"multichain-distributor/internal/rpc"
)

// ErrNoPrice is returned when no source can price a symbol.
var ErrNoPrice = errors.New("no price data available")

// Lookup resolves the USD price of a token symbol.
type Lookup interface {
	PriceUSD(ctx context.Context, symbol string) (float64, error)
}

// Static is a fixed symbol -> USD table.
type Static struct {
	prices map[string]float64
}

// NewStatic builds a static lookup. Symbols are case-insensitive.
func NewStatic(prices map[string]float64) *Static {
	m := make(map[string]float64, len(prices))
	for sym, p := range prices {
		m[strings.ToUpper(sym)] = p
	}
	return &Static{prices: m}
}

// PriceUSD returns the configured price or ErrNoPrice.
func (s *Static) PriceUSD(_ context.Context, symbol string) (float64, error) {
	p, ok := s.prices[strings.ToUpper(symbol)]
	if !ok || p <= 0 {
		return 0, fmt.Errorf("symbol %s: %w", symbol, ErrNoPrice)
	}
	return p, nil
}

// HTTP queries a price API exposing GET {base}/v1/prices/{symbol} with a
// {"symbol": ..., "usd": ...} body.
type HTTP struct {
	client *rpc.RESTClient
}

// NewHTTP creates an HTTP price lookup against the given base URL.
func NewHTTP(endpoint string) *HTTP {
	return &HTTP{client: rpc.NewRESTClient(endpoint, 0)}
}

// PriceUSD fetches a live price. A 404 or a non-positive quote maps to
// ErrNoPrice; transport failures surface as-is so callers can distinguish
// "unknown symbol" from "source down".
func (h *HTTP) PriceUSD(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Symbol string  `json:"symbol"`
		USD    float64 `json:"usd"`
	}
	err := h.client.GetJSON(ctx, "/v1/prices/"+strings.ToUpper(symbol), &resp)
	if err != nil {
		var httpErr *rpc.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == 404 {
			return 0, fmt.Errorf("symbol %s: %w", symbol, ErrNoPrice)
		}
		return 0, fmt.Errorf("price source: %w", err)
	}
	if resp.USD <= 0 {
		return 0, fmt.Errorf("symbol %s: non-positive quote %g: %w", symbol, resp.USD, ErrNoPrice)
	}
	return resp.USD, nil
}

// Chain tries each lookup in order and returns the first success.
type Chain struct {
	sources []Lookup
}

// NewChain builds a fallback chain. Typical wiring: NewChain(NewHTTP(url),
// NewStatic(table)).
func NewChain(sources ...Lookup) *Chain {
	return &Chain{sources: sources}
}

// PriceUSD returns the first successful quote. If every source fails, the
// last error is returned.
func (c *Chain) PriceUSD(ctx context.Context, symbol string) (float64, error) {
	if len(c.sources) == 0 {
		return 0, ErrNoPrice
	}
	var lastErr error
	for _, src := range c.sources {
		p, err := src.PriceUSD(ctx, symbol)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

var (
	_ Lookup = (*Static)(nil)
	_ Lookup = (*HTTP)(nil)
	_ Lookup = (*Chain)(nil)
)
