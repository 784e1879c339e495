package evm

import (
	"context"
	"time"

	"multichain-distributor/internal/domain"
	"multichain-distributor/internal/rpc"
)

// awaitConfirmation waits, best effort, for the sent transaction to be
// mined: it subscribes to new heads over WebSocket and checks the receipt on
// each head until the deadline. Purely informational: a timeout or any
// error here never changes the SENT outcome.
func (a *Adapter) awaitConfirmation(ctx context.Context, nc domain.NetworkContext, txHash string) {
	confirmCtx, cancel := context.WithTimeout(ctx, a.cfg.ConfirmTimeout)
	defer cancel()

	if a.ws == nil {
		ws, err := rpc.NewWSClient(confirmCtx, a.cfg.WSEndpoint, nil)
		if err != nil {
			a.logf("confirmation watch unavailable: %v", err)
			return
		}
		a.ws = ws
	}

	heads, err := a.ws.SubscribeNewHeads(confirmCtx)
	if err != nil {
		a.logf("subscribe heads: %v", err)
		return
	}

	for {
		select {
		case <-confirmCtx.Done():
			a.logf("tx %s unconfirmed after %s", txHash, a.cfg.ConfirmTimeout)
			return
		case head, ok := <-heads:
			if !ok {
				return
			}
			if a.receiptMined(confirmCtx, txHash) {
				a.logf("tx %s confirmed at head %s", txHash, head.Number)
				return
			}
		}
	}
}

// receiptMined checks whether the transaction has a receipt with a block.
func (a *Adapter) receiptMined(ctx context.Context, txHash string) bool {
	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var receipt struct {
		BlockNumber string `json:"blockNumber"`
	}
	if err := a.client.Call(callCtx, "eth_getTransactionReceipt", []interface{}{txHash}, &receipt); err != nil {
		return false
	}
	return receipt.BlockNumber != ""
}
