package payout

import (
	"context"
	"sync/atomic"

	"github.com/paywave/paywave/internal/flutterwave"
)

// Rail submits outbound transfers to the payment processor.
type Rail interface {
	SubmitTransfer(ctx context.Context, req flutterwave.TransferRequest) (flutterwave.TransferAck, error)
}

// StaticRail accepts every transfer without moving money. It backs dev mode
// when no processor key is configured; no completion callback ever arrives.
type StaticRail struct {
	seq atomic.Int64
}

// SubmitTransfer acknowledges req with a synthetic processor id.
func (r *StaticRail) SubmitTransfer(_ context.Context, req flutterwave.TransferRequest) (flutterwave.TransferAck, error) {
	id := r.seq.Add(1)
	return flutterwave.TransferAck{ID: id, Reference: req.Reference, Status: "NEW"}, nil
}
