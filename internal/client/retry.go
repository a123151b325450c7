package client

import (
	"context"
	"errors"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/transfer"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
)

const retryInterval = 200 * time.Millisecond

// ReceiveWithRetry retries refused connections for up to window. Between
// files of a batch the sender needs a moment to listen again.
func ReceiveWithRetry(ctx context.Context, r *transfer.Receiver, addr peer.Address, window time.Duration) (transfer.Result, error) {
	deadline := time.Now().Add(window)
	for {
		res, err := r.ReceiveFrom(ctx, addr)
		if !errors.Is(err, transport.ErrConnectionRefused) || time.Now().After(deadline) {
			return res, err
		}

		select {
		case <-ctx.Done():
			return res, err
		case <-time.After(retryInterval):
		}
	}
}
