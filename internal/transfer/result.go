// Package transfer moves one file between two peers over a transport
// channel, reporting progress and honoring cancellation.
package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/peer-drop/internal/peer"
	"github.com/rudransh-shrivastava/peer-drop/internal/transport"
)

var (
	ErrTransferFailed = errors.New("transfer failed")
	// ErrIOFailure also covers local disk errors.
	ErrIOFailure = transport.ErrIOFailure

	errIncomplete = errors.New("transfer ended before all bytes were exchanged")
)

// Result is the terminal outcome of one transfer. A canceled transfer is
// reported here with a nil error from Send or ReceiveFrom.
type Result struct {
	SessionID        uuid.UUID
	Direction        Direction
	State            State
	FileName         string
	Path             string
	Peer             peer.Address
	Remote           string
	BytesTransferred uint64
	TotalBytes       uint64
	StartedAt        time.Time
	FinishedAt       time.Time
	Err              error
	// Warnings hold cleanup failures, such as a partial file that could
	// not be removed.
	Warnings []error
}

func newResult(sess *Session, dir Direction) Result {
	return Result{
		SessionID: sess.ID,
		Direction: dir,
		State:     StateConnecting,
		StartedAt: time.Now(),
	}
}

// settle stamps the final session state onto res. Failures are wrapped with
// ErrTransferFailed; cancellation is not an error.
func settle(sess *Session, res Result, cause error) (Result, error) {
	snap := sess.Snapshot()
	res.BytesTransferred = snap.BytesTransferred
	res.TotalBytes = snap.TotalBytes
	res.FinishedAt = time.Now()

	switch {
	case cause == nil && snap.State == StateCompleted:
		res.State = StateCompleted
		return res, nil
	case sess.IsCanceled():
		sess.setState(StateCanceled)
		res.State = StateCanceled
		return res, nil
	}

	if cause == nil {
		cause = errIncomplete
	}
	sess.setState(StateFailed)
	res.State = StateFailed
	res.Err = fmt.Errorf("%w: %w", ErrTransferFailed, cause)
	return res, res.Err
}
