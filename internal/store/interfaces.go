package store

import (
	"context"

	"github.com/rudransh-shrivastava/peer-drop/internal/db"
)

// TransferRepository defines transfer history operations.
type TransferRepository interface {
	CreateTransfer(ctx context.Context, t *db.Transfer) error
	GetTransfers(ctx context.Context, limit int) ([]db.Transfer, error)
	GetTransferBySessionID(ctx context.Context, sessionID string) (db.Transfer, error)
	CountByState(ctx context.Context) (map[string]int64, error)
}
