package client

import (
	"context"
	"errors"
	"os"

	"github.com/rudransh-shrivastava/peer-drop/internal/db"
	"github.com/rudransh-shrivastava/peer-drop/internal/files"
	"github.com/rudransh-shrivastava/peer-drop/internal/store"
	"github.com/rudransh-shrivastava/peer-drop/internal/transfer"
	"github.com/sirupsen/logrus"
)

// History records finished transfers. A nil *History records nothing.
type History struct {
	repo   store.TransferRepository
	logger *logrus.Logger
}

func NewHistory(repo store.TransferRepository, logger *logrus.Logger) *History {
	return &History{repo: repo, logger: logger}
}

// Record stores res. Failures are logged and never abort the transfer flow.
func (h *History) Record(ctx context.Context, res transfer.Result) {
	if h == nil {
		return
	}

	row := toRow(res)
	if res.State == transfer.StateCompleted && res.Path != "" {
		if sum, err := checksum(res.Path); err == nil {
			row.Checksum = sum
		} else {
			h.logger.WithError(err).Debug("Could not hash transferred file")
		}
	}

	if err := h.repo.CreateTransfer(ctx, row); err != nil {
		h.logger.WithError(err).Warn("Could not record transfer history")
	}
}

func toRow(res transfer.Result) *db.Transfer {
	row := &db.Transfer{
		SessionID:        res.SessionID.String(),
		Direction:        res.Direction.String(),
		FileName:         res.FileName,
		FilePath:         res.Path,
		FileSize:         res.TotalBytes,
		BytesTransferred: res.BytesTransferred,
		RemoteAddr:       res.Remote,
		State:            res.State.String(),
		StartedAt:        res.StartedAt.Unix(),
		FinishedAt:       res.FinishedAt.Unix(),
	}
	if res.Peer.IsValid() {
		row.PeerToken = res.Peer.Encode()
	}
	if res.Err != nil {
		row.Error = res.Err.Error()
	}
	if len(res.Warnings) > 0 {
		row.Warning = errors.Join(res.Warnings...).Error()
	}
	return row
}

func checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return files.HashFile(f)
}
