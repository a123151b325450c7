// Package store provides database access for transfer history.
package store

import (
	"context"
	"errors"

	"github.com/rudransh-shrivastava/peer-drop/internal/db"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("transfer not found")

type TransferStore struct {
	DB *gorm.DB
}

func NewTransferStore(gdb *gorm.DB) *TransferStore {
	return &TransferStore{DB: gdb}
}

func (ts *TransferStore) CreateTransfer(ctx context.Context, t *db.Transfer) error {
	return ts.DB.WithContext(ctx).Create(t).Error
}

// GetTransfers returns the most recent transfers first. A limit <= 0 means
// all of them.
func (ts *TransferStore) GetTransfers(ctx context.Context, limit int) ([]db.Transfer, error) {
	var transfers []db.Transfer
	q := ts.DB.WithContext(ctx).Order("finished_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

func (ts *TransferStore) GetTransferBySessionID(ctx context.Context, sessionID string) (db.Transfer, error) {
	var t db.Transfer
	err := ts.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Transfer{}, ErrNotFound
	}
	return t, err
}

func (ts *TransferStore) CountByState(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		State string
		Count int64
	}
	err := ts.DB.WithContext(ctx).Model(&db.Transfer{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.Count
	}
	return counts, nil
}

var _ TransferRepository = (*TransferStore)(nil)
