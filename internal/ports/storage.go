package ports

import (
	"context"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// RoundCache keeps resolved rounds, which never change once settled.
type RoundCache interface {
	// GetRound returns domain.ErrNotFound on a miss.
	GetRound(ctx context.Context, id uint64) (domain.Round, error)

	// PutRound stores a resolved round. Unresolved rounds are ignored.
	PutRound(ctx context.Context, round domain.Round) error
}

// TxJournal records every instruction submitted during the process lifetime.
type TxJournal interface {
	SaveTx(ctx context.Context, rec domain.TxRecord) error
	RecentTxs(ctx context.Context, limit int) ([]domain.TxRecord, error)
}
