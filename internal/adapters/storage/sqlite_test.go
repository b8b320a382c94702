package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/roundbet/internal/adapters/storage"
	"github.com/alejandrodnm/roundbet/internal/domain"
)

func newStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func resolvedRound(id uint64) domain.Round {
	start := time.Unix(1_700_000_000, 0).UTC()
	end := start.Add(time.Hour)
	sp, ep := 145.12, 146.5
	out := domain.DirectionUp
	return domain.Round{
		ID: id, StartTime: &start, EndTime: &end, StartPrice: &sp, EndPrice: &ep,
		TotalBetsUp: 0.75, TotalBetsDown: 0.25, TotalPool: 1, WinningPool: 0.75,
		Outcome: &out,
	}
}

func TestSQLiteStorage_RoundRoundTrip(t *testing.T) {
	db := newStorage(t)
	ctx := context.Background()

	want := resolvedRound(7)
	require.NoError(t, db.PutRound(ctx, want))

	got, err := db.GetRound(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLiteStorage_IgnoresUnresolvedRounds(t *testing.T) {
	db := newStorage(t)
	ctx := context.Background()

	require.NoError(t, db.PutRound(ctx, domain.Round{ID: 3, IsActive: true}))
	_, err := db.GetRound(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStorage_PlaceholderTimesStayNil(t *testing.T) {
	db := newStorage(t)
	ctx := context.Background()

	out := domain.DirectionDown
	require.NoError(t, db.PutRound(ctx, domain.Round{ID: 1, Outcome: &out}))

	got, err := db.GetRound(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.StartPrice)
	assert.Equal(t, domain.DirectionDown, *got.Outcome)
}

func TestSQLiteStorage_PutRoundTwice(t *testing.T) {
	db := newStorage(t)
	ctx := context.Background()

	require.NoError(t, db.PutRound(ctx, resolvedRound(9)))
	require.NoError(t, db.PutRound(ctx, resolvedRound(9)))
}

func TestSQLiteStorage_Journal(t *testing.T) {
	db := newStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	up := domain.DirectionUp
	first := domain.TxRecord{
		TxHandle:  domain.TxHandle{ID: uuid.New(), Kind: domain.TxPlaceBet, RoundID: 11, SubmittedAt: base},
		Direction: &up,
		Lamports:  250_000_000,
		Status:    domain.TxSubmitted,
	}
	second := domain.TxRecord{
		TxHandle: domain.TxHandle{ID: uuid.New(), Kind: domain.TxClaim, RoundID: 9, Signature: "sig", SubmittedAt: base.Add(time.Second)},
		Status:   domain.TxRejected,
		Error:    "ledger rejected: Claimed",
	}
	require.NoError(t, db.SaveTx(ctx, first))
	require.NoError(t, db.SaveTx(ctx, second))

	// el mismo id actualiza estado y firma
	first.Status = domain.TxConfirmed
	first.Signature = "5abc"
	require.NoError(t, db.SaveTx(ctx, first))

	recs, err := db.RecentTxs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second, recs[0])
	assert.Equal(t, first, recs[1])

	recs, err = db.RecentTxs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = db.RecentTxs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
