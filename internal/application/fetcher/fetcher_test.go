package fetcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/roundbet/internal/application/fetcher"
	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ledgertest"
	"github.com/alejandrodnm/roundbet/internal/program"
)

const hourStart = int64(1_700_000_000)

func i64(v int64) *int64 { return &v }
func u8(v uint8) *uint8  { return &v }

type mapCache struct {
	mu     sync.Mutex
	rounds map[uint64]domain.Round
}

func newMapCache() *mapCache { return &mapCache{rounds: map[uint64]domain.Round{}} }

func (c *mapCache) GetRound(_ context.Context, id uint64) (domain.Round, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return r, nil
}

func (c *mapCache) PutRound(_ context.Context, r domain.Round) error {
	if !r.Resolved() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds[r.ID] = r
	return nil
}

func resolvedRound(id uint64, outcome uint8) program.RoundAccount {
	start := hourStart - int64(10-id)*3600
	return program.RoundAccount{
		ID:            id,
		StartTime:     i64(start),
		EndTime:       i64(start + 3600),
		StartPrice:    i64(14_000_000_000),
		EndPrice:      i64(14_100_000_000),
		TotalBetsUp:   300_000_000,
		TotalBetsDown: 100_000_000,
		TotalPool:     400_000_000,
		Outcome:       u8(outcome),
	}
}

func setup(t *testing.T) (*ledgertest.Ledger, *fetcher.Fetcher, *mapCache) {
	t.Helper()
	l := ledgertest.New(solana.SystemProgramID)
	c := newMapCache()
	return l, fetcher.New(l, l.Addrs, c), c
}

func TestFetchState(t *testing.T) {
	l, f, _ := setup(t)
	l.PutState(10, hourStart)

	st, err := f.FetchState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), st.CurrentRoundID)
	assert.Equal(t, uint64(11), st.NextRoundID)
	assert.Equal(t, l.Addrs.Round(10), st.CurrentRoundAddress)
	assert.Equal(t, l.Addrs.Round(11), st.NextRoundAddress)
}

func TestFetchState_Errors(t *testing.T) {
	l, f, _ := setup(t)

	_, err := f.FetchState(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, domain.IsTransport(err))

	l.Set(l.Addrs.State(), []byte{1, 2, 3})
	_, err = f.FetchState(context.Background())
	assert.True(t, domain.IsTransport(err), "garbage bytes must not decode to zero values")
	assert.ErrorIs(t, err, program.ErrLayout)

	l.Fail(l.Addrs.State())
	_, err = f.FetchState(context.Background())
	assert.True(t, domain.IsTransport(err))
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchRoundByID_CachesResolvedRounds(t *testing.T) {
	l, f, c := setup(t)
	l.PutRound(resolvedRound(4, 0))
	l.PutRound(program.RoundAccount{ID: 10, IsActive: true})
	ctx := context.Background()

	r, err := f.FetchRoundByID(ctx, 4)
	require.NoError(t, err)
	assert.True(t, r.Resolved())
	_, err = f.FetchRoundByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Reads(l.Addrs.Round(4)), "second read served from cache")

	_, err = f.FetchRoundByID(ctx, 10)
	require.NoError(t, err)
	_, err = f.FetchRoundByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Reads(l.Addrs.Round(10)), "active rounds are always re-read")

	_, err = c.GetRound(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchRoundByID_WrongIDIsTransport(t *testing.T) {
	l, f, _ := setup(t)
	l.Set(l.Addrs.Round(3), resolvedRound(2, 1).Encode())

	_, err := f.FetchRoundByID(context.Background(), 3)
	assert.True(t, domain.IsTransport(err))
}

func TestFetchUserBet(t *testing.T) {
	l, f, _ := setup(t)
	user := solana.NewWallet().PublicKey()
	l.PutBet(program.UserBetAccount{RoundID: 6, User: user, Direction: 1, Amount: 250_000_000})

	bet, err := f.FetchUserBet(context.Background(), 6, user)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionDown, bet.Direction)
	assert.Equal(t, 0.25, bet.Amount)
	assert.False(t, bet.Claimed)

	_, err = f.FetchUserBet(context.Background(), 7, user)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchExpiredRounds_PlaceholderForMissingRound(t *testing.T) {
	l, f, _ := setup(t)
	const current = uint64(10)
	l.PutRound(resolvedRound(7, 0))
	l.PutRound(resolvedRound(9, 1))
	// round 8 was never created

	start := time.Unix(hourStart, 0).UTC()
	end := start.Add(time.Hour)
	cur := &domain.Round{ID: current, StartTime: &start, EndTime: &end, IsActive: true}

	got, err := f.FetchExpiredRounds(context.Background(), current, cur)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, uint64(7), got[0].ID)
	assert.False(t, got[0].Placeholder)
	assert.Equal(t, uint64(9), got[2].ID)

	ph := got[1]
	assert.True(t, ph.Placeholder)
	assert.Equal(t, uint64(8), ph.ID)
	assert.False(t, ph.IsActive)
	assert.Nil(t, ph.Outcome)
	assert.Zero(t, ph.TotalBetsUp)
	assert.Zero(t, ph.TotalBetsDown)
	assert.Zero(t, ph.TotalPool)
	require.NotNil(t, ph.StartTime)
	assert.Equal(t, start.Add(-2*time.Hour), *ph.StartTime)
	assert.Equal(t, end.Add(-2*time.Hour), *ph.EndTime)
}

func TestFetchExpiredRounds_NilCurrentTimes(t *testing.T) {
	_, f, _ := setup(t)

	got, err := f.FetchExpiredRounds(context.Background(), 5, &domain.Round{ID: 5})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.True(t, r.Placeholder)
		assert.Nil(t, r.StartTime)
		assert.Nil(t, r.EndTime)
	}
}

func TestFetchExpiredRounds_SkipsNegativeIDs(t *testing.T) {
	l, f, _ := setup(t)
	l.PutRound(resolvedRound(0, 0))

	got, err := f.FetchExpiredRounds(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].ID)

	got, err = f.FetchExpiredRounds(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchExpiredRounds_TransportFailureAborts(t *testing.T) {
	l, f, _ := setup(t)
	l.PutRound(resolvedRound(7, 0))
	l.Fail(l.Addrs.Round(8))

	_, err := f.FetchExpiredRounds(context.Background(), 10, nil)
	assert.True(t, domain.IsTransport(err))
}
