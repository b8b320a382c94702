package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/roundbet/internal/application/fetcher"
	"github.com/alejandrodnm/roundbet/internal/application/reconcile"
	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ledgertest"
	"github.com/alejandrodnm/roundbet/internal/program"
)

const waitFor = 2 * time.Second

func i64(v int64) *int64 { return &v }

type harness struct {
	ledger  *ledgertest.Ledger
	watcher *ledgertest.Watcher
	store   *reconcile.ViewStore
	mgr     *reconcile.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := ledgertest.New(solana.SystemProgramID)
	w := &ledgertest.Watcher{}
	store := reconcile.NewViewStore()
	f := fetcher.New(l, l.Addrs, nil)
	return &harness{ledger: l, watcher: w, store: store, mgr: reconcile.New(f, w, store, nil)}
}

// seedRound puts state, current and next rounds for current id.
func (h *harness) seedRound(current uint64) {
	start := int64(1_700_000_000) + int64(current)*3600
	h.ledger.PutState(current, start)
	h.ledger.PutRound(program.RoundAccount{
		ID: current, StartTime: i64(start), EndTime: i64(start + 3600),
		StartPrice: i64(15_000_000_000), IsActive: true,
	})
	h.ledger.PutRound(program.RoundAccount{ID: current + 1, IsActive: true})
}

func nextView(t *testing.T, s *reconcile.ViewStore) domain.View {
	t.Helper()
	select {
	case v := <-s.Updates():
		return v
	case <-time.After(waitFor):
		t.Fatal("no view published")
		return domain.View{}
	}
}

func TestManager_StartRunsInitialResync(t *testing.T) {
	h := newHarness(t)
	h.seedRound(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.mgr.Start(ctx))
	assert.Equal(t, reconcile.Subscribed, h.mgr.State())

	v := nextView(t, h.store)
	assert.Equal(t, uint64(1), v.Seq)
	assert.True(t, v.Synced())
	assert.Equal(t, uint64(10), v.State.CurrentRoundID)
	require.NotNil(t, v.Current)
	require.NotNil(t, v.Next)
	assert.Equal(t, uint64(11), v.Next.ID)
	assert.Len(t, v.Expired, 3)

	subs := h.watcher.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, h.ledger.Addrs.State(), subs[0].Address)
}

func TestManager_ResyncPerNotification(t *testing.T) {
	h := newHarness(t)
	h.seedRound(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.mgr.Start(ctx))
	nextView(t, h.store)

	h.seedRound(11)
	h.watcher.Subscriptions()[0].Notify()

	v := nextView(t, h.store)
	assert.Equal(t, uint64(2), v.Seq)
	assert.Equal(t, uint64(11), v.State.CurrentRoundID)
	assert.Equal(t, uint64(12), v.Next.ID)
	assert.Equal(t, v, h.store.Snapshot())
}

func TestManager_StartTwiceKeepsOneSubscription(t *testing.T) {
	h := newHarness(t)
	h.seedRound(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.mgr.Start(ctx))
	assert.ErrorIs(t, h.mgr.Start(ctx), reconcile.ErrAlreadySubscribed)
	assert.Len(t, h.watcher.Subscriptions(), 1)
}

func TestManager_StopUnsubscribes(t *testing.T) {
	h := newHarness(t)
	h.seedRound(3)

	require.NoError(t, h.mgr.Start(context.Background()))
	nextView(t, h.store)

	require.NoError(t, h.mgr.Stop())
	assert.Equal(t, reconcile.Idle, h.mgr.State())
	assert.True(t, h.watcher.Subscriptions()[0].Closed())

	select {
	case <-h.mgr.Done():
	case <-time.After(waitFor):
		t.Fatal("loop did not exit after Stop")
	}

	// idempotente
	require.NoError(t, h.mgr.Stop())

	// se puede volver a suscribir
	require.NoError(t, h.mgr.Start(context.Background()))
	assert.Len(t, h.watcher.Subscriptions(), 2)
	require.NoError(t, h.mgr.Stop())
}

func TestManager_ContextCancelTearsDown(t *testing.T) {
	h := newHarness(t)
	h.seedRound(3)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, h.mgr.Start(ctx))
	nextView(t, h.store)
	cancel()

	select {
	case <-h.mgr.Done():
	case <-time.After(waitFor):
		t.Fatal("loop did not exit on cancel")
	}
	assert.True(t, h.watcher.Subscriptions()[0].Closed())
	assert.Equal(t, reconcile.Idle, h.mgr.State())
}

func TestManager_TransportFailureKeepsLastView(t *testing.T) {
	h := newHarness(t)
	h.seedRound(10)
	ctx := context.Background()

	good, err := h.mgr.Resync(ctx)
	require.NoError(t, err)

	h.ledger.Fail(h.ledger.Addrs.State())
	_, err = h.mgr.Resync(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
	assert.Equal(t, good, h.store.Snapshot())

	h.ledger.Heal(h.ledger.Addrs.State())
	h.ledger.Fail(h.ledger.Addrs.Round(8))
	_, err = h.mgr.Resync(ctx)
	require.Error(t, err)
	assert.Equal(t, good.Seq, h.store.Snapshot().Seq)
}

func TestManager_NextRoundNotYetVisible(t *testing.T) {
	h := newHarness(t)
	h.seedRound(10)
	h.ledger.Delete(h.ledger.Addrs.Round(11))

	v, err := h.mgr.Resync(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, v.Current)
	assert.Nil(t, v.Next)
}

func TestManager_WatchFailure(t *testing.T) {
	h := newHarness(t)
	h.watcher.Err = &domain.TransportError{Op: "ws", Err: assert.AnError}

	err := h.mgr.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, reconcile.Idle, h.mgr.State())
}

func TestViewStore_LatestUpdateWins(t *testing.T) {
	s := reconcile.NewViewStore()
	s.Replace(domain.View{})
	s.Replace(domain.View{})
	last := s.Replace(domain.View{})

	assert.Equal(t, uint64(3), last.Seq)
	got := <-s.Updates()
	assert.Equal(t, uint64(3), got.Seq)

	snap := s.Snapshot()
	snap.Expired = append(snap.Expired, domain.ExpiredRound{})
	assert.Empty(t, s.Snapshot().Expired)
}
