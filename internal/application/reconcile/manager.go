// Package reconcile keeps a local View of the program in step with the ledger.
// A single change subscription on the state account triggers a full resync per
// notification.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/alejandrodnm/roundbet/internal/application/fetcher"
	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
)

// State is the subscription lifecycle of a Manager.
type State int

const (
	Idle State = iota
	Subscribed
)

func (s State) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "idle"
}

// ErrAlreadySubscribed is returned by Start when a subscription is live.
var ErrAlreadySubscribed = errors.New("reconcile: already subscribed")

// Manager drives resyncs of a ViewStore from state-account notifications.
type Manager struct {
	fetcher *fetcher.Fetcher
	watcher ports.AccountWatcher
	store   *ViewStore
	metrics ports.Metrics
	now     func() time.Time

	mu    sync.Mutex
	state State
	sub   ports.AccountSubscription
	done  chan struct{}

	resyncMu sync.Mutex
}

// New crea un Manager. metrics may be nil.
func New(f *fetcher.Fetcher, w ports.AccountWatcher, store *ViewStore, metrics ports.Metrics) *Manager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Manager{
		fetcher: f,
		watcher: w,
		store:   store,
		metrics: metrics,
		now:     time.Now,
	}
}

// Store returns the view store the manager writes to.
func (m *Manager) Store() *ViewStore { return m.store }

// State reports whether a subscription is live.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start registers one change subscription on the state account and begins
// reconciling: an initial resync, then one resync per notification.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Subscribed {
		return ErrAlreadySubscribed
	}

	addr := m.fetcher.Addresses().State()
	sub, err := m.watcher.WatchAccount(ctx, addr)
	if err != nil {
		return fmt.Errorf("reconcile.Start: watch %s: %w", addr, err)
	}
	m.sub = sub
	m.state = Subscribed
	m.done = make(chan struct{})

	go m.loop(ctx, sub, m.done)

	slog.Info("reconcile: subscribed", "state_account", addr)
	return nil
}

// Stop unregisters the subscription. A resync already running is left to
// finish; its view is replaced by the next one.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return nil
	}
	m.state = Idle
	err := m.sub.Close()
	m.sub = nil
	slog.Info("reconcile: unsubscribed")
	if err != nil {
		return fmt.Errorf("reconcile.Stop: %w", err)
	}
	return nil
}

// Done is closed when the reconcile loop of the last Start exits.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}

func (m *Manager) loop(ctx context.Context, sub ports.AccountSubscription, done chan struct{}) {
	defer close(done)

	m.resyncLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			m.release(sub)
			return
		case _, ok := <-sub.Changes():
			if !ok {
				m.release(sub)
				return
			}
			m.resyncLogged(ctx)
		}
	}
}

// release tears down sub if it is still the live subscription.
func (m *Manager) release(sub ports.AccountSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != sub {
		return
	}
	m.state = Idle
	m.sub = nil
	if err := sub.Close(); err != nil {
		slog.Warn("reconcile: close subscription", "err", err)
	}
}

func (m *Manager) resyncLogged(ctx context.Context) {
	if _, err := m.Resync(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("reconcile: resync failed, keeping last view", "err", err)
	}
}

// Resync reads state, current round, next round and expired rounds and
// replaces the view with the result. On failure the previous view is kept.
// A current or next round that has no account yet is left nil.
func (m *Manager) Resync(ctx context.Context) (domain.View, error) {
	m.resyncMu.Lock()
	defer m.resyncMu.Unlock()

	start := m.now()
	v, err := m.build(ctx)
	m.metrics.ObserveResync(m.now().Sub(start), err)
	if err != nil {
		return domain.View{}, err
	}
	v = m.store.Replace(v)
	slog.Debug("reconcile: view replaced",
		"seq", v.Seq,
		"current_round", v.State.CurrentRoundID,
		"expired", len(v.Expired),
	)
	return v, nil
}

func (m *Manager) build(ctx context.Context) (domain.View, error) {
	st, err := m.fetcher.FetchState(ctx)
	if err != nil {
		return domain.View{}, fmt.Errorf("reconcile.Resync: %w", err)
	}

	current, err := m.optionalRound(ctx, st.CurrentRoundAddress)
	if err != nil {
		return domain.View{}, err
	}
	next, err := m.optionalRound(ctx, st.NextRoundAddress)
	if err != nil {
		return domain.View{}, err
	}

	expired, err := m.fetcher.FetchExpiredRounds(ctx, st.CurrentRoundID, current)
	if err != nil {
		return domain.View{}, fmt.Errorf("reconcile.Resync: %w", err)
	}

	return domain.View{
		State:    st,
		Current:  current,
		Next:     next,
		Expired:  expired,
		SyncedAt: m.now(),
	}, nil
}

func (m *Manager) optionalRound(ctx context.Context, addr solana.PublicKey) (*domain.Round, error) {
	r, err := m.fetcher.FetchRound(ctx, addr)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Debug("reconcile: round not visible yet", "address", addr)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile.Resync: %w", err)
	}
	return &r, nil
}
