// Package ledgertest provides in-memory stand-ins for the ledger ports, for
// use in tests.
package ledgertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
	"github.com/alejandrodnm/roundbet/internal/program"
)

// Ledger is an in-memory account store implementing ports.AccountReader.
type Ledger struct {
	Addrs *program.Deriver

	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	failures map[solana.PublicKey]error
	reads    map[solana.PublicKey]int
}

// New returns an empty ledger for programID.
func New(programID solana.PublicKey) *Ledger {
	return &Ledger{
		Addrs:    program.NewDeriver(programID),
		accounts: make(map[solana.PublicKey][]byte),
		failures: make(map[solana.PublicKey]error),
		reads:    make(map[solana.PublicKey]int),
	}
}

// GetAccountData implements ports.AccountReader.
func (l *Ledger) GetAccountData(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.TransportError{Op: "ledgertest.GetAccountData", Err: err}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads[addr]++
	if err, ok := l.failures[addr]; ok {
		return nil, err
	}
	data, ok := l.accounts[addr]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Set stores raw bytes at addr.
func (l *Ledger) Set(addr solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[addr] = data
}

// Delete removes the account at addr.
func (l *Ledger) Delete(addr solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, addr)
}

// Fail makes every read of addr return a transport error.
func (l *Ledger) Fail(addr solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[addr] = &domain.TransportError{
		Op:  "ledgertest.GetAccountData",
		Err: fmt.Errorf("rpc unavailable for %s", addr),
	}
}

// Heal undoes Fail.
func (l *Ledger) Heal(addr solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, addr)
}

// Reads returns how many times addr was read.
func (l *Ledger) Reads(addr solana.PublicKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads[addr]
}

// PutState stores the state account pointing at current and current+1.
func (l *Ledger) PutState(current uint64, startUnix int64) {
	l.Set(l.Addrs.State(), program.StateAccount{
		CurrentRoundID: current,
		NextRoundID:    current + 1,
		CurrentRound:   l.Addrs.Round(current),
		NextRound:      l.Addrs.Round(current + 1),
		RoundStartTime: startUnix,
	}.Encode())
}

// PutRound stores a round account at its derived address.
func (l *Ledger) PutRound(r program.RoundAccount) {
	l.Set(l.Addrs.Round(r.ID), r.Encode())
}

// PutBet stores a user bet account at its derived address.
func (l *Ledger) PutBet(b program.UserBetAccount) {
	l.Set(l.Addrs.UserBet(b.RoundID, b.User), b.Encode())
}

// Submitter records submitted instructions and implements ports.InstructionSubmitter.
type Submitter struct {
	PayerKey solana.PublicKey
	Err      error

	mu  sync.Mutex
	ixs []solana.Instruction
}

// Payer implements ports.InstructionSubmitter.
func (s *Submitter) Payer() solana.PublicKey { return s.PayerKey }

// Submit implements ports.InstructionSubmitter.
func (s *Submitter) Submit(_ context.Context, ix solana.Instruction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ixs = append(s.ixs, ix)
	if s.Err != nil {
		return "", s.Err
	}
	return fmt.Sprintf("sig%d", len(s.ixs)), nil
}

// Submitted returns every instruction seen so far.
func (s *Submitter) Submitted() []solana.Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]solana.Instruction(nil), s.ixs...)
}

// Watcher hands out subscriptions that tests trigger by hand. It implements
// ports.AccountWatcher.
type Watcher struct {
	Err error

	mu   sync.Mutex
	subs []*Subscription
}

// WatchAccount implements ports.AccountWatcher.
func (w *Watcher) WatchAccount(_ context.Context, addr solana.PublicKey) (ports.AccountSubscription, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	sub := &Subscription{Address: addr, ch: make(chan struct{}, 16)}
	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()
	return sub, nil
}

// Subscriptions returns every subscription opened so far.
func (w *Watcher) Subscriptions() []*Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Subscription(nil), w.subs...)
}

// Subscription is a manually driven ports.AccountSubscription.
type Subscription struct {
	Address solana.PublicKey

	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

// Changes implements ports.AccountSubscription.
func (s *Subscription) Changes() <-chan struct{} { return s.ch }

// Notify pushes one change notification. It is a no-op once closed.
func (s *Subscription) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.ch <- struct{}{}
	}
}

// Close implements ports.AccountSubscription.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

// Closed reports whether Close was called.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
