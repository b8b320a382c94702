package solanarpc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
)

const changesBuffer = 16

// Watcher implementa ports.AccountWatcher sobre el websocket del cluster.
// Each subscription owns its own connection.
type Watcher struct {
	wsURL      string
	commitment rpc.CommitmentType
}

// NewWatcher crea un Watcher para wsURL.
func NewWatcher(wsURL string, commitment rpc.CommitmentType) *Watcher {
	return &Watcher{wsURL: wsURL, commitment: commitment}
}

// WatchAccount implements ports.AccountWatcher.
func (w *Watcher) WatchAccount(ctx context.Context, address solana.PublicKey) (ports.AccountSubscription, error) {
	client, err := ws.Connect(ctx, w.wsURL)
	if err != nil {
		return nil, &domain.TransportError{Op: "solanarpc.WatchAccount: connect " + w.wsURL, Err: err}
	}
	sub, err := client.AccountSubscribe(address, w.commitment)
	if err != nil {
		client.Close()
		return nil, &domain.TransportError{Op: "solanarpc.WatchAccount: subscribe " + address.String(), Err: err}
	}

	s := &accountSub{
		client:  client,
		sub:     sub,
		address: address,
		changes: make(chan struct{}, changesBuffer),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

type accountSub struct {
	client  *ws.Client
	sub     *ws.AccountSubscription
	address solana.PublicKey

	changes chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

func (s *accountSub) Changes() <-chan struct{} { return s.changes }

// readLoop forwards one value per notification. It closes changes when the
// stream ends, whether by Close or by a connection error.
func (s *accountSub) readLoop() {
	defer close(s.changes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()

	for {
		if _, err := s.sub.Recv(ctx); err != nil {
			select {
			case <-s.done:
			default:
				slog.Warn("solanarpc: account subscription ended", "account", s.address, "err", err)
			}
			return
		}
		select {
		case s.changes <- struct{}{}:
		case <-s.done:
			return
		}
	}
}

// Close unsubscribes and drops the connection.
func (s *accountSub) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sub.Unsubscribe()
		s.client.Close()
	})
	return nil
}
