package ports

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountReader reads raw account data from the ledger.
type AccountReader interface {
	// GetAccountData returns the account's bytes. A missing account is reported as
	// domain.ErrNotFound; anything else that goes wrong is a *domain.TransportError.
	GetAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// InstructionSubmitter signs and sends program instructions with the configured wallet.
type InstructionSubmitter interface {
	// Payer is the wallet that signs and pays. Zero key when no wallet is loaded.
	Payer() solana.PublicKey

	// Submit sends one transaction carrying ix. It never retries. A program
	// rejection comes back as *domain.LedgerRejection.
	Submit(ctx context.Context, ix solana.Instruction) (signature string, err error)
}

// AccountSubscription is a live change feed for one account.
type AccountSubscription interface {
	// Changes emits one value per change notification and is closed on teardown.
	Changes() <-chan struct{}

	// Close unregisters the listener.
	Close() error
}

// AccountWatcher opens change subscriptions on ledger accounts.
type AccountWatcher interface {
	WatchAccount(ctx context.Context, address solana.PublicKey) (AccountSubscription, error)
}
