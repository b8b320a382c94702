// Package solanarpc talks to a Solana cluster over JSON-RPC and websockets:
// account reads, transaction submission and account change subscriptions.
package solanarpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

const (
	// Public RPC nodes allow ~40 req/10s per IP; default to 60% of that.
	defaultRatePerSec = 2.4
	defaultBurst      = 4
)

// Reader implementa ports.AccountReader con rate limiting. Reads are never
// retried: a failed read is reported and the caller decides.
type Reader struct {
	client     *rpc.Client
	limiter    *rate.Limiter
	commitment rpc.CommitmentType
	owner      solana.PublicKey
}

// NewReader crea un Reader. Accounts not owned by owner are reported as a
// layout mismatch. ratePerSec <= 0 uses the default.
func NewReader(client *rpc.Client, owner solana.PublicKey, commitment rpc.CommitmentType, ratePerSec float64) *Reader {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Reader{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), defaultBurst),
		commitment: commitment,
		owner:      owner,
	}
}

// GetAccountData implements ports.AccountReader.
func (r *Reader) GetAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{Op: "solanarpc.GetAccountData", Err: fmt.Errorf("rate limiter: %w", err)}
	}

	out, err := r.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: r.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.TransportError{Op: "solanarpc.GetAccountData " + address.String(), Err: err}
	}
	if out == nil || out.Value == nil {
		return nil, domain.ErrNotFound
	}

	acct := out.Value
	if !r.owner.IsZero() && !acct.Owner.Equals(r.owner) {
		return nil, &domain.TransportError{
			Op:  "solanarpc.GetAccountData " + address.String(),
			Err: fmt.Errorf("account owned by %s, want %s", acct.Owner, r.owner),
		}
	}
	if acct.Data == nil {
		return nil, &domain.TransportError{Op: "solanarpc.GetAccountData " + address.String(), Err: errors.New("empty account data")}
	}
	return acct.Data.GetBinary(), nil
}
