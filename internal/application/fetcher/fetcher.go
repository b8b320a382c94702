// Package fetcher reads and decodes the program's accounts: global state,
// rounds and user bets.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
	"github.com/alejandrodnm/roundbet/internal/program"
)

// ExpiredWindow is how many rounds before the current one are shown as expired.
const ExpiredWindow = 3

// Fetcher reads program accounts. Absence is reported as domain.ErrNotFound and
// every other failure as a *domain.TransportError.
type Fetcher struct {
	reader ports.AccountReader
	addrs  *program.Deriver
	cache  ports.RoundCache
}

// New crea un Fetcher. cache may be nil.
func New(reader ports.AccountReader, addrs *program.Deriver, cache ports.RoundCache) *Fetcher {
	return &Fetcher{reader: reader, addrs: addrs, cache: cache}
}

// Addresses exposes the deriver the fetcher reads with.
func (f *Fetcher) Addresses() *program.Deriver { return f.addrs }

// FetchState reads the singleton state account.
func (f *Fetcher) FetchState(ctx context.Context) (domain.GlobalState, error) {
	data, err := f.reader.GetAccountData(ctx, f.addrs.State())
	if err != nil {
		return domain.GlobalState{}, fmt.Errorf("fetcher.FetchState: %w", err)
	}
	acc, err := program.DecodeState(data)
	if err != nil {
		return domain.GlobalState{}, &domain.TransportError{Op: "fetcher.FetchState", Err: err}
	}
	return acc.ToDomain(), nil
}

// FetchRound reads the round account at address.
func (f *Fetcher) FetchRound(ctx context.Context, address solana.PublicKey) (domain.Round, error) {
	data, err := f.reader.GetAccountData(ctx, address)
	if err != nil {
		return domain.Round{}, fmt.Errorf("fetcher.FetchRound %s: %w", address, err)
	}
	acc, err := program.DecodeRound(data)
	if err != nil {
		return domain.Round{}, &domain.TransportError{Op: "fetcher.FetchRound " + address.String(), Err: err}
	}
	return acc.ToDomain(), nil
}

// FetchRoundByID reads round id, serving settled rounds from the cache.
func (f *Fetcher) FetchRoundByID(ctx context.Context, id uint64) (domain.Round, error) {
	if f.cache != nil {
		r, err := f.cache.GetRound(ctx, id)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("fetcher: round cache read failed", "round", id, "err", err)
		}
	}

	r, err := f.FetchRound(ctx, f.addrs.Round(id))
	if err != nil {
		return domain.Round{}, err
	}
	if r.ID != id {
		return domain.Round{}, &domain.TransportError{
			Op:  "fetcher.FetchRoundByID",
			Err: fmt.Errorf("account for round %d holds round %d", id, r.ID),
		}
	}

	if f.cache != nil && r.Resolved() {
		if err := f.cache.PutRound(ctx, r); err != nil {
			slog.Warn("fetcher: round cache write failed", "round", id, "err", err)
		}
	}
	return r, nil
}

// FetchUserBet reads user's bet in roundID. domain.ErrNotFound means no bet.
func (f *Fetcher) FetchUserBet(ctx context.Context, roundID uint64, user solana.PublicKey) (domain.UserBet, error) {
	addr := f.addrs.UserBet(roundID, user)
	data, err := f.reader.GetAccountData(ctx, addr)
	if err != nil {
		return domain.UserBet{}, fmt.Errorf("fetcher.FetchUserBet round=%d: %w", roundID, err)
	}
	acc, err := program.DecodeUserBet(data)
	if err != nil {
		return domain.UserBet{}, &domain.TransportError{Op: "fetcher.FetchUserBet", Err: err}
	}
	return acc.ToDomain(), nil
}

// FetchExpiredRounds returns rounds currentID-3 … currentID-1, oldest first. Ids
// below zero are skipped. A round with no account is replaced by a placeholder
// whose timestamps are shifted back from current; any other failure aborts.
func (f *Fetcher) FetchExpiredRounds(ctx context.Context, currentID uint64, current *domain.Round) ([]domain.ExpiredRound, error) {
	out := make([]domain.ExpiredRound, 0, ExpiredWindow)
	for back := uint64(ExpiredWindow); back >= 1; back-- {
		if back > currentID {
			continue
		}
		id := currentID - back

		r, err := f.FetchRoundByID(ctx, id)
		switch {
		case err == nil:
			out = append(out, domain.ExpiredRound{Round: r})
		case errors.Is(err, domain.ErrNotFound):
			slog.Debug("fetcher: expired round missing, using placeholder", "round", id)
			out = append(out, domain.ExpiredRound{
				Round:       domain.PlaceholderRound(id, currentID, current),
				Placeholder: true,
			})
		default:
			return nil, fmt.Errorf("fetcher.FetchExpiredRounds: %w", err)
		}
	}
	return out, nil
}
