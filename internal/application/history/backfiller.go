// Package history reconstructs a wallet's participation history page by page,
// walking round ids downward from the last finished round.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/alejandrodnm/roundbet/internal/application/fetcher"
	"github.com/alejandrodnm/roundbet/internal/domain"
)

// Config bounds one page.
type Config struct {
	PageSize  int // entries per page
	ScanLimit int // round ids inspected per page at most
}

// DefaultConfig returns pages of 10 entries scanning up to 100 rounds.
func DefaultConfig() Config {
	return Config{PageSize: 10, ScanLimit: 100}
}

// Backfiller fetches history pages on request. Pages are fetched sequentially
// and nothing runs in the background.
type Backfiller struct {
	cfg     Config
	fetcher *fetcher.Fetcher
}

// New crea un Backfiller.
func New(cfg Config, f *fetcher.Fetcher) *Backfiller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultConfig().ScanLimit
	}
	return &Backfiller{cfg: cfg, fetcher: f}
}

// FetchPage returns up to PageSize rounds user bet on, newest first, scanning
// from currentRoundID-1-offset downward. Rounds that cannot be read are
// skipped, rounds without a bet are excluded. At most ScanLimit ids are read,
// so a short page is not the end of history unless Exhausted is set.
func (b *Backfiller) FetchPage(ctx context.Context, user solana.PublicKey, offset int) (domain.HistoryPage, error) {
	if offset < 0 {
		return domain.HistoryPage{}, &domain.ValidationError{Field: "offset", Err: domain.ErrInvalidOffset}
	}
	st, err := b.fetcher.FetchState(ctx)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("history.FetchPage: %w", err)
	}
	return b.scan(ctx, user, st.CurrentRoundID, offset)
}

func (b *Backfiller) scan(ctx context.Context, user solana.PublicKey, currentID uint64, offset int) (domain.HistoryPage, error) {
	page := domain.HistoryPage{Entries: []domain.HistoryEntry{}, Offset: offset, NextOffset: offset}

	start := int64(currentID) - 1 - int64(offset)
	if start < 0 {
		page.Exhausted = true
		return page, nil
	}

	for id := start; id >= 0; id-- {
		if len(page.Entries) >= b.cfg.PageSize || page.Scanned >= b.cfg.ScanLimit {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.HistoryPage{}, fmt.Errorf("history.FetchPage: %w", err)
		}
		page.Scanned++
		if id == 0 {
			page.Exhausted = true
		}

		entry, ok := b.entry(ctx, uint64(id), user)
		if ok {
			page.Entries = append(page.Entries, entry)
		}
	}
	page.NextOffset = offset + page.Scanned

	slog.Debug("history: page fetched",
		"user", user,
		"offset", offset,
		"entries", len(page.Entries),
		"scanned", page.Scanned,
		"exhausted", page.Exhausted,
	)
	return page, nil
}

func (b *Backfiller) entry(ctx context.Context, id uint64, user solana.PublicKey) (domain.HistoryEntry, bool) {
	round, err := b.fetcher.FetchRoundByID(ctx, id)
	if err != nil {
		logSkip("round", id, err)
		return domain.HistoryEntry{}, false
	}
	bet, err := b.fetcher.FetchUserBet(ctx, id, user)
	if err != nil {
		logSkip("bet", id, err)
		return domain.HistoryEntry{}, false
	}
	return domain.NewHistoryEntry(round, bet), true
}

func logSkip(what string, id uint64, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		slog.Debug("history: skipping round", "round", id, "missing", what)
		return
	}
	slog.Warn("history: skipping unreadable round", "round", id, "what", what, "err", err)
}
