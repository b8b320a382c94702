// Package betting places bets, claims winnings and initializes the program,
// one instruction per call and never retried.
package betting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/alejandrodnm/roundbet/internal/application/fetcher"
	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
	"github.com/alejandrodnm/roundbet/internal/program"
)

// Config holds the client-side bet policy, in SOL.
type Config struct {
	MinAmount float64
	MaxAmount float64
}

// DefaultConfig mirrors the range the program itself accepts.
func DefaultConfig() Config {
	return Config{MinAmount: 0.005, MaxAmount: 10}
}

// ViewSource hands out the latest reconciled view.
type ViewSource interface {
	Snapshot() domain.View
}

// Service orchestrates bet and claim submissions for the configured wallet.
type Service struct {
	cfg       Config
	prog      *program.Program
	submitter ports.InstructionSubmitter
	views     ViewSource
	fetcher   *fetcher.Fetcher
	journal   ports.TxJournal
	metrics   ports.Metrics
	now       func() time.Time
}

// New crea un Service. submitter may be nil when no wallet is configured;
// journal and metrics may be nil.
func New(
	cfg Config,
	prog *program.Program,
	submitter ports.InstructionSubmitter,
	views ViewSource,
	f *fetcher.Fetcher,
	journal ports.TxJournal,
	metrics ports.Metrics,
) *Service {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		cfg:       cfg,
		prog:      prog,
		submitter: submitter,
		views:     views,
		fetcher:   f,
		journal:   journal,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Wallet returns the signing wallet, or ErrNoWallet.
func (s *Service) Wallet() (solana.PublicKey, error) {
	if s.submitter == nil || s.submitter.Payer().IsZero() {
		return solana.PublicKey{}, &domain.ValidationError{Field: "wallet", Err: domain.ErrNoWallet}
	}
	return s.submitter.Payer(), nil
}

// ValidateAmount applies the bet policy and converts to lamports.
func (s *Service) ValidateAmount(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, &domain.ValidationError{Field: "amount", Err: domain.ErrInvalidAmount}
	}
	if amount < s.cfg.MinAmount || amount > s.cfg.MaxAmount {
		return 0, &domain.ValidationError{
			Field: "amount",
			Err:   fmt.Errorf("%w: %v not in [%v, %v]", domain.ErrPositionOutOfRange, amount, s.cfg.MinAmount, s.cfg.MaxAmount),
		}
	}
	return domain.AmountToLedger(amount)
}

// PlaceBet submits one place_bet for the round currently open for bets.
func (s *Service) PlaceBet(ctx context.Context, dir domain.Direction, amount float64) (domain.TxHandle, error) {
	user, err := s.Wallet()
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.PlaceBet: %w", err)
	}
	if !dir.Valid() {
		return domain.TxHandle{}, fmt.Errorf("betting.PlaceBet: %w",
			&domain.ValidationError{Field: "direction", Err: domain.ErrInvalidDirection})
	}
	lamports, err := s.ValidateAmount(amount)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.PlaceBet: %w", err)
	}

	view := s.views.Snapshot()
	if !view.Synced() || view.Next == nil {
		return domain.TxHandle{}, fmt.Errorf("betting.PlaceBet: %w",
			&domain.ValidationError{Field: "next_round", Err: domain.ErrNextRoundUnknown})
	}
	roundID := view.Next.ID

	ix, err := s.prog.PlaceBet(user, roundID, dir, lamports)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.PlaceBet: %w", err)
	}

	d := dir
	rec := s.submit(ctx, domain.TxPlaceBet, roundID, ix, func(r *domain.TxRecord) {
		r.Direction = &d
		r.Lamports = lamports
	})
	slog.Info("betting: place_bet",
		"round", roundID,
		"direction", dir,
		"lamports", lamports,
		"signature", rec.Signature,
		"status", rec.Status,
	)
	return rec.handle, rec.wrap("betting.PlaceBet")
}

// Claim submits one claim_winnings for roundID. A second claim is rejected by
// the program with domain.ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, roundID uint64) (domain.TxHandle, error) {
	user, err := s.Wallet()
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.Claim: %w", err)
	}
	ix, err := s.prog.ClaimWinnings(user, roundID)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.Claim: %w", err)
	}

	rec := s.submit(ctx, domain.TxClaim, roundID, ix, nil)
	slog.Info("betting: claim_winnings", "round", roundID, "signature", rec.Signature, "status", rec.Status)
	return rec.handle, rec.wrap("betting.Claim")
}

// Claimable reports whether the wallet can claim roundID right now. A missing
// round or bet is simply not claimable.
func (s *Service) Claimable(ctx context.Context, roundID uint64) (bool, error) {
	user, err := s.Wallet()
	if err != nil {
		return false, fmt.Errorf("betting.Claimable: %w", err)
	}

	round, err := s.fetcher.FetchRoundByID(ctx, roundID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("betting.Claimable: %w", err)
	}

	bet, err := s.fetcher.FetchUserBet(ctx, roundID, user)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("betting.Claimable: %w", err)
	}
	return domain.CanClaim(round, &bet), nil
}

// Initialize submits the program's one-time initialize instruction, which
// creates the vault, the state account and rounds 0 and 1.
func (s *Service) Initialize(ctx context.Context, priceUpdate solana.PublicKey) (domain.TxHandle, error) {
	payer, err := s.Wallet()
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.Initialize: %w", err)
	}
	ix, err := s.prog.Initialize(payer, priceUpdate)
	if err != nil {
		return domain.TxHandle{}, fmt.Errorf("betting.Initialize: %w", err)
	}

	rec := s.submit(ctx, domain.TxInitialize, 0, ix, nil)
	slog.Info("betting: initialize", "price_update", priceUpdate, "signature", rec.Signature, "status", rec.Status)
	return rec.handle, rec.wrap("betting.Initialize")
}

// RecentTxs returns the journal, newest first.
func (s *Service) RecentTxs(ctx context.Context, limit int) ([]domain.TxRecord, error) {
	if s.journal == nil {
		return nil, nil
	}
	recs, err := s.journal.RecentTxs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("betting.RecentTxs: %w", err)
	}
	return recs, nil
}

type submission struct {
	domain.TxRecord
	handle domain.TxHandle
	err    error
}

func (r submission) wrap(op string) error {
	if r.err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, r.err)
}

func (s *Service) submit(ctx context.Context, kind domain.TxKind, roundID uint64, ix solana.Instruction, fill func(*domain.TxRecord)) submission {
	rec := domain.TxRecord{
		TxHandle: domain.TxHandle{
			ID:          uuid.New(),
			Kind:        kind,
			RoundID:     roundID,
			SubmittedAt: s.now().UTC(),
		},
		Status: domain.TxSubmitted,
	}
	if fill != nil {
		fill(&rec)
	}

	sig, err := s.submitter.Submit(ctx, ix)
	rec.Signature = sig
	switch {
	case err == nil:
		rec.Status = domain.TxConfirmed
	case domain.IsRejection(err):
		rec.Status = domain.TxRejected
		rec.Error = err.Error()
	default:
		rec.Status = domain.TxFailed
		rec.Error = err.Error()
	}
	s.metrics.ObserveSubmission(kind, rec.Status)

	if s.journal != nil {
		// el journal se escribe aunque ctx ya esté cancelado
		if jerr := s.journal.SaveTx(context.WithoutCancel(ctx), rec); jerr != nil {
			slog.Warn("betting: journal write failed", "id", rec.ID, "err", jerr)
		}
	}
	return submission{TxRecord: rec, handle: rec.TxHandle, err: err}
}
