package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

func runState(ctx context.Context, _ *cli.Context, a *app) error {
	view, err := a.manager(nil).Resync(ctx)
	if err != nil {
		return err
	}
	return a.console.NotifyView(ctx, view)
}

func runHistory(ctx context.Context, c *cli.Context, a *app) error {
	var user solana.PublicKey
	if raw := c.String("user"); raw != "" {
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
		user = pk
	} else {
		pk, err := a.betting.Wallet()
		if err != nil {
			return fmt.Errorf("history needs --user or a configured wallet: %w", err)
		}
		user = pk
	}

	page, err := a.history.FetchPage(ctx, user, c.Int("offset"))
	if err != nil {
		return err
	}
	return a.console.NotifyHistory(ctx, page)
}

func runBet(ctx context.Context, c *cli.Context, a *app) error {
	dir, err := domain.ParseDirection(c.String("direction"))
	if err != nil {
		return err
	}
	// the next round id comes from the view
	if _, err := a.manager(nil).Resync(ctx); err != nil {
		return err
	}

	tx, err := a.betting.PlaceBet(ctx, dir, c.Float64("amount"))
	if err != nil {
		return explain(err)
	}
	a.console.PrintTx(tx)
	return nil
}

func runClaim(ctx context.Context, c *cli.Context, a *app) error {
	if !c.IsSet("round") {
		return errors.New("--round is required")
	}
	roundID := c.Uint64("round")

	tx, err := a.betting.Claim(ctx, roundID)
	if err != nil {
		return explain(err)
	}
	a.console.PrintTx(tx)
	return nil
}

func runInitialize(ctx context.Context, c *cli.Context, a *app) error {
	priceUpdate, err := solana.PublicKeyFromBase58(c.String("price-update"))
	if err != nil {
		return fmt.Errorf("invalid --price-update: %w", err)
	}
	tx, err := a.betting.Initialize(ctx, priceUpdate)
	if err != nil {
		return explain(err)
	}
	a.console.PrintTx(tx)
	return nil
}

// explain adds a hint for the rejections a user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateBet):
		return fmt.Errorf("%w (one bet per round and wallet)", err)
	case errors.Is(err, domain.ErrInsufficientBalance):
		return fmt.Errorf("%w (fund the wallet and retry)", err)
	case errors.Is(err, domain.ErrRoundActive), errors.Is(err, domain.ErrRoundNotEnded):
		return fmt.Errorf("%w (wait until the round resolves)", err)
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return fmt.Errorf("%w (nothing left to claim)", err)
	default:
		return err
	}
}
