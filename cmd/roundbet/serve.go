package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/urfave/cli"

	"github.com/alejandrodnm/roundbet/internal/adapters/httpapi"
	"github.com/alejandrodnm/roundbet/internal/adapters/pyth"
	"github.com/alejandrodnm/roundbet/internal/adapters/solanarpc"
	"github.com/alejandrodnm/roundbet/internal/application/price"
	"github.com/alejandrodnm/roundbet/internal/application/reconcile"
	"github.com/alejandrodnm/roundbet/internal/domain"
)

const (
	minBackoff = 2 * time.Second
	maxBackoff = time.Minute
)

func runServe(ctx context.Context, c *cli.Context, a *app) error {
	cfg := a.cfg
	var wg sync.WaitGroup

	mgr := a.manager(solanarpc.NewWatcher(cfg.Ledger.WSURL, a.commitment))
	wg.Add(1)
	go func() {
		defer wg.Done()
		superviseReconcile(ctx, mgr)
	}()

	var (
		prices  httpapi.Prices
		emitted <-chan domain.Price
	)
	if cfg.PriceEnabled() {
		throttler := price.NewThrottler(price.Config{
			FeedID:   cfg.Price.FeedID,
			Interval: cfg.ThrottleInterval(),
			MaxAge:   cfg.PriceMaxAge(),
		}, a.metrics)
		prices = throttler
		emitted = throttler.Prices()

		streamCfg := pyth.DefaultConfig()
		streamCfg.URL = cfg.Price.HermesWSURL
		stream := pyth.NewStream(streamCfg, slog.Default())

		wg.Add(1)
		go func() {
			defer wg.Done()
			supervisePrice(ctx, stream, throttler, cfg.Price.FeedID)
		}()
	}

	if c.Bool("console") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			printConsole(ctx, a, emitted)
		}()
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Views:          a.views,
		Prices:         prices,
		History:        a.history,
		Bets:           a.betting,
		Metrics:        a.metrics.Handler(),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	err := httpapi.NewServer(cfg.HTTP.Addr, router).Run(ctx)

	if stopErr := mgr.Stop(); stopErr != nil {
		slog.Warn("serve: stop reconcile", "err", stopErr)
	}
	wg.Wait()
	slog.Info("roundbet stopped cleanly")
	return err
}

// superviseReconcile keeps one state subscription alive, resubscribing with
// backoff when the websocket drops.
func superviseReconcile(ctx context.Context, mgr *reconcile.Manager) {
	backoff := minBackoff
	for {
		if err := mgr.Start(ctx); err != nil {
			slog.Warn("serve: subscribe to state failed", "err", err, "retry_in", backoff)
		} else {
			backoff = minBackoff
			select {
			case <-mgr.Done():
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				return
			}
			slog.Warn("serve: state subscription ended, resubscribing", "retry_in", backoff)
		}
		if !sleep(ctx, backoff) {
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// supervisePrice feeds the throttler, reconnecting to the price stream on drop.
func supervisePrice(ctx context.Context, stream *pyth.Stream, t *price.Throttler, feedID string) {
	backoff := minBackoff
	for {
		sub, err := stream.SubscribePrice(ctx, feedID)
		if err != nil {
			slog.Warn("serve: price subscribe failed", "err", err, "retry_in", backoff)
		} else {
			backoff = minBackoff
			if err := t.Run(ctx, sub); err != nil {
				slog.Warn("serve: price feed stopped", "err", err)
			}
		}
		if ctx.Err() != nil {
			return
		}
		if !sleep(ctx, backoff) {
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// printConsole writes every new view and every emitted price to the console.
// prices may be nil when the feed is disabled.
func printConsole(ctx context.Context, a *app, prices <-chan domain.Price) {
	updates := a.views.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-updates:
			if err := a.console.NotifyView(ctx, view); err != nil {
				slog.Warn("serve: print view", "err", err)
			}
		case p := <-prices:
			var move *domain.PriceMove
			if cur := a.views.Snapshot().Current; cur != nil {
				if m, ok := domain.NewPriceMove(cur.StartPrice, p.Value); ok {
					move = &m
				}
			}
			a.console.PrintPrice(p, move)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
